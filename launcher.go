package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/Seklfreak/Guardian/cache"
	"github.com/Seklfreak/Guardian/gateway"
	"github.com/Seklfreak/Guardian/guardian"
	"github.com/Seklfreak/Guardian/helpers"
	"github.com/Seklfreak/Guardian/logging"
	"github.com/Seklfreak/Guardian/metrics"
	"github.com/Seklfreak/Guardian/ratelimits"
	"github.com/Seklfreak/Guardian/rest"
	"github.com/Seklfreak/Guardian/store"
	"github.com/Seklfreak/Guardian/version"
	"github.com/bwmarrin/discordgo"
	"github.com/emicklei/go-restful"
	"github.com/getsentry/raven-go"
	"github.com/kz/discordrus"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// Entrypoint
func main() {
	configPath := pflag.StringP("config", "c", "config.json", "path to the JSON config file")
	envPath := pflag.String("env-file", ".env", "path to an optional .env file")
	pflag.Parse()

	log := logrus.New()
	log.Out = os.Stdout
	log.Level = logrus.InfoLevel
	log.Formatter = &logrus.TextFormatter{ForceColors: true, FullTimestamp: true, TimestampFormat: time.RFC3339}
	log.Hooks = make(logrus.LevelHooks)
	cache.SetLogger(log)

	launcherLog := log.WithField("module", "launcher")

	// Read config
	err := helpers.LoadDotEnv(*envPath)
	if err != nil {
		launcherLog.Warn(err.Error())
	}
	err = helpers.LoadConfig(*configPath)
	if err != nil {
		launcherLog.Warnf("%s, continuing with environment and defaults", err.Error())
	}
	err = helpers.ApplyEnvOverrides()
	if err != nil {
		launcherLog.Fatal(err.Error())
	}

	// Check if the bot is being debugged
	if helpers.ConfigBool("debug", false) {
		helpers.DEBUG_MODE = true
		log.Level = logrus.DebugLevel
	}

	if path := helpers.ConfigString("logging.jsonfile", ""); path != "" {
		fileHook, err := logging.NewFileHook(path, log.Level)
		if err != nil {
			launcherLog.Error("logrus file hook failed, err: ", err.Error())
		} else {
			log.Hooks.Add(fileHook)
			defer fileHook.Close()
		}
	}

	if webhook := helpers.ConfigString("logging.discord_webhook", ""); webhook != "" {
		log.Hooks.Add(discordrus.NewHook(
			webhook,
			logrus.ErrorLevel,
			&discordrus.Opts{
				Username:           "Guardian Logging",
				DisableTimestamp:   false,
				TimestampFormat:    "Jan 2 15:04:05.00000",
				EnableCustomColors: true,
				CustomLevelColors: &discordrus.LevelColors{
					Error: 13631488,
					Panic: 13631488,
					Fatal: 13631488,
				},
			},
		))
	}

	launcherLog.Info("Booting Nickname Guardian...")

	// Read i18n
	helpers.LoadTranslations()

	// Show version
	version.DumpInfo()

	metrics.Init()

	// Call home
	if dsn := helpers.ConfigString("sentry", ""); dsn != "" {
		launcherLog.Info("[SENTRY] Calling home...")
		err = raven.SetDSN(dsn)
		if err != nil {
			launcherLog.Errorf("[SENTRY] invalid DSN: %s", err.Error())
		}
		if version.Version != "UNSET" {
			raven.SetRelease(version.Version)
		}
	}

	recordStore := openStore()
	defer recordStore.Close()

	// Route discordgo logs into logrus
	discordgo.Logger = func(msgL, caller int, format string, a ...interface{}) {
		pc, file, line, _ := runtime.Caller(caller)

		files := strings.Split(file, "/")
		file = files[len(files)-1]

		name := runtime.FuncForPC(pc).Name()
		fns := strings.Split(name, ".")
		name = fns[len(fns)-1]

		msg := format
		if strings.Contains(msg, "%") {
			msg = fmt.Sprintf(format, a...)
		}

		entry := log.WithField("module", "discordgo")
		switch msgL {
		case discordgo.LogError:
			entry.Errorf("%s:%d:%s() %s", file, line, name, msg)
		case discordgo.LogWarning:
			entry.Warnf("%s:%d:%s() %s", file, line, name, msg)
		case discordgo.LogInformational:
			entry.Infof("%s:%d:%s() %s", file, line, name, msg)
		case discordgo.LogDebug:
			entry.Debugf("%s:%d:%s() %s", file, line, name, msg)
		}
	}

	token := helpers.ConfigString("discord.token", "")
	if token == "" {
		launcherLog.Fatal("no discord token configured, set discord.token or DISCORD_TOKEN")
	}

	launcherLog.Info("Connecting Guardian to discord...")
	discord, err := discordgo.New("Bot " + token)
	if err != nil {
		raven.CaptureErrorAndWait(err, nil)
		launcherLog.Fatal(err.Error())
	}

	discord.Lock()
	discord.Debug = false
	discord.LogLevel = discordgo.LogInformational
	discord.StateEnabled = true
	discord.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
	discord.Unlock()

	discordGateway := gateway.NewDiscord(discord)
	guard = guardian.New(
		discordGateway,
		recordStore,
		gateway.NewChannelNotifier(discord, helpers.ConfigString("guardian.notification_channel", "audit-log")),
		guardian.Config{
			AuditWindow:       helpers.ConfigInt("guardian.audit_window", guardian.DefaultAuditWindow),
			AttributionMaxAge: time.Duration(helpers.ConfigInt("guardian.attribution_max_age_seconds", 0)) * time.Second,
		},
	)

	discord.AddHandler(BotOnReady)
	discord.AddHandler(BotOnGuildCreate)
	discord.AddHandler(BotOnGuildDelete)
	discord.AddHandler(BotOnGuildMemberUpdate)
	discord.AddHandler(BotOnMessageCreate)
	discord.AddHandlerOnce(metrics.OnReady)

	// Connect to discord
	err = discord.Open()
	if err != nil {
		raven.CaptureErrorAndWait(err, nil)
		launcherLog.Fatal(err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run ratelimiter
	go ratelimits.Commands.Run(ctx, ratelimits.DropInterval)

	// Open REST API
	rest.RegisterEntityAccessor()
	wsContainer := restful.NewContainer()
	for _, service := range rest.NewRestServices(guard, discordGateway) {
		wsContainer.Add(service)
	}
	wsContainer.Handle("/debug/vars", expvar.Handler())
	wsContainer.Filter(func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		// Log request and time
		now := time.Now()
		chain.ProcessFilter(req, resp)
		launcherLog.Debugf("received api request: %s %s%s (took %v)",
			req.Request.Method, req.Request.Host, req.Request.URL, time.Since(now))
	})

	listen := helpers.ConfigString("api.listen", "0.0.0.0:8080")
	server := &http.Server{Addr: listen, Handler: wsContainer}
	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			launcherLog.Errorf("REST API stopped: %s", err.Error())
		}
	}()
	launcherLog.Info("REST API listening on " + listen)

	// Wait until the os wants us to shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	<-signals

	launcherLog.Info("Guardian is stopping")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	helpers.RelaxLog(server.Shutdown(shutdownCtx))

	launcherLog.Info("Disconnecting bot discord session...")
	helpers.RelaxLog(discord.Close())
}

// openStore connects the configured backend. Startup never fails because of the store,
// without one the immune role features are disabled and everybody but the owner gets reverted.
func openStore() store.Store {
	log := cache.GetLogger().WithField("module", "launcher")

	var (
		recordStore store.Store
		err         error
	)
	backend := helpers.ConfigString("storage.backend", "mongodb")
	switch backend {
	case "mongodb":
		url := helpers.ConfigString("mongodb.url", "")
		if url == "" {
			err = errors.New("mongodb.url is not configured")
			break
		}
		recordStore, err = store.ConnectMongo(
			url,
			helpers.ConfigString("mongodb.db", "guardian"),
			helpers.DEBUG_MODE,
		)
	case "redis":
		recordStore, err = store.ConnectRedis(
			helpers.ConfigString("redis.address", "localhost:6379"),
			helpers.ConfigString("redis.password", ""),
			helpers.ConfigInt("redis.db", 0),
		)
	case "memory":
		log.Warn("using the in-memory store, records are lost on restart")
		recordStore = store.NewMemoryStore()
	default:
		err = errors.Errorf("unknown storage backend %q", backend)
	}

	if err != nil {
		helpers.RelaxLog(err)
		log.Error("store unavailable, immune role features disabled")
		return store.NewDisabled()
	}
	return recordStore
}
