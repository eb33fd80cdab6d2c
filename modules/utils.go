package modules

import (
	"reflect"
	"strings"

	"github.com/Seklfreak/Guardian/cache"
	"github.com/Seklfreak/Guardian/guardian"
	"github.com/Seklfreak/Guardian/helpers"
	"github.com/Seklfreak/Guardian/metrics"
	"github.com/Seklfreak/Guardian/ratelimits"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Init registers the commands and initializes the plugins
func Init(session *discordgo.Session, g *guardian.Guardian) error {
	err := checkDuplicateCommands(PluginList)
	if err != nil {
		return err
	}

	pluginCache = make(map[string]*Plugin)
	for i := range PluginList {
		ref := &PluginList[i]

		for _, cmd := range (*ref).Commands() {
			pluginCache[cmd] = ref
		}

		logger().Infof("[PLUG] %s reacts to [ %s ]", typeOf(*ref), strings.Join((*ref).Commands(), " "))
		(*ref).Init(session, g)
	}

	logger().Infof("Initializer finished. Loaded %d plugins", len(PluginList))
	return nil
}

// ParseCommand splits a message into command and arguments, ok is false if content does not start with prefix
func ParseCommand(prefix, content string) (command string, args string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}

	content = strings.TrimSpace(strings.TrimPrefix(content, prefix))
	parts := strings.SplitN(content, " ", 2)
	command = strings.ToLower(parts[0])
	if command == "" {
		return "", "", false
	}
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}
	return command, args, true
}

// CommandExists is true if a plugin reacts to command
func CommandExists(command string) bool {
	_, ok := pluginCache[command]
	return ok
}

// CallBotPlugin runs command for msg, users that exhausted their keys get a warning instead
func CallBotPlugin(command string, content string, msg *discordgo.Message) {
	defer helpers.Recover()

	ref, ok := pluginCache[command]
	if !ok {
		return
	}

	// Consume a key for this action
	err := ratelimits.Commands.Drain(1, msg.Author.ID)
	if err != nil {
		logger().WithField("userID", msg.Author.ID).Debugf("rate limited command %s", command)
		if ratelimits.Commands.Get(msg.Author.ID) == -1 {
			_, err = cache.GetSession().ChannelMessageSend(msg.ChannelID, helpers.GetTextF("bot.ratelimit.hit", msg.Author.ID))
			helpers.RelaxLog(err)
		}
		return
	}

	metrics.CommandsExecuted.Add(1)

	(*ref).Action(command, content, msg, cache.GetSession())
}

func checkDuplicateCommands(list []Plugin) error {
	cmds := make(map[string]string)

	for _, plug := range list {
		for _, cmd := range plug.Commands() {
			t := typeOf(plug)

			if occupant, ok := cmds[cmd]; ok {
				return errors.Errorf("failed to load %s because '%s' was already registered by %s", t, cmd, occupant)
			}

			cmds[cmd] = t
		}
	}
	return nil
}

func typeOf(v interface{}) string {
	return reflect.TypeOf(v).String()
}

func logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "modules")
}
