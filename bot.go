package main

import (
	"context"
	"sync"
	"time"

	"github.com/Seklfreak/Guardian/cache"
	"github.com/Seklfreak/Guardian/gateway"
	"github.com/Seklfreak/Guardian/guardian"
	"github.com/Seklfreak/Guardian/helpers"
	"github.com/Seklfreak/Guardian/models"
	"github.com/Seklfreak/Guardian/modules"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

var (
	guard        *guardian.Guardian
	modulesOnce  sync.Once
	seededGuilds sync.Map
)

// BotOnReady gets called after the gateway connected
func BotOnReady(session *discordgo.Session, event *discordgo.Ready) {
	logger().Infof("Connected to discord as %s#%s, %d guilds", event.User.Username, event.User.Discriminator, len(event.Guilds))

	// Cache the session
	cache.SetSession(session)

	modulesOnce.Do(func() {
		err := modules.Init(session, guard)
		if err != nil {
			logger().Fatal(err.Error())
		}
	})

	// the guild list of a new session may differ, seed everything again
	seededGuilds.Range(func(key, value interface{}) bool {
		seededGuilds.Delete(key)
		return true
	})
	for _, guild := range event.Guilds {
		go seedGuild(guild.ID)
	}
}

// BotOnGuildCreate seeds guilds that were joined or became available after Ready
// and requests their members, so member updates carry the previous state
func BotOnGuildCreate(session *discordgo.Session, event *discordgo.GuildCreate) {
	if event.Guild == nil || event.Guild.Unavailable {
		return
	}
	logger().WithField("guildID", event.Guild.ID).Debugf("guild available: %s (%d members)", event.Guild.Name, event.Guild.MemberCount)

	go requestGuildMembers(session, event.Guild.ID)
	go seedGuild(event.Guild.ID)
}

func BotOnGuildDelete(session *discordgo.Session, event *discordgo.GuildDelete) {
	if event.Guild == nil {
		return
	}
	seededGuilds.Delete(event.Guild.ID)
}

// BotOnGuildMemberUpdate hands nickname changes to the guardian. Each update is handled
// in its own goroutine, the gateway event loop is never blocked by audit log requests.
func BotOnGuildMemberUpdate(session *discordgo.Session, event *discordgo.GuildMemberUpdate) {
	if event.Member == nil || event.Member.User == nil {
		return
	}

	after := gateway.ConvertMember(event.GuildID, event.Member)
	var before *models.Member
	if event.BeforeUpdate != nil {
		previous := gateway.ConvertMember(event.GuildID, event.BeforeUpdate)
		if previous.DisplayName() == after.DisplayName() {
			return
		}
		before = &previous
	}

	go handleMemberUpdate(before, after)
}

// handleMemberUpdate runs the guardian on one member update. Without a previous state from the
// gateway the stored name is used, members without a record get one.
func handleMemberUpdate(previous *models.Member, after models.Member) guardian.Decision {
	defer helpers.Recover()

	log := logger().WithFields(logrus.Fields{"guildID": after.GuildID, "userID": after.UserID})

	var before models.Member
	if previous != nil {
		before = *previous
	} else {
		recorded, found, err := guard.RecordedMember(after)
		if err != nil {
			log.Warnf("member update without previous state, reading stored name failed: %s", err.Error())
			return guardian.Decision{}
		}
		if !found {
			_, err = guard.InitializeMember(after)
			if err != nil {
				log.Warnf("initializing member failed: %s", err.Error())
			}
			return guardian.Decision{}
		}
		before = recorded
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout())
	defer cancel()

	decision := guard.HandleRename(ctx, before, after)
	if decision.Action != guardian.ActionNone {
		log.WithField("actorID", decision.ActorID).Debugf("handled nickname change: %s", decision.Action)
	}
	return decision
}

// BotOnMessageCreate gets called after a new message was sent
// This will be called after *every* message on *every* server so it should die as soon as possible
// or spawn costly work inside of coroutines.
func BotOnMessageCreate(session *discordgo.Session, message *discordgo.MessageCreate) {
	// Ignore other bots and @everyone/@here
	if message.Author == nil || message.Author.Bot || message.MentionEveryone {
		return
	}

	command, args, ok := modules.ParseCommand(helpers.ConfigString("bot.prefix", "!"), message.Content)
	if !ok || !modules.CommandExists(command) {
		return
	}

	go modules.CallBotPlugin(command, args, message.Message)
}

func seedGuild(guildID string) {
	defer helpers.Recover()

	if _, loaded := seededGuilds.LoadOrStore(guildID, true); loaded {
		return
	}
	if !guard.Store().Ready() {
		logger().WithField("guildID", guildID).Debug("store unavailable, skipping member initialization")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	seeded, err := guard.InitializeAllMembers(ctx, guildID)
	if err != nil {
		logger().WithField("guildID", guildID).Warnf("member initialization incomplete: %s", err.Error())
	}
	logger().WithField("guildID", guildID).Infof("initialized %d member records", seeded)
}

func requestGuildMembers(session *discordgo.Session, guildID string) {
	defer helpers.Recover()

	err := session.RequestGuildMembers(guildID, "", 0, "", false)
	if err != nil {
		logger().WithField("guildID", guildID).Errorf("requesting members failed: %s", err.Error())
	}
}

func eventTimeout() time.Duration {
	return time.Duration(helpers.ConfigInt("guardian.event_timeout_seconds", 10)) * time.Second
}

func logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "bot")
}
