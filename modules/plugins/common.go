package plugins

import (
	"context"
	"time"

	"github.com/Seklfreak/Guardian/cache"
	"github.com/Seklfreak/Guardian/helpers"
	"github.com/Seklfreak/Guardian/store"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const (
	commandTimeout = 30 * time.Second

	colorSuccess = 0x2ecc71
	colorError   = 0xe74c3c
	colorInfo    = 0x3498db
	colorWarning = 0xe67e22
	colorNeutral = 0x95a5a6
)

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

func newEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
	}
}

func errorEmbed(description string) *discordgo.MessageEmbed {
	return newEmbed(helpers.GetText("plugins.immunity.error-title"), description, colorError)
}

func permissionDeniedEmbed() *discordgo.MessageEmbed {
	return newEmbed(
		helpers.GetText("plugins.immunity.permission-denied-title"),
		helpers.GetText("plugins.immunity.permission-denied"),
		colorError,
	)
}

// failureEmbed turns an operation error into a reply, unavailable stores get the degraded notice
func failureEmbed(err error, fallback string) *discordgo.MessageEmbed {
	if store.IsUnavailable(err) {
		return errorEmbed(helpers.GetText("bot.errors.store-unavailable"))
	}
	return errorEmbed(fallback)
}

func sendEmbed(session *discordgo.Session, channelID string, embed *discordgo.MessageEmbed) {
	_, err := session.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		cache.GetLogger().WithField("module", "plugins").Warnf("sending reply to #%s failed: %s", channelID, err.Error())
	}
}

func pluginLogger(name string, msg *discordgo.Message) *logrus.Entry {
	entry := cache.GetLogger().WithField("module", name)
	if msg != nil {
		entry = entry.WithField("guildID", msg.GuildID)
		if msg.Author != nil {
			entry = entry.WithField("userID", msg.Author.ID)
		}
	}
	return entry
}
