package gateway

import (
	"strings"

	"github.com/Seklfreak/Guardian/helpers"
	"github.com/Seklfreak/Guardian/metrics"
	"github.com/Seklfreak/Guardian/models"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const notificationColor = 0xffa500

// ChannelNotifier posts revert notices into the text channel with the configured name
type ChannelNotifier struct {
	session     *discordgo.Session
	channelName string
}

func NewChannelNotifier(session *discordgo.Session, channelName string) *ChannelNotifier {
	return &ChannelNotifier{session: session, channelName: strings.TrimPrefix(channelName, "#")}
}

// Notify sends the notice in the background, failures are only logged
func (n *ChannelNotifier) Notify(notice models.RevertNotice) {
	go func() {
		defer helpers.Recover()

		log := logger().WithFields(logrus.Fields{"guildID": notice.GuildID, "userID": notice.Member.UserID})

		channelID, found := n.findChannel(notice.GuildID)
		if !found {
			log.Debugf("no #%s channel, skipping revert notification", n.channelName)
			return
		}

		_, err := n.session.ChannelMessageSendEmbed(channelID, NoticeEmbed(notice))
		if err != nil {
			metrics.NotificationsFailed.Add(1)
			log.Warnf("sending revert notification failed: %s", err.Error())
			return
		}
		metrics.NotificationsSent.Add(1)
	}()
}

func (n *ChannelNotifier) findChannel(guildID string) (string, bool) {
	channels := make([]*discordgo.Channel, 0)

	guild, err := n.session.State.Guild(guildID)
	if err == nil && guild != nil {
		n.session.State.RLock()
		channels = append(channels, guild.Channels...)
		n.session.State.RUnlock()
	} else {
		channels, err = n.session.GuildChannels(guildID)
		if err != nil {
			return "", false
		}
	}

	return FindTextChannel(channels, n.channelName)
}

// FindTextChannel returns the id of the first text channel called name
func FindTextChannel(channels []*discordgo.Channel, name string) (string, bool) {
	for _, channel := range channels {
		if channel == nil || channel.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if strings.EqualFold(channel.Name, name) {
			return channel.ID, true
		}
	}
	return "", false
}

func NoticeEmbed(notice models.RevertNotice) *discordgo.MessageEmbed {
	actor := "<@" + notice.ActorID + ">"
	if notice.ActorName != "" && notice.ActorName != notice.ActorID {
		actor += " (" + notice.ActorName + ")"
	}

	return &discordgo.MessageEmbed{
		Title:     helpers.GetText("plugins.notification.title"),
		Color:     notificationColor,
		Timestamp: notice.RevertedAt.Format("2006-01-02T15:04:05Z07:00"),
		Fields: []*discordgo.MessageEmbedField{
			{Name: helpers.GetText("plugins.notification.user"), Value: notice.Member.Mention(), Inline: true},
			{Name: helpers.GetText("plugins.notification.changed-by"), Value: actor, Inline: true},
			{Name: helpers.GetText("plugins.notification.reason"), Value: notice.Reason},
			{Name: helpers.GetText("plugins.notification.attempted"), Value: embedValue(notice.AttemptedNickname), Inline: true},
			{Name: helpers.GetText("plugins.notification.reverted-to"), Value: embedValue(notice.RevertedTo), Inline: true},
		},
	}
}

func embedValue(text string) string {
	if text == "" {
		return "-"
	}
	return helpers.Truncate(text, 1024)
}
