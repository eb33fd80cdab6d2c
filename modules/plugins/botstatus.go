package plugins

import (
	"context"
	"strconv"
	"time"

	"github.com/Seklfreak/Guardian/guardian"
	"github.com/Seklfreak/Guardian/helpers"
	"github.com/Seklfreak/Guardian/metrics"
	"github.com/Seklfreak/Guardian/store"
	"github.com/Seklfreak/Guardian/version"
	"github.com/bwmarrin/discordgo"
)

// BotStatus reports the health of the bot and its store
type BotStatus struct {
	guardian *guardian.Guardian
	gateway  guardian.Gateway
}

func (bs *BotStatus) Commands() []string {
	return []string{
		"bot_status",
		"test_store",
		"test_firebase",
	}
}

func (bs *BotStatus) Init(session *discordgo.Session, g *guardian.Guardian) {
	bs.guardian = g
	bs.gateway = g.Gateway()
}

func (bs *BotStatus) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	defer helpers.Recover()

	switch command {
	case "bot_status":
		if msg.GuildID == "" {
			return
		}

		ctx, cancel := commandContext()
		defer cancel()

		sendEmbed(session, msg.ChannelID, StatusEmbed(bs.collectStatus(ctx, msg.GuildID)))
	case "test_store", "test_firebase":
		_, err := session.ChannelMessageSend(msg.ChannelID, StoreTestText(bs.guardian.Store()))
		helpers.RelaxLog(err)
	}
}

type Status struct {
	StoreReady   bool
	Backend      string
	ImmuneRoles  int
	HighestRole  string
	GuildName    string
	MemberCount  int
	StartedAt    time.Time
	BuildVersion string
}

func (bs *BotStatus) collectStatus(ctx context.Context, guildID string) Status {
	status := Status{
		StoreReady:   bs.guardian.Store().Ready(),
		Backend:      helpers.ConfigString("storage.backend", "mongodb"),
		BuildVersion: version.Version,
	}
	if uptime := metrics.Uptime.Value(); uptime > 0 {
		status.StartedAt = time.Unix(uptime, 0)
	}

	if status.StoreReady {
		records, err := bs.guardian.Store().ListImmuneRoles(guildID)
		if err == nil {
			status.ImmuneRoles = len(records)
		}
	}

	role, found, err := bs.guardian.Roles().BotHighestRole(ctx, guildID)
	if err == nil && found {
		status.HighestRole = role.Name
	}

	guild, err := bs.gateway.Guild(ctx, guildID)
	if err == nil {
		status.GuildName = guild.Name
		status.MemberCount = guild.MemberCount
	}
	return status
}

func StatusEmbed(status Status) *discordgo.MessageEmbed {
	storeText := helpers.GetText("plugins.status.store-disconnected")
	if status.StoreReady {
		storeText = helpers.GetTextF("plugins.status.store-connected", status.Backend)
	}
	highestRole := status.HighestRole
	if highestRole == "" {
		highestRole = helpers.GetText("plugins.status.none")
	}
	startedAt := helpers.SinceText(status.StartedAt)

	embed := newEmbed(helpers.GetText("plugins.status.title"), "", colorInfo)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: helpers.GetText("plugins.status.store"), Value: storeText, Inline: true},
		{Name: helpers.GetText("plugins.status.immune-roles"), Value: helpers.GetTextF("plugins.status.immune-roles-value", status.ImmuneRoles), Inline: true},
		{Name: helpers.GetText("plugins.status.highest-role"), Value: highestRole, Inline: true},
		{Name: helpers.GetText("plugins.status.guild"), Value: embedText(status.GuildName), Inline: true},
		{Name: helpers.GetText("plugins.status.members"), Value: strconv.Itoa(status.MemberCount), Inline: true},
		{Name: helpers.GetText("plugins.status.uptime"), Value: startedAt, Inline: true},
		{Name: helpers.GetText("plugins.status.version"), Value: embedText(status.BuildVersion), Inline: true},
	}
	return embed
}

// StoreTestText runs a write then read round trip on st and describes the result
func StoreTestText(st store.Store) string {
	if !st.Ready() {
		return helpers.GetText("plugins.status.test-disconnected")
	}

	err := st.Ping()
	if err != nil {
		return helpers.GetTextF("plugins.status.test-failed", err.Error())
	}
	return helpers.GetText("plugins.status.test-ok")
}

func embedText(text string) string {
	if text == "" {
		return "-"
	}
	return text
}
