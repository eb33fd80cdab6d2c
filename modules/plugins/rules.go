package plugins

import (
	"github.com/Seklfreak/Guardian/guardian"
	"github.com/Seklfreak/Guardian/helpers"
	"github.com/bwmarrin/discordgo"
)

// Rules explains who may change which nicknames
type Rules struct{}

func (r *Rules) Commands() []string {
	return []string{
		"rules",
		"help_guardian",
	}
}

func (r *Rules) Init(session *discordgo.Session, g *guardian.Guardian) {

}

func (r *Rules) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	defer helpers.Recover()

	sendEmbed(session, msg.ChannelID, RulesEmbed(helpers.ConfigString("bot.prefix", "!")))
}

func RulesEmbed(prefix string) *discordgo.MessageEmbed {
	embed := newEmbed(
		helpers.GetText("plugins.rules.title"),
		helpers.GetText("plugins.rules.description"),
		colorInfo,
	)
	for _, section := range []string{"always", "others", "manage", "restrictions"} {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  helpers.GetText("plugins.rules." + section + "-title"),
			Value: helpers.GetText("plugins.rules." + section),
		})
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  helpers.GetText("plugins.rules.commands-title"),
		Value: helpers.GetTextF("plugins.rules.commands", prefix),
	})
	return embed
}
