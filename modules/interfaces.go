package modules

import (
	"github.com/Seklfreak/Guardian/guardian"
	"github.com/bwmarrin/discordgo"
)

type Plugin interface {
	Commands() []string

	Init(session *discordgo.Session, g *guardian.Guardian)

	Action(
		command string,
		content string,
		msg *discordgo.Message,
		session *discordgo.Session,
	)
}
