package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/Seklfreak/Guardian/guardian"
	"github.com/Seklfreak/Guardian/helpers"
	"github.com/Seklfreak/Guardian/models"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const immuneRolesListMentions = 5

// Immunity manages the roles whose members may rename other members
type Immunity struct {
	guardian *guardian.Guardian
	gateway  guardian.Gateway
}

func (i *Immunity) Commands() []string {
	return []string{
		"immune_role",
		"unimmune_role",
		"immune_roles",
		"check_permissions",
	}
}

func (i *Immunity) Init(session *discordgo.Session, g *guardian.Guardian) {
	i.guardian = g
	i.gateway = g.Gateway()
}

func (i *Immunity) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	defer helpers.Recover()

	if msg.GuildID == "" {
		return
	}

	ctx, cancel := commandContext()
	defer cancel()

	var result *discordgo.MessageEmbed
	switch command {
	case "immune_role":
		result = i.actionAdd(ctx, content, msg)
	case "unimmune_role":
		result = i.actionRemove(ctx, content, msg)
	case "immune_roles":
		result = i.actionList(ctx, msg)
	case "check_permissions":
		result = i.actionCheck(ctx, content, msg)
	}

	if result != nil {
		sendEmbed(session, msg.ChannelID, result)
	}
}

// [p]immune_role <role>
func (i *Immunity) actionAdd(ctx context.Context, args string, in *discordgo.Message) *discordgo.MessageEmbed {
	if denied := i.requireManager(ctx, in); denied != nil {
		return denied
	}
	if strings.TrimSpace(args) == "" {
		return errorEmbed(helpers.GetText("bot.arguments.too-few"))
	}

	guild, err := i.gateway.Guild(ctx, in.GuildID)
	if err != nil {
		return errorEmbed(helpers.GetTextF("bot.errors.generic", err.Error()))
	}
	role, found := helpers.GetRoleFromArgument(guild, args)
	if !found {
		return errorEmbed(helpers.GetTextF("plugins.immunity.role-not-found", strings.TrimSpace(args)))
	}

	err = i.guardian.AddImmuneRole(guild.ID, role)
	if err != nil {
		i.logger(in).Errorf("adding immune role %s failed: %s", role.ID, err.Error())
		return failureEmbed(err, helpers.GetText("plugins.immunity.added-failed"))
	}

	holders := 0
	members, err := i.gateway.Members(ctx, guild.ID)
	if err == nil {
		for _, member := range members {
			if member.HasRole(role.ID) {
				holders++
			}
		}
	}

	i.logger(in).Infof("%s added immune role %s (#%s)", in.Author.Username, role.Name, role.ID)
	return AddedEmbed(role, holders)
}

// [p]unimmune_role <role>
func (i *Immunity) actionRemove(ctx context.Context, args string, in *discordgo.Message) *discordgo.MessageEmbed {
	if denied := i.requireManager(ctx, in); denied != nil {
		return denied
	}
	if strings.TrimSpace(args) == "" {
		return errorEmbed(helpers.GetText("bot.arguments.too-few"))
	}

	guild, err := i.gateway.Guild(ctx, in.GuildID)
	if err != nil {
		return errorEmbed(helpers.GetTextF("bot.errors.generic", err.Error()))
	}

	var roleID, roleText string
	if role, found := helpers.GetRoleFromArgument(guild, args); found {
		roleID, roleText = role.ID, role.Mention()
	} else if id, ok := deletedRoleID(args); ok {
		// deleted roles can still be removed by id
		roleID, roleText = id, "`"+id+"`"
	} else {
		return errorEmbed(helpers.GetTextF("plugins.immunity.role-not-found", strings.TrimSpace(args)))
	}

	err = i.guardian.RemoveImmuneRole(guild.ID, roleID)
	if err != nil {
		i.logger(in).Errorf("removing immune role %s failed: %s", roleID, err.Error())
		return failureEmbed(err, helpers.GetText("plugins.immunity.removed-failed"))
	}

	i.logger(in).Infof("%s removed immune role #%s", in.Author.Username, roleID)
	embed := newEmbed(
		helpers.GetText("plugins.immunity.removed-title"),
		helpers.GetTextF("plugins.immunity.removed", roleText),
		colorWarning,
	)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: helpers.GetText("plugins.immunity.removed-footer")}
	return embed
}

// [p]immune_roles
func (i *Immunity) actionList(ctx context.Context, in *discordgo.Message) *discordgo.MessageEmbed {
	statuses, err := i.guardian.ListImmuneRoles(ctx, in.GuildID)
	if err != nil {
		i.logger(in).Errorf("listing immune roles failed: %s", err.Error())
		return failureEmbed(err, helpers.GetTextF("bot.errors.generic", err.Error()))
	}

	return ImmuneRolesEmbed(statuses)
}

// [p]check_permissions [member]
func (i *Immunity) actionCheck(ctx context.Context, args string, in *discordgo.Message) *discordgo.MessageEmbed {
	targetID := in.Author.ID
	if strings.TrimSpace(args) != "" {
		userID, ok := helpers.GetUserIDFromArgument(args)
		if !ok {
			return errorEmbed(helpers.GetTextF("plugins.immunity.member-not-found", strings.TrimSpace(args)))
		}
		targetID = userID
	}

	guild, err := i.gateway.Guild(ctx, in.GuildID)
	if err != nil {
		return errorEmbed(helpers.GetTextF("bot.errors.generic", err.Error()))
	}
	target, err := i.gateway.Member(ctx, guild.ID, targetID)
	if err != nil {
		return errorEmbed(helpers.GetTextF("plugins.immunity.member-not-found", targetID))
	}

	roles := i.guardian.Roles()
	check := PermissionCheck{Member: target, Owner: target.UserID == guild.OwnerID}

	check.CanManage, err = roles.CanManageImmunity(ctx, guild.ID, in.Author.ID)
	if err != nil {
		i.logger(in).Warnf("checking immunity management failed: %s", err.Error())
	}
	check.CanRenameOthers, err = roles.CanRenameOthers(ctx, guild.ID, target.UserID)
	if err != nil {
		i.logger(in).Debugf("checking rename permission of %s failed: %s", target.UserID, err.Error())
	}
	check.Immune, _ = roles.IsImmune(ctx, guild.ID, target.UserID)

	return PermissionsEmbed(check)
}

// requireManager returns the reply for members that may not manage immune roles, nil otherwise
func (i *Immunity) requireManager(ctx context.Context, in *discordgo.Message) *discordgo.MessageEmbed {
	allowed, err := i.guardian.Roles().CanManageImmunity(ctx, in.GuildID, in.Author.ID)
	if err != nil {
		i.logger(in).Warnf("checking immunity management failed: %s", err.Error())
		return errorEmbed(helpers.GetTextF("bot.errors.generic", err.Error()))
	}
	if !allowed {
		return permissionDeniedEmbed()
	}
	return nil
}

func (i *Immunity) logger(msg *discordgo.Message) *logrus.Entry {
	return pluginLogger("immunity", msg)
}

func deletedRoleID(args string) (string, bool) {
	args = strings.TrimSpace(args)
	if match := helpers.RoleRegexStrict.FindStringSubmatch(args); len(match) == 2 {
		return match[1], true
	}
	if helpers.SnowflakeRegex.MatchString(args) {
		return args, true
	}
	return "", false
}

func AddedEmbed(role models.Role, holders int) *discordgo.MessageEmbed {
	embed := newEmbed(
		helpers.GetText("plugins.immunity.added-title"),
		helpers.GetTextF("plugins.immunity.added", role.Mention()),
		colorSuccess,
	)
	embed.Fields = []*discordgo.MessageEmbedField{
		{
			Name: role.Name,
			Value: helpers.GetTextF("plugins.immunity.added-members", holders) + "\n" +
				helpers.GetTextF("plugins.immunity.added-position", role.Position),
		},
		{
			Name:  helpers.GetText("plugins.immunity.note-title"),
			Value: helpers.GetText("plugins.immunity.note"),
		},
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: helpers.GetText("plugins.immunity.added-footer")}
	return embed
}

// ImmuneRolesEmbed lists the immune roles with up to five member mentions each
func ImmuneRolesEmbed(statuses []guardian.ImmuneRoleStatus) *discordgo.MessageEmbed {
	if len(statuses) == 0 {
		return newEmbed(
			helpers.GetText("plugins.immunity.list-title"),
			helpers.GetText("plugins.immunity.list-empty"),
			colorNeutral,
		)
	}

	embed := newEmbed(
		helpers.GetText("plugins.immunity.list-title"),
		helpers.GetText("plugins.immunity.list-description"),
		colorInfo,
	)
	for _, status := range statuses {
		var value string
		if status.MemberCount() == 0 {
			value = helpers.GetText("plugins.immunity.list-no-members")
		} else {
			mentions := make([]string, 0, immuneRolesListMentions)
			for n, userID := range status.MemberIDs {
				if n >= immuneRolesListMentions {
					break
				}
				mentions = append(mentions, "<@"+userID+">")
			}
			value = strings.Join(mentions, ", ")
			if status.MemberCount() > immuneRolesListMentions {
				value += "\n" + helpers.GetTextF("plugins.immunity.list-more", status.MemberCount()-immuneRolesListMentions)
			}
		}
		if !status.Record.AddedAt.IsZero() {
			value += "\n" + helpers.GetTextF("plugins.immunity.list-added", helpers.SinceText(status.Record.AddedAt))
		}

		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  helpers.GetTextF("plugins.immunity.list-field", status.Role.Name, status.MemberCount()),
			Value: value,
		})
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  helpers.GetText("plugins.immunity.note-title"),
		Value: helpers.GetText("plugins.immunity.own-note"),
	})
	return embed
}

type PermissionCheck struct {
	Member          models.Member
	CanManage       bool
	CanRenameOthers bool
	Immune          bool
	Owner           bool
}

func (c PermissionCheck) Reason() string {
	switch {
	case c.Owner:
		return helpers.GetText("plugins.immunity.reason-owner")
	case c.Immune:
		return helpers.GetText("plugins.immunity.reason-immune")
	}
	return helpers.GetText("plugins.immunity.reason-none")
}

func PermissionsEmbed(check PermissionCheck) *discordgo.MessageEmbed {
	embed := newEmbed(
		helpers.GetTextF("plugins.immunity.permissions-title", check.Member.DisplayName()),
		"",
		colorInfo,
	)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: helpers.GetText("plugins.immunity.permissions-manage"), Value: helpers.GetBoolText(check.CanManage), Inline: true},
		{Name: helpers.GetText("plugins.immunity.permissions-others"), Value: helpers.GetBoolText(check.CanRenameOthers), Inline: true},
		{Name: helpers.GetText("plugins.immunity.permissions-own"), Value: helpers.GetText("plugins.immunity.permissions-own-value"), Inline: true},
		{Name: helpers.GetText("plugins.immunity.permissions-immune"), Value: helpers.GetBoolText(check.Immune), Inline: true},
		{Name: helpers.GetText("plugins.immunity.permissions-owner"), Value: helpers.GetBoolText(check.Owner), Inline: true},
		{Name: helpers.GetText("plugins.immunity.permissions-reason"), Value: fmt.Sprintf("**%s**", check.Reason())},
	}
	return embed
}
