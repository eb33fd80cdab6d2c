package gateway

import (
	"net/http"

	"github.com/Seklfreak/Guardian/guardian"
	"github.com/Seklfreak/Guardian/models"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// ConvertMember turns a discordgo member into a snapshot. guildID is used when the member carries none.
func ConvertMember(guildID string, member *discordgo.Member) models.Member {
	if member == nil {
		return models.Member{GuildID: guildID}
	}

	result := models.Member{
		GuildID: member.GuildID,
		Nick:    member.Nick,
		RoleIDs: append([]string{}, member.Roles...),
	}
	if result.GuildID == "" {
		result.GuildID = guildID
	}
	if member.User != nil {
		result.UserID = member.User.ID
		result.Username = member.User.Username
		result.Bot = member.User.Bot
	}
	return result
}

func ConvertGuild(guild *discordgo.Guild) models.Guild {
	result := models.Guild{
		ID:          guild.ID,
		Name:        guild.Name,
		OwnerID:     guild.OwnerID,
		MemberCount: guild.MemberCount,
		Roles:       make([]models.Role, 0, len(guild.Roles)),
	}
	for _, role := range guild.Roles {
		if role == nil {
			continue
		}
		result.Roles = append(result.Roles, models.Role{
			ID:       role.ID,
			Name:     role.Name,
			Position: role.Position,
			Managed:  role.Managed,
		})
	}
	return result
}

func ConvertAuditEntry(entry *discordgo.AuditLogEntry) models.AuditEntry {
	result := models.AuditEntry{
		ID:         entry.ID,
		ActorID:    entry.UserID,
		TargetID:   entry.TargetID,
		ChangeKeys: make([]string, 0, len(entry.Changes)),
	}
	for _, change := range entry.Changes {
		if change == nil || change.Key == nil {
			continue
		}
		result.ChangeKeys = append(result.ChangeKeys, string(*change.Key))
	}
	return result
}

// convertError maps discord API errors onto the guardian sentinel errors
func convertError(err error, message string) error {
	if err == nil {
		return nil
	}

	if restErr, ok := err.(*discordgo.RESTError); ok {
		if restErr.Message != nil {
			switch restErr.Message.Code {
			case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
				return errors.Wrap(guardian.ErrForbidden, message)
			case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownGuild, discordgo.ErrCodeUnknownRole, discordgo.ErrCodeUnknownUser:
				return errors.Wrap(guardian.ErrNotFound, message)
			}
		}
		if restErr.Response != nil {
			switch restErr.Response.StatusCode {
			case http.StatusForbidden:
				return errors.Wrap(guardian.ErrForbidden, message)
			case http.StatusNotFound:
				return errors.Wrap(guardian.ErrNotFound, message)
			}
		}
	}

	if err == discordgo.ErrStateNotFound {
		return errors.Wrap(guardian.ErrNotFound, message)
	}
	return errors.Wrap(err, message)
}
