package gateway

import (
	"context"

	"github.com/Seklfreak/Guardian/cache"
	"github.com/Seklfreak/Guardian/models"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const membersPageSize = 1000

// Discord implements guardian.Gateway on top of a discordgo session.
// Lookups prefer the session state and fall back to the REST API.
type Discord struct {
	session *discordgo.Session
}

func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

func (d *Discord) SelfID() string {
	if d.session.State == nil || d.session.State.User == nil {
		return ""
	}
	return d.session.State.User.ID
}

func (d *Discord) Guild(ctx context.Context, guildID string) (models.Guild, error) {
	guild, err := d.session.State.Guild(guildID)
	if err != nil || guild == nil {
		guild, err = d.session.Guild(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return models.Guild{}, convertError(err, "getting guild "+guildID+" failed")
		}
	}
	return ConvertGuild(guild), nil
}

func (d *Discord) Member(ctx context.Context, guildID, userID string) (models.Member, error) {
	member, err := d.session.State.Member(guildID, userID)
	if err != nil || member == nil {
		member, err = d.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		if err != nil {
			return models.Member{}, convertError(err, "getting member "+userID+" failed")
		}
		d.trackMember(guildID, member)
	}
	return ConvertMember(guildID, member), nil
}

// Members returns all members of the guild. The state is used if it holds the complete member list.
func (d *Discord) Members(ctx context.Context, guildID string) ([]models.Member, error) {
	if result, ok := d.stateMembers(guildID); ok {
		return result, nil
	}

	result := make([]models.Member, 0)
	var after string
	for {
		page, err := d.session.GuildMembers(guildID, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return result, convertError(err, "getting members of "+guildID+" failed")
		}
		for _, member := range page {
			result = append(result, ConvertMember(guildID, member))
			d.trackMember(guildID, member)
		}
		if len(page) < membersPageSize {
			break
		}
		after = page[len(page)-1].User.ID
	}

	logger().WithFields(logrus.Fields{"guildID": guildID, "members": len(result)}).Debug("requested guild members")
	return result, nil
}

// stateMembers reads the member list from the state, ok is false unless the state holds all members
func (d *Discord) stateMembers(guildID string) ([]models.Member, bool) {
	guild, err := d.session.State.Guild(guildID)
	if err != nil || guild == nil {
		return nil, false
	}

	d.session.State.RLock()
	defer d.session.State.RUnlock()

	if guild.MemberCount == 0 || len(guild.Members) < guild.MemberCount {
		return nil, false
	}
	result := make([]models.Member, 0, len(guild.Members))
	for _, member := range guild.Members {
		result = append(result, ConvertMember(guildID, member))
	}
	return result, true
}

// trackMember adds a member fetched over REST to the state, so its next update carries the previous state
func (d *Discord) trackMember(guildID string, member *discordgo.Member) {
	if d.session.State == nil || !d.session.StateEnabled || member == nil {
		return
	}
	if member.GuildID == "" {
		member.GuildID = guildID
	}
	err := d.session.State.MemberAdd(member)
	if err != nil {
		logger().WithField("guildID", guildID).Debugf("adding member to state failed: %s", err.Error())
	}
}

func (d *Discord) RecentMemberUpdates(ctx context.Context, guildID string, limit int) ([]models.AuditEntry, error) {
	auditLog, err := d.session.GuildAuditLog(guildID, "", "", int(discordgo.AuditLogActionMemberUpdate), limit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, convertError(err, "reading audit log of "+guildID+" failed")
	}

	result := make([]models.AuditEntry, 0, len(auditLog.AuditLogEntries))
	for _, entry := range auditLog.AuditLogEntries {
		if entry == nil {
			continue
		}
		result = append(result, ConvertAuditEntry(entry))
	}
	return result, nil
}

func (d *Discord) SetNickname(ctx context.Context, guildID, userID, nickname string) error {
	err := d.session.GuildMemberNickname(guildID, userID, nickname, discordgo.WithContext(ctx))
	return convertError(err, "setting nickname of "+userID+" failed")
}

func logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "gateway")
}
