package guardian

import (
	"context"

	"github.com/Seklfreak/Guardian/metrics"
	"github.com/Seklfreak/Guardian/models"
	"github.com/Seklfreak/Guardian/store"
	"github.com/pkg/errors"
)

// InitializeAllMembers stores the current display name of every guild member without a record.
// Existing records are never touched, they only change on accepted renames.
func (g *Guardian) InitializeAllMembers(ctx context.Context, guildID string) (int, error) {
	if !g.store.Ready() {
		return 0, store.ErrUnavailable
	}

	members, err := g.gateway.Members(ctx, guildID)
	if err != nil {
		return 0, errors.Wrap(err, "getting members failed")
	}

	var seeded, failed int
	for _, member := range members {
		if ctx.Err() != nil {
			return seeded, ctx.Err()
		}

		written, err := g.InitializeMember(member)
		if err != nil {
			failed++
			logger().WithField("guildID", guildID).Debugf("initializing member %s failed: %s", member.UserID, err.Error())
			continue
		}
		if written {
			seeded++
		}
	}

	metrics.MembersSeeded.Add(int64(seeded))
	if failed > 0 {
		return seeded, errors.Errorf("initializing %d of %d members failed", failed, len(members))
	}
	return seeded, nil
}

// InitializeMember creates the record of member with its current display name.
// It does nothing if the member already has a record.
func (g *Guardian) InitializeMember(member models.Member) (bool, error) {
	_, found, err := g.store.GetMemberRecord(member.GuildID, member.UserID)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}

	err = g.store.UpsertMemberRecord(member.GuildID, member.UserID, models.MemberNameRecord{
		Nickname:     member.DisplayName(),
		LastUpdated:  g.now(),
		UpdatedBy:    member.UserID,
		IsSelfChange: true,
		Username:     member.Username,
	}, true)
	if err != nil {
		return false, err
	}
	return true, nil
}
