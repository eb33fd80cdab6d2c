package guardian

import (
	"context"
	"time"

	"github.com/Seklfreak/Guardian/helpers"
	"github.com/Seklfreak/Guardian/metrics"
	"github.com/Seklfreak/Guardian/models"
	"github.com/pkg/errors"
)

// Attribution finds out who changed the nickname of a member by reading the audit log
type Attribution struct {
	gateway Gateway
	window  int
	maxAge  time.Duration
	now     func() time.Time
}

func NewAttribution(gateway Gateway, window int, maxAge time.Duration) *Attribution {
	if window <= 0 {
		window = DefaultAuditWindow
	}
	return &Attribution{
		gateway: gateway,
		window:  window,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// AttributeChange returns the id of the user who performed the latest nickname change of member.
// Without a matching audit log entry the member itself is returned. If the audit log can not be
// read the member itself is returned together with the error.
func (a *Attribution) AttributeChange(ctx context.Context, member models.Member) (string, error) {
	entries, err := a.gateway.RecentMemberUpdates(ctx, member.GuildID, a.window)
	metrics.AuditLogRequests.Add(1)
	if err != nil {
		return member.UserID, errors.Wrap(err, "reading audit log failed")
	}

	var latest *models.AuditEntry
	for i := range entries {
		entry := entries[i]
		if entry.TargetID != member.UserID || entry.ActorID == "" {
			continue
		}
		if !entry.TouchesNickname() {
			continue
		}
		if a.maxAge > 0 && a.now().Sub(helpers.GetTimeFromSnowflake(entry.ID)) > a.maxAge {
			continue
		}
		if latest == nil || helpers.SnowflakeAfter(entry.ID, latest.ID) {
			latest = &entries[i]
		}
	}

	if latest == nil {
		return member.UserID, nil
	}
	return latest.ActorID, nil
}
