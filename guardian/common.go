package guardian

import (
	"context"

	"github.com/Seklfreak/Guardian/cache"
	"github.com/Seklfreak/Guardian/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrForbidden is returned by a Gateway when the bot lacks the permission for a request
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned by a Gateway for unknown guilds, members or roles
	ErrNotFound = errors.New("not found")
)

// Gateway is the live view on discord the guardian works against.
// Implementations must not cache role assignments beyond what the gateway state keeps current.
type Gateway interface {
	SelfID() string
	Guild(ctx context.Context, guildID string) (models.Guild, error)
	Member(ctx context.Context, guildID, userID string) (models.Member, error)
	Members(ctx context.Context, guildID string) ([]models.Member, error)
	// RecentMemberUpdates returns up to limit member update audit log entries, most recent first
	RecentMemberUpdates(ctx context.Context, guildID string, limit int) ([]models.AuditEntry, error)
	// SetNickname sets the nickname of a member, an empty nickname resets it
	SetNickname(ctx context.Context, guildID, userID, nickname string) error
}

// Notifier receives revert notices. Notify must not block the caller.
type Notifier interface {
	Notify(notice models.RevertNotice)
}

// IsForbidden is true if err was caused by missing permissions
func IsForbidden(err error) bool {
	return err != nil && errors.Cause(err) == ErrForbidden
}

func IsNotFound(err error) bool {
	return err != nil && errors.Cause(err) == ErrNotFound
}

func logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "guardian")
}
