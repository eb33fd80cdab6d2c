package store

import (
	"github.com/Seklfreak/Guardian/cache"
	"github.com/Seklfreak/Guardian/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnavailable is returned by every operation of a store that is not configured or not connected
	ErrUnavailable = errors.New("store unavailable")
)

// Store persists member name records and immune roles, every operation is scoped to one guild
type Store interface {
	// Ready reports whether the backend is connected and usable
	Ready() bool
	// Ping performs a write then read round trip
	Ping() error

	// UpsertMemberRecord writes record for (guildID, userID). With mergeOnly the mutable fields
	// are merged into an existing record, otherwise the record is replaced.
	UpsertMemberRecord(guildID, userID string, record models.MemberNameRecord, mergeOnly bool) error
	// GetMemberRecord returns the record and false if none exists
	GetMemberRecord(guildID, userID string) (models.MemberNameRecord, bool, error)

	UpsertImmuneRole(record models.ImmuneRoleRecord) error
	DeleteImmuneRole(guildID, roleID string) error
	ListImmuneRoles(guildID string) ([]models.ImmuneRoleRecord, error)

	Close()
}

// IsUnavailable is true if err was caused by a store that is not usable
func IsUnavailable(err error) bool {
	return err != nil && errors.Cause(err) == ErrUnavailable
}

func logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "store")
}

// prepareRecord fills the key fields of record
func prepareRecord(guildID, userID string, record models.MemberNameRecord) models.MemberNameRecord {
	record.GuildID = guildID
	record.UserID = userID
	return record
}
