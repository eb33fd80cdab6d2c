package store

import "github.com/Seklfreak/Guardian/models"

// Disabled is installed when no backend could be configured, every call fails with ErrUnavailable
type Disabled struct{}

func NewDisabled() *Disabled {
	return &Disabled{}
}

func (d *Disabled) Ready() bool {
	return false
}

func (d *Disabled) Ping() error {
	return ErrUnavailable
}

func (d *Disabled) UpsertMemberRecord(guildID, userID string, record models.MemberNameRecord, mergeOnly bool) error {
	return ErrUnavailable
}

func (d *Disabled) GetMemberRecord(guildID, userID string) (models.MemberNameRecord, bool, error) {
	return models.MemberNameRecord{}, false, ErrUnavailable
}

func (d *Disabled) UpsertImmuneRole(record models.ImmuneRoleRecord) error {
	return ErrUnavailable
}

func (d *Disabled) DeleteImmuneRole(guildID, roleID string) error {
	return ErrUnavailable
}

func (d *Disabled) ListImmuneRoles(guildID string) ([]models.ImmuneRoleRecord, error) {
	return nil, ErrUnavailable
}

func (d *Disabled) Close() {}
