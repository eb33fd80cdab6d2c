package guardian

import (
	"context"

	"github.com/Seklfreak/Guardian/models"
	"github.com/Seklfreak/Guardian/store"
	"github.com/pkg/errors"
)

// ImmuneRoleStatus is an immune role that still exists, with its current holders
type ImmuneRoleStatus struct {
	Record    models.ImmuneRoleRecord
	Role      models.Role
	MemberIDs []string
}

func (s ImmuneRoleStatus) MemberCount() int {
	return len(s.MemberIDs)
}

// AddImmuneRole allows all current holders of role to rename other members. Any role may be added.
func (g *Guardian) AddImmuneRole(guildID string, role models.Role) error {
	if !g.store.Ready() {
		return store.ErrUnavailable
	}

	err := g.store.UpsertImmuneRole(models.ImmuneRoleRecord{
		GuildID:  guildID,
		RoleID:   role.ID,
		RoleName: role.Name,
		AddedAt:  g.now(),
	})
	if err != nil {
		return err
	}

	logger().WithField("guildID", guildID).Infof("added immune role: %s (#%s)", role.Name, role.ID)
	return nil
}

func (g *Guardian) RemoveImmuneRole(guildID, roleID string) error {
	if !g.store.Ready() {
		return store.ErrUnavailable
	}

	err := g.store.DeleteImmuneRole(guildID, roleID)
	if err != nil {
		return err
	}

	logger().WithField("guildID", guildID).Infof("removed immune role #%s", roleID)
	return nil
}

// ListImmuneRoles returns the immune roles that still exist in the guild, ordered by the time they were added
func (g *Guardian) ListImmuneRoles(ctx context.Context, guildID string) ([]ImmuneRoleStatus, error) {
	if !g.store.Ready() {
		return nil, store.ErrUnavailable
	}

	records, err := g.store.ListImmuneRoles(guildID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []ImmuneRoleStatus{}, nil
	}

	guild, err := g.gateway.Guild(ctx, guildID)
	if err != nil {
		return nil, errors.Wrap(err, "getting guild failed")
	}
	members, err := g.gateway.Members(ctx, guildID)
	if err != nil {
		return nil, errors.Wrap(err, "getting members failed")
	}

	result := make([]ImmuneRoleStatus, 0, len(records))
	for _, record := range records {
		role, ok := guild.Role(record.RoleID)
		if !ok {
			continue
		}

		status := ImmuneRoleStatus{Record: record, Role: role, MemberIDs: make([]string, 0)}
		for _, member := range members {
			if member.HasRole(role.ID) {
				status.MemberIDs = append(status.MemberIDs, member.UserID)
			}
		}
		result = append(result, status)
	}
	return result, nil
}
