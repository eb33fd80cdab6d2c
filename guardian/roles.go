package guardian

import (
	"context"

	"github.com/Seklfreak/Guardian/models"
	"github.com/Seklfreak/Guardian/store"
	"github.com/pkg/errors"
)

// Roles answers privilege questions. Nothing is cached, every call reads the live
// role assignments and the stored immune roles.
type Roles struct {
	gateway Gateway
	store   store.Store
}

func NewRoles(gateway Gateway, recordStore store.Store) *Roles {
	return &Roles{gateway: gateway, store: recordStore}
}

// BotHighestRole returns the highest role of the bot, false if the bot has no roles
func (r *Roles) BotHighestRole(ctx context.Context, guildID string) (models.Role, bool, error) {
	guild, err := r.gateway.Guild(ctx, guildID)
	if err != nil {
		return models.Role{}, false, errors.Wrap(err, "getting guild failed")
	}

	self, err := r.gateway.Member(ctx, guildID, r.gateway.SelfID())
	if err != nil {
		return models.Role{}, false, errors.Wrap(err, "getting bot member failed")
	}

	role, found := guild.HighestRole(self)
	return role, found, nil
}

// CanManageImmunity is true for the guild owner and for members whose highest role is above the highest role of the bot
func (r *Roles) CanManageImmunity(ctx context.Context, guildID, actorID string) (bool, error) {
	guild, err := r.gateway.Guild(ctx, guildID)
	if err != nil {
		return false, errors.Wrap(err, "getting guild failed")
	}
	if actorID == guild.OwnerID {
		return true, nil
	}

	self, err := r.gateway.Member(ctx, guildID, r.gateway.SelfID())
	if err != nil {
		return false, errors.Wrap(err, "getting bot member failed")
	}
	botHighest, found := guild.HighestRole(self)
	if !found {
		return false, nil
	}

	actor, err := r.gateway.Member(ctx, guildID, actorID)
	if err != nil {
		return false, errors.Wrap(err, "getting actor failed")
	}
	actorHighest, found := guild.HighestRole(actor)
	if !found {
		return false, nil
	}

	return actorHighest.Position > botHighest.Position, nil
}

// CanRenameOthers is true for the guild owner and for members holding an immune role
func (r *Roles) CanRenameOthers(ctx context.Context, guildID, actorID string) (bool, error) {
	guild, err := r.gateway.Guild(ctx, guildID)
	if err != nil {
		return false, errors.Wrap(err, "getting guild failed")
	}
	if actorID == guild.OwnerID {
		return true, nil
	}

	return r.IsImmune(ctx, guildID, actorID)
}

// IsImmune is true if the member currently holds one of the immune roles of the guild
func (r *Roles) IsImmune(ctx context.Context, guildID, userID string) (bool, error) {
	if !r.store.Ready() {
		return false, store.ErrUnavailable
	}

	immuneRoles, err := r.store.ListImmuneRoles(guildID)
	if err != nil {
		return false, errors.Wrap(err, "listing immune roles failed")
	}
	if len(immuneRoles) == 0 {
		return false, nil
	}

	member, err := r.gateway.Member(ctx, guildID, userID)
	if err != nil {
		return false, errors.Wrap(err, "getting member failed")
	}

	for _, immuneRole := range immuneRoles {
		if member.HasRole(immuneRole.RoleID) {
			return true, nil
		}
	}
	return false, nil
}
