package guardian

import (
	"context"
	"time"

	"github.com/Seklfreak/Guardian/metrics"
	"github.com/Seklfreak/Guardian/models"
	"github.com/Seklfreak/Guardian/store"
	"github.com/pkg/errors"
	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultAuditWindow = 5
	RevertReason       = "User not authorized to change others' nicknames"
)

type Action int

const (
	// ActionNone means the display name did not change
	ActionNone Action = iota
	ActionSelfChange
	// ActionBotChange is a change performed by the bot itself, usually a revert
	ActionBotChange
	ActionAuthorized
	ActionReverted
	// ActionNothingToRevert is an unauthorized change without a different legitimate name on record
	ActionNothingToRevert
	ActionRevertFailed
	// ActionDropped means the context ended before the decision was applied
	ActionDropped
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionSelfChange:
		return "self-change"
	case ActionBotChange:
		return "bot-change"
	case ActionAuthorized:
		return "authorized"
	case ActionReverted:
		return "reverted"
	case ActionNothingToRevert:
		return "nothing-to-revert"
	case ActionRevertFailed:
		return "revert-failed"
	case ActionDropped:
		return "dropped"
	}
	return "unknown"
}

// Decision is the outcome of one HandleRename call. Err carries failures that did not change the outcome.
type Decision struct {
	Action     Action
	ActorID    string
	Attempted  string
	RevertedTo string
	Err        error
}

type Config struct {
	AuditWindow       int
	AttributionMaxAge time.Duration
}

// Guardian enforces the nickname policy: everybody may rename themselves, only the owner
// and holders of immune roles may rename others. It keeps no state of its own.
type Guardian struct {
	gateway     Gateway
	store       store.Store
	notifier    Notifier
	attribution *Attribution
	roles       *Roles
	now         func() time.Time
}

func New(gateway Gateway, recordStore store.Store, notifier Notifier, config Config) *Guardian {
	return &Guardian{
		gateway:     gateway,
		store:       recordStore,
		notifier:    notifier,
		attribution: NewAttribution(gateway, config.AuditWindow, config.AttributionMaxAge),
		roles:       NewRoles(gateway, recordStore),
		now:         time.Now,
	}
}

func (g *Guardian) Roles() *Roles {
	return g.roles
}

func (g *Guardian) Store() store.Store {
	return g.store
}

func (g *Guardian) Gateway() Gateway {
	return g.gateway
}

// RecordedMember returns member carrying its stored legitimate name. It is used as the previous
// state of member updates the gateway delivered without one.
func (g *Guardian) RecordedMember(member models.Member) (models.Member, bool, error) {
	record, found, err := g.store.GetMemberRecord(member.GuildID, member.UserID)
	if err != nil || !found {
		return member, false, err
	}
	member.Nick = record.Nickname
	return member, true, nil
}

// HandleRename applies the nickname policy to a member update. before and after must describe
// the same member of the same guild.
func (g *Guardian) HandleRename(ctx context.Context, before, after models.Member) (decision Decision) {
	decision.Attempted = after.DisplayName()
	if before.DisplayName() == after.DisplayName() {
		decision.Action = ActionNone
		return decision
	}
	metrics.RenamesObserved.Add(1)

	log := logger().WithFields(logrus.Fields{
		"event":   uuid.NewV4().String(),
		"guildID": after.GuildID,
		"userID":  after.UserID,
	})

	actorID, err := g.attribution.AttributeChange(ctx, after)
	if err != nil {
		metrics.AttributionFallbacks.Add(1)
		log.Warnf("attribution failed, treating change as self-change: %s", err.Error())
		actorID = after.UserID
	}
	decision.ActorID = actorID
	log = log.WithField("actorID", actorID)

	if ctx.Err() != nil {
		return g.drop(log, decision, ctx.Err())
	}

	switch actorID {
	case after.UserID:
		decision.Action = ActionSelfChange
		decision.Err = g.recordName(after, actorID, true)
	case g.gateway.SelfID():
		decision.Action = ActionBotChange
		decision.Err = g.recordName(after, actorID, false)
	default:
		authorized, err := g.roles.CanRenameOthers(ctx, after.GuildID, actorID)
		if err != nil {
			log.Warnf("authorization check failed, denying: %s", err.Error())
		}
		if !authorized {
			return g.revert(ctx, log, after, decision)
		}
		decision.Action = ActionAuthorized
		decision.Err = g.recordName(after, actorID, false)
	}

	metrics.RenamesAccepted.Add(1)
	if decision.Err != nil {
		log.Errorf("allowed nickname change %q -> %q (%s) but updating the record failed: %s",
			before.DisplayName(), after.DisplayName(), decision.Action, decision.Err.Error())
		return decision
	}
	log.Infof("allowed nickname change %q -> %q (%s)", before.DisplayName(), after.DisplayName(), decision.Action)
	return decision
}

func (g *Guardian) revert(ctx context.Context, log *logrus.Entry, after models.Member, decision Decision) Decision {
	previous, err := g.previousNickname(after)
	if err != nil {
		metrics.RevertFailures.Add(1)
		decision.Action = ActionRevertFailed
		decision.Err = err
		log.Errorf("can not revert nickname of %s, no legitimate name available: %s", after.DisplayName(), err.Error())
		return decision
	}

	if previous == "" || previous == after.DisplayName() {
		decision.Action = ActionNothingToRevert
		log.Infof("unauthorized nickname change to %q, nothing to revert to", after.DisplayName())
		return decision
	}

	if ctx.Err() != nil {
		return g.drop(log, decision, ctx.Err())
	}

	// records hold display names, a member that had no nickname gets it reset
	nickname := previous
	if previous == after.Username {
		nickname = ""
	}
	err = g.gateway.SetNickname(ctx, after.GuildID, after.UserID, nickname)
	if err != nil {
		metrics.RevertFailures.Add(1)
		decision.Action = ActionRevertFailed
		decision.Err = errors.Wrap(err, "reverting nickname failed")
		if IsForbidden(err) {
			log.Errorf("missing permissions to change nickname of %s", after.DisplayName())
		} else {
			log.Errorf("error reverting nickname of %s: %s", after.DisplayName(), err.Error())
		}
		return decision
	}

	metrics.RenamesReverted.Add(1)
	decision.Action = ActionReverted
	decision.RevertedTo = previous
	log.Infof("reverted nickname %q -> %q", after.DisplayName(), previous)

	g.notifier.Notify(models.RevertNotice{
		GuildID:           after.GuildID,
		Member:            after,
		ActorID:           decision.ActorID,
		ActorName:         g.actorName(ctx, after.GuildID, decision.ActorID),
		Reason:            RevertReason,
		AttemptedNickname: after.DisplayName(),
		RevertedTo:        previous,
		RevertedAt:        g.now(),
	})
	return decision
}

// previousNickname returns the stored legitimate name. Members without a record get one with
// their current name, which is then returned as there is nothing to revert to yet.
func (g *Guardian) previousNickname(member models.Member) (string, error) {
	record, found, err := g.store.GetMemberRecord(member.GuildID, member.UserID)
	if err != nil {
		return "", errors.Wrap(err, "reading member record failed")
	}
	if found {
		return record.Nickname, nil
	}

	_, err = g.InitializeMember(member)
	if err != nil {
		logger().WithField("guildID", member.GuildID).Warnf("initializing member %s failed: %s", member.UserID, err.Error())
	}
	return member.DisplayName(), nil
}

func (g *Guardian) recordName(member models.Member, actorID string, selfChange bool) error {
	return g.store.UpsertMemberRecord(member.GuildID, member.UserID, models.MemberNameRecord{
		Nickname:     member.DisplayName(),
		LastUpdated:  g.now(),
		UpdatedBy:    actorID,
		IsSelfChange: selfChange,
		Username:     member.Username,
	}, true)
}

func (g *Guardian) actorName(ctx context.Context, guildID, actorID string) string {
	actor, err := g.gateway.Member(ctx, guildID, actorID)
	if err != nil {
		return actorID
	}
	return actor.DisplayName()
}

func (g *Guardian) drop(log *logrus.Entry, decision Decision, err error) Decision {
	metrics.RenamesDropped.Add(1)
	decision.Action = ActionDropped
	decision.Err = err
	log.Warnf("dropped nickname change handling: %s", err.Error())
	return decision
}
