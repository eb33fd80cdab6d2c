package guardian

import (
	"context"
	"testing"
	"time"

	"github.com/Seklfreak/Guardian/models"
	"github.com/Seklfreak/Guardian/store"
	"github.com/pkg/errors"
)

func newTestGuardian(t *testing.T) (*Guardian, *fakeGateway, *store.MemoryStore, *fakeNotifier) {
	gateway := newFakeGateway()
	recordStore := store.NewMemoryStore()
	notifier := &fakeNotifier{}

	g := New(gateway, recordStore, notifier, Config{AuditWindow: 5})

	_, err := g.InitializeAllMembers(context.Background(), testGuildID)
	if err != nil {
		t.Fatalf("InitializeAllMembers() failed: %s", err)
	}
	return g, gateway, recordStore, notifier
}

func TestHandleRenameSelfChangeAlwaysAccepted(t *testing.T) {
	g, gateway, recordStore, notifier := newTestGuardian(t)

	// no immune roles at all, no audit log entry
	before := gateway.members[testMemberM]
	decision := g.HandleRename(context.Background(), before, renamed(before, "Alicia"))

	if decision.Action != ActionSelfChange {
		t.Fatalf("expected self-change, got %s", decision.Action)
	}
	if len(gateway.nicknames) != 0 || len(notifier.notices) != 0 {
		t.Fatalf("self-change must never be reverted")
	}

	record, _, _ := recordStore.GetMemberRecord(testGuildID, testMemberM)
	if record.Nickname != "Alicia" || !record.IsSelfChange || record.UpdatedBy != testMemberM {
		t.Fatalf("record not updated for self-change: %+v", record)
	}
}

func TestHandleRenameSelfChangeAttributedThroughAuditLog(t *testing.T) {
	g, gateway, _, _ := newTestGuardian(t)
	gateway.renamedBy(testMemberM, testMemberM, "1000")

	before := gateway.members[testMemberM]
	decision := g.HandleRename(context.Background(), before, renamed(before, "Alicia"))

	if decision.Action != ActionSelfChange || len(gateway.nicknames) != 0 {
		t.Fatalf("expected accepted self-change, got %s", decision.Action)
	}
}

func TestHandleRenameOwnerAccepted(t *testing.T) {
	g, gateway, recordStore, _ := newTestGuardian(t)
	gateway.renamedBy(testOwnerID, testMemberM, "1000")

	before := gateway.members[testMemberM]
	decision := g.HandleRename(context.Background(), before, renamed(before, "Bob"))

	if decision.Action != ActionAuthorized {
		t.Fatalf("expected authorized change, got %s", decision.Action)
	}
	record, _, _ := recordStore.GetMemberRecord(testGuildID, testMemberM)
	if record.Nickname != "Bob" || record.IsSelfChange || record.UpdatedBy != testOwnerID {
		t.Fatalf("record not updated for owner change: %+v", record)
	}
}

func TestHandleRenameUnauthorizedReverted(t *testing.T) {
	g, gateway, recordStore, notifier := newTestGuardian(t)
	gateway.renamedBy(testActorA, testMemberM, "1000")

	before := gateway.members[testMemberM]
	decision := g.HandleRename(context.Background(), before, renamed(before, "Bob"))

	if decision.Action != ActionReverted || decision.RevertedTo != "Alice" {
		t.Fatalf("expected revert to Alice, got %s (%q), err: %v", decision.Action, decision.RevertedTo, decision.Err)
	}
	if len(gateway.nicknames) != 1 || gateway.nicknames[0].nickname != "Alice" || gateway.nicknames[0].userID != testMemberM {
		t.Fatalf("unexpected nickname calls: %+v", gateway.nicknames)
	}

	if len(notifier.notices) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.notices))
	}
	notice := notifier.notices[0]
	if notice.Member.UserID != testMemberM || notice.ActorID != testActorA ||
		notice.AttemptedNickname != "Bob" || notice.RevertedTo != "Alice" || notice.Reason != RevertReason {
		t.Fatalf("unexpected notification: %+v", notice)
	}

	record, _, _ := recordStore.GetMemberRecord(testGuildID, testMemberM)
	if record.Nickname != "Alice" {
		t.Fatalf("record must keep the legitimate name, got %q", record.Nickname)
	}
}

func TestHandleRenameImmuneRoleAccepted(t *testing.T) {
	g, gateway, recordStore, notifier := newTestGuardian(t)
	gateway.setRoles(testActorA, testRoleR)
	err := g.AddImmuneRole(testGuildID, models.Role{ID: testRoleR, Name: "Mods"})
	if err != nil {
		t.Fatalf("AddImmuneRole() failed: %s", err)
	}
	gateway.renamedBy(testActorA, testMemberM, "1000")

	before := gateway.members[testMemberM]
	decision := g.HandleRename(context.Background(), before, renamed(before, "Bob"))

	if decision.Action != ActionAuthorized {
		t.Fatalf("expected authorized change, got %s", decision.Action)
	}
	if len(gateway.nicknames) != 0 || len(notifier.notices) != 0 {
		t.Fatalf("authorized change must not be reverted")
	}
	record, _, _ := recordStore.GetMemberRecord(testGuildID, testMemberM)
	if record.Nickname != "Bob" || record.UpdatedBy != testActorA || record.IsSelfChange {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestHandleRenameImmunityIsLive(t *testing.T) {
	g, gateway, _, _ := newTestGuardian(t)
	gateway.setRoles(testActorA, testRoleR)
	g.AddImmuneRole(testGuildID, models.Role{ID: testRoleR, Name: "Mods"})

	gateway.renamedBy(testActorA, testMemberM, "1000")
	before := gateway.members[testMemberM]
	decision := g.HandleRename(context.Background(), before, renamed(before, "Bob"))
	if decision.Action != ActionAuthorized {
		t.Fatalf("first rename should be authorized, got %s", decision.Action)
	}

	gateway.setRoles(testActorA)

	gateway.renamedBy(testActorA, testMemberM, "1001")
	before = renamed(gateway.members[testMemberM], "Bob")
	decision = g.HandleRename(context.Background(), before, renamed(before, "Carol"))
	if decision.Action != ActionReverted || decision.RevertedTo != "Bob" {
		t.Fatalf("second rename should be reverted to Bob, got %s (%q)", decision.Action, decision.RevertedTo)
	}
}

func TestHandleRenameBotOwnChangeAccepted(t *testing.T) {
	g, gateway, recordStore, notifier := newTestGuardian(t)
	gateway.renamedBy(testBotID, testMemberM, "1000")

	before := renamed(gateway.members[testMemberM], "Bob")
	decision := g.HandleRename(context.Background(), before, renamed(before, "Alice"))

	if decision.Action != ActionBotChange {
		t.Fatalf("expected bot change, got %s", decision.Action)
	}
	if len(gateway.nicknames) != 0 || len(notifier.notices) != 0 {
		t.Fatalf("the bot must not revert its own changes")
	}
	record, _, _ := recordStore.GetMemberRecord(testGuildID, testMemberM)
	if record.Nickname != "Alice" || record.UpdatedBy != testBotID {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestHandleRenameAttributionForbiddenFallsBackToSelf(t *testing.T) {
	g, gateway, _, _ := newTestGuardian(t)
	gateway.auditErr = errors.Wrap(ErrForbidden, "audit log")

	before := gateway.members[testMemberM]
	decision := g.HandleRename(context.Background(), before, renamed(before, "Bob"))

	if decision.Action != ActionSelfChange || decision.ActorID != testMemberM {
		t.Fatalf("expected self attribution, got %s by %s", decision.Action, decision.ActorID)
	}
	if len(gateway.nicknames) != 0 {
		t.Fatalf("no revert expected without attribution")
	}
}

func TestHandleRenameRevertFailureKeepsRecord(t *testing.T) {
	g, gateway, recordStore, notifier := newTestGuardian(t)
	gateway.renamedBy(testActorA, testMemberM, "1000")
	gateway.nicknameErr = errors.Wrap(ErrForbidden, "editing member")

	before := gateway.members[testMemberM]
	decision := g.HandleRename(context.Background(), before, renamed(before, "Bob"))

	if decision.Action != ActionRevertFailed || !IsForbidden(decision.Err) {
		t.Fatalf("expected forbidden revert failure, got %s (%v)", decision.Action, decision.Err)
	}
	if len(notifier.notices) != 0 {
		t.Fatalf("failed reverts must not be announced")
	}
	record, _, _ := recordStore.GetMemberRecord(testGuildID, testMemberM)
	if record.Nickname != "Alice" {
		t.Fatalf("record must keep the legitimate name, got %q", record.Nickname)
	}
}

func TestHandleRenameRevertResetsNicknameToUsername(t *testing.T) {
	g, gateway, _, _ := newTestGuardian(t)
	gateway.renamedBy(testMemberM, testActorA, "1000")

	// a has no nickname, the record holds the username
	before := gateway.members[testActorA]
	decision := g.HandleRename(context.Background(), before, renamed(before, "Hacked"))

	if decision.Action != ActionReverted || decision.RevertedTo != "a" {
		t.Fatalf("expected revert to a, got %s (%q), err: %v", decision.Action, decision.RevertedTo, decision.Err)
	}
	if len(gateway.nicknames) != 1 || gateway.nicknames[0].nickname != "" {
		t.Fatalf("expected the nickname to be reset, got %+v", gateway.nicknames)
	}
}

func TestInitializeAllMembersKeepsRecordAfterFailedRevert(t *testing.T) {
	g, gateway, recordStore, _ := newTestGuardian(t)
	gateway.renamedBy(testActorA, testMemberM, "1000")
	gateway.nicknameErr = errors.Wrap(ErrForbidden, "editing member")

	before := gateway.members[testMemberM]
	after := renamed(before, "Bob")
	decision := g.HandleRename(context.Background(), before, after)
	if decision.Action != ActionRevertFailed {
		t.Fatalf("expected revert failure, got %s", decision.Action)
	}

	// the gateway now reports the unauthorized name
	gateway.Lock()
	gateway.members[testMemberM] = after
	gateway.Unlock()

	seeded, err := g.InitializeAllMembers(context.Background(), testGuildID)
	if err != nil {
		t.Fatalf("InitializeAllMembers() failed: %s", err)
	}
	if seeded != 0 {
		t.Fatalf("existing records must not be rewritten, wrote %d", seeded)
	}
	record, _, _ := recordStore.GetMemberRecord(testGuildID, testMemberM)
	if record.Nickname != "Alice" || record.UpdatedBy != testMemberM {
		t.Fatalf("legitimate name was replaced: %+v", record)
	}
}

func TestRecordedMember(t *testing.T) {
	g, gateway, _, _ := newTestGuardian(t)

	current := renamed(gateway.members[testMemberM], "Bob")
	previous, found, err := g.RecordedMember(current)
	if err != nil || !found {
		t.Fatalf("RecordedMember() failed: %v (found %v)", err, found)
	}
	if previous.DisplayName() != "Alice" || previous.UserID != testMemberM {
		t.Fatalf("unexpected previous member: %+v", previous)
	}

	unknown := models.Member{GuildID: testGuildID, UserID: "999", Username: "x"}
	_, found, err = g.RecordedMember(unknown)
	if err != nil || found {
		t.Fatalf("unknown member should have no record, found %v err %v", found, err)
	}
}

func TestHandleRenameWithoutRecordSeedsCurrentName(t *testing.T) {
	gateway := newFakeGateway()
	recordStore := store.NewMemoryStore()
	notifier := &fakeNotifier{}
	g := New(gateway, recordStore, notifier, Config{})
	gateway.renamedBy(testActorA, testMemberM, "1000")

	before := gateway.members[testMemberM]
	decision := g.HandleRename(context.Background(), before, renamed(before, "Bob"))

	if decision.Action != ActionNothingToRevert {
		t.Fatalf("expected nothing to revert, got %s", decision.Action)
	}
	if len(gateway.nicknames) != 0 {
		t.Fatalf("no revert expected without a record")
	}
	record, found, _ := recordStore.GetMemberRecord(testGuildID, testMemberM)
	if !found || record.Nickname != "Bob" {
		t.Fatalf("member should have been initialized with the current name, got %+v", record)
	}
}

func TestHandleRenameUnchangedDisplayName(t *testing.T) {
	g, gateway, _, _ := newTestGuardian(t)
	gateway.renamedBy(testActorA, testMemberM, "1000")

	member := gateway.members[testMemberM]
	decision := g.HandleRename(context.Background(), member, member)

	if decision.Action != ActionNone || len(gateway.nicknames) != 0 {
		t.Fatalf("identical display names must be a no-op, got %s", decision.Action)
	}
}

func TestHandleRenameStoreUnavailable(t *testing.T) {
	gateway := newFakeGateway()
	notifier := &fakeNotifier{}
	g := New(gateway, store.NewDisabled(), notifier, Config{})
	gateway.renamedBy(testActorA, testMemberM, "1000")

	before := gateway.members[testMemberM]
	decision := g.HandleRename(context.Background(), before, renamed(before, "Bob"))
	if decision.Action != ActionRevertFailed || decision.Err == nil {
		t.Fatalf("expected revert failure without store, got %s", decision.Action)
	}

	gateway.renamedBy(testMemberM, testMemberM, "1001")
	decision = g.HandleRename(context.Background(), before, renamed(before, "Alicia"))
	if decision.Action != ActionSelfChange || errors.Cause(decision.Err) != store.ErrUnavailable {
		t.Fatalf("self-change should be accepted and report the store error, got %s (%v)", decision.Action, decision.Err)
	}
}

func TestHandleRenameCancelledContext(t *testing.T) {
	g, gateway, _, _ := newTestGuardian(t)
	gateway.renamedBy(testActorA, testMemberM, "1000")

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	before := gateway.members[testMemberM]
	decision := g.HandleRename(ctx, before, renamed(before, "Bob"))
	if decision.Action != ActionDropped || len(gateway.nicknames) != 0 {
		t.Fatalf("expected dropped handling, got %s", decision.Action)
	}
}

func TestInitializeAllMembersIsIdempotent(t *testing.T) {
	g, _, recordStore, _ := newTestGuardian(t)

	first, _, _ := recordStore.GetMemberRecord(testGuildID, testMemberM)
	seeded, err := g.InitializeAllMembers(context.Background(), testGuildID)
	if err != nil {
		t.Fatalf("InitializeAllMembers() failed: %s", err)
	}
	if seeded != 0 {
		t.Fatalf("second sweep should not write anything, wrote %d", seeded)
	}

	second, _, _ := recordStore.GetMemberRecord(testGuildID, testMemberM)
	if first != second {
		t.Fatalf("record changed between sweeps: %+v != %+v", first, second)
	}
	if first.Nickname != "Alice" || !first.IsSelfChange {
		t.Fatalf("unexpected seeded record: %+v", first)
	}
}

func TestActionString(t *testing.T) {
	if ActionReverted.String() != "reverted" || Action(99).String() != "unknown" {
		t.Fatalf("unexpected action names")
	}
}
