package main

import (
	"context"
	"io/ioutil"
	"sync"
	"testing"
	"time"

	"github.com/Seklfreak/Guardian/cache"
	"github.com/Seklfreak/Guardian/guardian"
	"github.com/Seklfreak/Guardian/models"
	"github.com/Seklfreak/Guardian/store"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const (
	testGuildID = "100"
	testOwnerID = "1"
	testBotID   = "2"
	testMemberM = "3"
	testActorA  = "4"
)

func init() {
	log := logrus.New()
	log.Out = ioutil.Discard
	cache.SetLogger(log)
}

type testGateway struct {
	sync.Mutex

	audit        []models.AuditEntry
	nicknames    map[string]string
	membersCalls int
}

func (g *testGateway) SelfID() string {
	return testBotID
}

func (g *testGateway) Guild(ctx context.Context, guildID string) (models.Guild, error) {
	return models.Guild{ID: testGuildID, OwnerID: testOwnerID}, nil
}

func (g *testGateway) Member(ctx context.Context, guildID, userID string) (models.Member, error) {
	return models.Member{GuildID: guildID, UserID: userID, Username: "user" + userID}, nil
}

func (g *testGateway) Members(ctx context.Context, guildID string) ([]models.Member, error) {
	g.Lock()
	defer g.Unlock()

	g.membersCalls++
	return []models.Member{{GuildID: guildID, UserID: testMemberM, Username: "m", Nick: "Alice"}}, nil
}

func (g *testGateway) RecentMemberUpdates(ctx context.Context, guildID string, limit int) ([]models.AuditEntry, error) {
	g.Lock()
	defer g.Unlock()

	return g.audit, nil
}

func (g *testGateway) SetNickname(ctx context.Context, guildID, userID, nickname string) error {
	g.Lock()
	defer g.Unlock()

	g.nicknames[userID] = nickname
	return nil
}

func (g *testGateway) nickname(userID string) (string, bool) {
	g.Lock()
	defer g.Unlock()

	nickname, ok := g.nicknames[userID]
	return nickname, ok
}

type testNotifier struct{}

func (testNotifier) Notify(notice models.RevertNotice) {}

func setupGuard(t *testing.T) (*testGateway, *store.MemoryStore) {
	fake := &testGateway{nicknames: make(map[string]string)}
	recordStore := store.NewMemoryStore()
	guard = guardian.New(fake, recordStore, testNotifier{}, guardian.Config{AuditWindow: 5})
	return fake, recordStore
}

// stateSession returns a session whose state knows the guild with the given members
func stateSession(t *testing.T, members ...*discordgo.Member) *discordgo.Session {
	session := &discordgo.Session{State: discordgo.NewState(), StateEnabled: true}
	err := session.State.OnInterface(session, &discordgo.GuildCreate{Guild: &discordgo.Guild{
		ID:          testGuildID,
		OwnerID:     testOwnerID,
		MemberCount: 50,
		Members:     members,
	}})
	if err != nil {
		t.Fatalf("adding guild to state failed: %s", err)
	}
	return session
}

func memberUpdate(t *testing.T, session *discordgo.Session, nick string) *discordgo.GuildMemberUpdate {
	event := &discordgo.GuildMemberUpdate{Member: &discordgo.Member{
		GuildID: testGuildID,
		Nick:    nick,
		User:    &discordgo.User{ID: testMemberM, Username: "m"},
	}}
	err := session.State.OnInterface(session, event)
	if err != nil {
		t.Fatalf("state processing failed: %s", err)
	}
	return event
}

func waitFor(t *testing.T, what string, condition func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMemberUpdateWithoutStateUsesStoredName(t *testing.T) {
	fake, recordStore := setupGuard(t)
	err := recordStore.UpsertMemberRecord(testGuildID, testMemberM, models.MemberNameRecord{Nickname: "Alice", Username: "m"}, true)
	if err != nil {
		t.Fatalf("UpsertMemberRecord() failed: %s", err)
	}
	fake.audit = []models.AuditEntry{{ID: "1000", ActorID: testActorA, TargetID: testMemberM, ChangeKeys: []string{"nick"}}}

	// the state only knows the bot
	session := stateSession(t, &discordgo.Member{User: &discordgo.User{ID: testBotID, Username: "guardian"}})
	event := memberUpdate(t, session, "Bob")
	if event.BeforeUpdate != nil {
		t.Fatalf("expected an update without previous state")
	}

	BotOnGuildMemberUpdate(session, event)

	waitFor(t, "revert", func() bool {
		nickname, ok := fake.nickname(testMemberM)
		return ok && nickname == "Alice"
	})
}

func TestMemberUpdateWithStateAcceptsSelfChange(t *testing.T) {
	_, recordStore := setupGuard(t)
	err := recordStore.UpsertMemberRecord(testGuildID, testMemberM, models.MemberNameRecord{Nickname: "Alice", Username: "m"}, true)
	if err != nil {
		t.Fatalf("UpsertMemberRecord() failed: %s", err)
	}

	session := stateSession(t, &discordgo.Member{Nick: "Alice", User: &discordgo.User{ID: testMemberM, Username: "m"}})
	event := memberUpdate(t, session, "Alicia")
	if event.BeforeUpdate == nil || event.BeforeUpdate.Nick != "Alice" {
		t.Fatalf("expected the previous state from the state, got %+v", event.BeforeUpdate)
	}

	BotOnGuildMemberUpdate(session, event)

	waitFor(t, "record update", func() bool {
		record, _, _ := recordStore.GetMemberRecord(testGuildID, testMemberM)
		return record.Nickname == "Alicia" && record.IsSelfChange
	})
}

func TestMemberUpdateWithoutStateOrRecordInitializesMember(t *testing.T) {
	fake, recordStore := setupGuard(t)
	fake.audit = []models.AuditEntry{{ID: "1000", ActorID: testActorA, TargetID: testMemberM, ChangeKeys: []string{"nick"}}}

	decision := handleMemberUpdate(nil, models.Member{GuildID: testGuildID, UserID: testMemberM, Username: "m", Nick: "Bob"})
	if decision.Action != guardian.ActionNone {
		t.Fatalf("nothing to compare against, got %s", decision.Action)
	}
	record, found, _ := recordStore.GetMemberRecord(testGuildID, testMemberM)
	if !found || record.Nickname != "Bob" {
		t.Fatalf("member should have been initialized, got %+v", record)
	}
	if _, ok := fake.nickname(testMemberM); ok {
		t.Fatalf("no revert expected without a record")
	}
}

func TestMemberUpdateStoreUnavailable(t *testing.T) {
	fake := &testGateway{nicknames: make(map[string]string)}
	guard = guardian.New(fake, store.NewDisabled(), testNotifier{}, guardian.Config{})

	decision := handleMemberUpdate(nil, models.Member{GuildID: testGuildID, UserID: testMemberM, Username: "m", Nick: "Bob"})
	if decision.Action != guardian.ActionNone {
		t.Fatalf("expected the update to be skipped, got %s", decision.Action)
	}
}

func TestSeedGuildOncePerSession(t *testing.T) {
	fake, recordStore := setupGuard(t)
	defer seededGuilds.Delete(testGuildID)

	seedGuild(testGuildID)
	seedGuild(testGuildID)

	if fake.membersCalls != 1 {
		t.Fatalf("expected one member sweep, got %d", fake.membersCalls)
	}
	record, found, _ := recordStore.GetMemberRecord(testGuildID, testMemberM)
	if !found || record.Nickname != "Alice" {
		t.Fatalf("member not seeded: %+v", record)
	}

	BotOnGuildDelete(nil, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: testGuildID}})
	seedGuild(testGuildID)
	if fake.membersCalls != 2 {
		t.Fatalf("expected a new sweep after the guild was removed, got %d", fake.membersCalls)
	}
}

func TestEventTimeoutDefault(t *testing.T) {
	if eventTimeout() != 10*time.Second {
		t.Fatalf("unexpected default event timeout: %v", eventTimeout())
	}
}
