package guardian

import (
	"context"
	"io/ioutil"
	"sync"

	"github.com/Seklfreak/Guardian/cache"
	"github.com/Seklfreak/Guardian/models"
	"github.com/sirupsen/logrus"
)

func init() {
	log := logrus.New()
	log.Out = ioutil.Discard
	cache.SetLogger(log)
}

const (
	testGuildID = "100"
	testOwnerID = "1"
	testBotID   = "2"
	testMemberM = "3"
	testActorA  = "4"
	testRoleBot = "50"
	testRoleR   = "51"
	testRoleLow = "52"
	testRoleTop = "53"
)

type nicknameCall struct {
	guildID  string
	userID   string
	nickname string
}

type fakeGateway struct {
	sync.Mutex

	guild       models.Guild
	members     map[string]models.Member
	audit       []models.AuditEntry
	auditErr    error
	nicknameErr error
	nicknames   []nicknameCall
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		guild: models.Guild{
			ID:      testGuildID,
			Name:    "Test Guild",
			OwnerID: testOwnerID,
			Roles: []models.Role{
				{ID: testGuildID, Name: "@everyone", Position: 0},
				{ID: testRoleLow, Name: "Members", Position: 1},
				{ID: testRoleR, Name: "Mods", Position: 2},
				{ID: testRoleBot, Name: "Guardian", Position: 5},
				{ID: testRoleTop, Name: "Admins", Position: 9},
			},
		},
		members: map[string]models.Member{
			testOwnerID: {GuildID: testGuildID, UserID: testOwnerID, Username: "owner"},
			testBotID:   {GuildID: testGuildID, UserID: testBotID, Username: "guardian", RoleIDs: []string{testRoleBot}, Bot: true},
			testMemberM: {GuildID: testGuildID, UserID: testMemberM, Username: "m", Nick: "Alice", RoleIDs: []string{testRoleLow}},
			testActorA:  {GuildID: testGuildID, UserID: testActorA, Username: "a", RoleIDs: []string{testRoleLow}},
		},
	}
}

func (f *fakeGateway) SelfID() string {
	return testBotID
}

func (f *fakeGateway) Guild(ctx context.Context, guildID string) (models.Guild, error) {
	f.Lock()
	defer f.Unlock()

	if guildID != f.guild.ID {
		return models.Guild{}, ErrNotFound
	}
	return f.guild, nil
}

func (f *fakeGateway) Member(ctx context.Context, guildID, userID string) (models.Member, error) {
	f.Lock()
	defer f.Unlock()

	member, ok := f.members[userID]
	if !ok || guildID != f.guild.ID {
		return models.Member{}, ErrNotFound
	}
	return member, nil
}

func (f *fakeGateway) Members(ctx context.Context, guildID string) ([]models.Member, error) {
	f.Lock()
	defer f.Unlock()

	members := make([]models.Member, 0, len(f.members))
	for _, member := range f.members {
		members = append(members, member)
	}
	return members, nil
}

func (f *fakeGateway) RecentMemberUpdates(ctx context.Context, guildID string, limit int) ([]models.AuditEntry, error) {
	f.Lock()
	defer f.Unlock()

	if f.auditErr != nil {
		return nil, f.auditErr
	}
	if len(f.audit) > limit {
		return f.audit[:limit], nil
	}
	return f.audit, nil
}

func (f *fakeGateway) SetNickname(ctx context.Context, guildID, userID, nickname string) error {
	f.Lock()
	defer f.Unlock()

	if f.nicknameErr != nil {
		return f.nicknameErr
	}
	f.nicknames = append(f.nicknames, nicknameCall{guildID: guildID, userID: userID, nickname: nickname})
	member := f.members[userID]
	member.Nick = nickname
	f.members[userID] = member
	return nil
}

func (f *fakeGateway) setRoles(userID string, roleIDs ...string) {
	f.Lock()
	defer f.Unlock()

	member := f.members[userID]
	member.RoleIDs = roleIDs
	f.members[userID] = member
}

func (f *fakeGateway) renamedBy(actorID, targetID, entryID string) {
	f.Lock()
	defer f.Unlock()

	f.audit = append([]models.AuditEntry{{ID: entryID, ActorID: actorID, TargetID: targetID, ChangeKeys: []string{"nick"}}}, f.audit...)
}

type fakeNotifier struct {
	sync.Mutex
	notices []models.RevertNotice
}

func (n *fakeNotifier) Notify(notice models.RevertNotice) {
	n.Lock()
	n.notices = append(n.notices, notice)
	n.Unlock()
}

func renamed(member models.Member, nick string) models.Member {
	member.Nick = nick
	return member
}
