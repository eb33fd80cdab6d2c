package store

import (
	"sort"
	"sync"
	"time"

	"github.com/Seklfreak/Guardian/models"
)

type memberKey struct {
	guildID string
	userID  string
}

// MemoryStore keeps all records in process memory, nothing survives a restart
type MemoryStore struct {
	sync.RWMutex

	members     map[memberKey]models.MemberNameRecord
	immuneRoles map[string]map[string]models.ImmuneRoleRecord
	pings       map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		members:     make(map[memberKey]models.MemberNameRecord),
		immuneRoles: make(map[string]map[string]models.ImmuneRoleRecord),
		pings:       make(map[string]time.Time),
	}
}

func (m *MemoryStore) Ready() bool {
	return true
}

func (m *MemoryStore) Ping() error {
	now := time.Now()

	m.Lock()
	m.pings["connection_test"] = now
	m.Unlock()

	m.RLock()
	defer m.RUnlock()
	if !m.pings["connection_test"].Equal(now) {
		return ErrUnavailable
	}
	return nil
}

func (m *MemoryStore) UpsertMemberRecord(guildID, userID string, record models.MemberNameRecord, mergeOnly bool) error {
	m.Lock()
	defer m.Unlock()

	key := memberKey{guildID: guildID, userID: userID}
	if current, ok := m.members[key]; ok && mergeOnly {
		m.members[key] = current.Merge(record)
		return nil
	}

	m.members[key] = prepareRecord(guildID, userID, record)
	return nil
}

func (m *MemoryStore) GetMemberRecord(guildID, userID string) (models.MemberNameRecord, bool, error) {
	m.RLock()
	defer m.RUnlock()

	record, ok := m.members[memberKey{guildID: guildID, userID: userID}]
	return record, ok, nil
}

func (m *MemoryStore) UpsertImmuneRole(record models.ImmuneRoleRecord) error {
	m.Lock()
	defer m.Unlock()

	if m.immuneRoles[record.GuildID] == nil {
		m.immuneRoles[record.GuildID] = make(map[string]models.ImmuneRoleRecord)
	}
	m.immuneRoles[record.GuildID][record.RoleID] = record
	return nil
}

func (m *MemoryStore) DeleteImmuneRole(guildID, roleID string) error {
	m.Lock()
	defer m.Unlock()

	delete(m.immuneRoles[guildID], roleID)
	return nil
}

func (m *MemoryStore) ListImmuneRoles(guildID string) ([]models.ImmuneRoleRecord, error) {
	m.RLock()
	defer m.RUnlock()

	records := make([]models.ImmuneRoleRecord, 0, len(m.immuneRoles[guildID]))
	for _, record := range m.immuneRoles[guildID] {
		records = append(records, record)
	}
	sortImmuneRoles(records)
	return records, nil
}

func (m *MemoryStore) Close() {}

func sortImmuneRoles(records []models.ImmuneRoleRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].AddedAt.Equal(records[j].AddedAt) {
			return records[i].RoleID < records[j].RoleID
		}
		return records[i].AddedAt.Before(records[j].AddedAt)
	})
}
