package models

import "sort"

// Member is a guild member snapshot, decoupled from the gateway client types
type Member struct {
	GuildID  string
	UserID   string
	Username string
	Nick     string
	RoleIDs  []string
	Bot      bool
}

// DisplayName returns the nickname if one is set, the username otherwise
func (m Member) DisplayName() string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.Username
}

func (m Member) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

func (m Member) Mention() string {
	return "<@" + m.UserID + ">"
}

type Role struct {
	ID       string
	Name     string
	Position int
	Managed  bool
}

func (r Role) Mention() string {
	return "<@&" + r.ID + ">"
}

// Guild is the subset of guild metadata the guardian needs
type Guild struct {
	ID          string
	Name        string
	OwnerID     string
	MemberCount int
	Roles       []Role
}

func (g Guild) Role(roleID string) (Role, bool) {
	for _, role := range g.Roles {
		if role.ID == roleID {
			return role, true
		}
	}
	return Role{}, false
}

// HighestRole returns the highest positioned role of the member, the @everyone role is ignored
func (g Guild) HighestRole(member Member) (Role, bool) {
	var (
		highest Role
		found   bool
	)
	for _, roleID := range member.RoleIDs {
		if roleID == g.ID {
			continue
		}
		role, ok := g.Role(roleID)
		if !ok {
			continue
		}
		if !found || role.Position > highest.Position {
			highest = role
			found = true
		}
	}
	return highest, found
}

// SortedRoles returns the guild roles ordered from highest to lowest position
func (g Guild) SortedRoles() []Role {
	roles := make([]Role, len(g.Roles))
	copy(roles, g.Roles)
	sort.SliceStable(roles, func(i, j int) bool {
		return roles[i].Position > roles[j].Position
	})
	return roles
}

// AuditEntry is one member update entry of the guild audit log
type AuditEntry struct {
	ID         string
	ActorID    string
	TargetID   string
	ChangeKeys []string
}

// TouchesNickname is true if the entry has no change details or changed the nickname
func (e AuditEntry) TouchesNickname() bool {
	if len(e.ChangeKeys) == 0 {
		return true
	}
	for _, key := range e.ChangeKeys {
		if key == "nick" {
			return true
		}
	}
	return false
}
