package models

import "time"

const (
	ImmuneRolesTable MongoDbCollection = "guardian_immune_roles"
)

// ImmuneRoleRecord marks a role whose holders may rename other members
type ImmuneRoleRecord struct {
	GuildID  string    `bson:"guildid" msgpack:"guild_id" json:"guild_id"`
	RoleID   string    `bson:"roleid" msgpack:"role_id" json:"role_id"`
	RoleName string    `bson:"rolename" msgpack:"role_name" json:"role_name"`
	AddedAt  time.Time `bson:"addedat" msgpack:"added_at" json:"added_at"`
}
