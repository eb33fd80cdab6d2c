package models

import "time"

const (
	MemberNamesTable MongoDbCollection = "guardian_member_names"
)

// MemberNameRecord holds the last legitimate display name of a member in a guild
type MemberNameRecord struct {
	GuildID      string    `bson:"guildid" msgpack:"guild_id" json:"guild_id"`
	UserID       string    `bson:"userid" msgpack:"user_id" json:"user_id"`
	Nickname     string    `bson:"nickname" msgpack:"nickname" json:"nickname"`
	LastUpdated  time.Time `bson:"lastupdated" msgpack:"last_updated" json:"last_updated"`
	UpdatedBy    string    `bson:"updatedby,omitempty" msgpack:"updated_by" json:"updated_by,omitempty"`
	IsSelfChange bool      `bson:"isselfchange" msgpack:"is_self_change" json:"is_self_change"`
	Username     string    `bson:"username" msgpack:"username" json:"username"`
}

// Merge copies the mutable fields of update onto r, keeping the key fields of r
func (r MemberNameRecord) Merge(update MemberNameRecord) MemberNameRecord {
	r.Nickname = update.Nickname
	r.LastUpdated = update.LastUpdated
	r.IsSelfChange = update.IsSelfChange
	r.Username = update.Username
	if update.UpdatedBy != "" {
		r.UpdatedBy = update.UpdatedBy
	}
	return r
}
