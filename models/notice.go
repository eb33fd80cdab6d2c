package models

import "time"

// RevertNotice describes a reverted nickname change for the audit channel
type RevertNotice struct {
	GuildID           string
	Member            Member
	ActorID           string
	ActorName         string
	Reason            string
	AttemptedNickname string
	RevertedTo        string
	RevertedAt        time.Time
}
