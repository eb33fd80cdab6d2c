package metrics

import (
	"expvar"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
)

var (
	// RenamesObserved counts member updates that changed a display name
	RenamesObserved = expvar.NewInt("renames_observed")

	// RenamesAccepted counts self, bot and authorized changes
	RenamesAccepted = expvar.NewInt("renames_accepted")

	// RenamesReverted counts successful reverts
	RenamesReverted = expvar.NewInt("renames_reverted")

	// RevertFailures counts unauthorized changes that could not be reverted
	RevertFailures = expvar.NewInt("revert_failures")

	// RenamesDropped counts changes whose handling ran out of time
	RenamesDropped = expvar.NewInt("renames_dropped")

	// AttributionFallbacks counts changes attributed to the member because the audit log was unreadable
	AttributionFallbacks = expvar.NewInt("attribution_fallbacks")

	// AuditLogRequests counts requests to the audit log
	AuditLogRequests = expvar.NewInt("audit_log_requests")

	NotificationsSent   = expvar.NewInt("notifications_sent")
	NotificationsFailed = expvar.NewInt("notifications_failed")

	// MembersSeeded counts member records written by the initialization sweep
	MembersSeeded = expvar.NewInt("members_seeded")

	// CommandsExecuted increases after each command execution
	CommandsExecuted = expvar.NewInt("commands_executed")

	GuildCount = expvar.NewInt("guild_count")

	// CoroutineCount counts all running coroutines
	CoroutineCount = expvar.NewInt("coroutine_count")

	// Uptime stores the timestamp of the bot's boot
	Uptime = expvar.NewInt("uptime")
)

// Init records the boot time, the counters are served by the REST API on /debug/vars
func Init() {
	Uptime.Set(time.Now().Unix())
}

// OnReady listens for said discord event
func OnReady(session *discordgo.Session, event *discordgo.Ready) {
	go CollectDiscordMetrics(session)
	go CollectRuntimeMetrics()
}

// CollectDiscordMetrics counts guilds
func CollectDiscordMetrics(session *discordgo.Session) {
	for {
		session.State.RLock()
		GuildCount.Set(int64(len(session.State.Guilds)))
		session.State.RUnlock()

		time.Sleep(15 * time.Second)
	}
}

// CollectRuntimeMetrics counts all running coroutines
func CollectRuntimeMetrics() {
	for {
		CoroutineCount.Set(int64(runtime.NumGoroutine()))
		time.Sleep(15 * time.Second)
	}
}
