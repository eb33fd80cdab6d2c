package helpers

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

const discordEpoch = 1420070400000

// GetTimeFromSnowflake returns the creation time encoded in a discord snowflake
func GetTimeFromSnowflake(id string) time.Time {
	iid, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return time.Time{}
	}

	return time.Unix(0, int64((iid>>22)+discordEpoch)*int64(time.Millisecond)).UTC()
}

// SnowflakeAfter is true if snowflake a was created after b, invalid snowflakes sort first
func SnowflakeAfter(a, b string) bool {
	ia, errA := strconv.ParseUint(a, 10, 64)
	ib, errB := strconv.ParseUint(b, 10, 64)
	if errA != nil {
		return false
	}
	if errB != nil {
		return true
	}
	return ia > ib
}

// SinceText formats t relative to now, e.g. "3 days ago"
func SinceText(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.Time(t)
}
