package helpers

import "regexp"

var (
	// UserRegexStrict matches Discord User Mentions
	UserRegexStrict = regexp.MustCompile(`^<@!?(\d+)>$`)

	// RoleRegexStrict matches Discord Role Mentions
	RoleRegexStrict = regexp.MustCompile(`^<@&(\d+)>$`)

	// SnowflakeRegex matches a plain discord id
	SnowflakeRegex = regexp.MustCompile(`^\d{15,21}$`)
)
