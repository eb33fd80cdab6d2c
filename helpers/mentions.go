package helpers

import (
	"strings"

	"github.com/Seklfreak/Guardian/models"
)

// GetRoleFromArgument finds a role by mention, id or case insensitive name
func GetRoleFromArgument(guild models.Guild, argument string) (models.Role, bool) {
	argument = strings.TrimSpace(argument)
	if argument == "" {
		return models.Role{}, false
	}

	if match := RoleRegexStrict.FindStringSubmatch(argument); len(match) == 2 {
		return guild.Role(match[1])
	}
	if SnowflakeRegex.MatchString(argument) {
		if role, ok := guild.Role(argument); ok {
			return role, true
		}
	}

	for _, role := range guild.SortedRoles() {
		if strings.EqualFold(role.Name, argument) {
			return role, true
		}
	}
	return models.Role{}, false
}

// GetUserIDFromArgument returns the user id of a mention or a plain id
func GetUserIDFromArgument(argument string) (string, bool) {
	argument = strings.TrimSpace(argument)

	if match := UserRegexStrict.FindStringSubmatch(argument); len(match) == 2 {
		return match[1], true
	}
	if SnowflakeRegex.MatchString(argument) {
		return argument, true
	}
	return "", false
}
