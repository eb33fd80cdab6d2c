package version

import "github.com/Seklfreak/Guardian/cache"

// Set by the linker
var (
	// Version example: 0.5.2-4-g205bbb8
	Version = "DEV_SNAPSHOT"

	// BuildTime example: Fri Jan  6 00:45:46 CET 2017
	BuildTime = "UNSET"

	BuildUser = "UNSET"

	BuildHost = "UNSET"
)

// DumpInfo logs the build information
func DumpInfo() {
	log := cache.GetLogger().WithField("module", "version")
	log.Debug("VERSION: " + Version)
	log.Debug("BUILD TIME: " + BuildTime)
	log.Debug("BUILD USER: " + BuildUser)
	log.Debug("BUILD HOST: " + BuildHost)
}
