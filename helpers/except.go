// Except.go: Contains functions to make handling panics less PITA

package helpers

import (
	"fmt"
	"runtime"

	"github.com/Seklfreak/Guardian/cache"
	"github.com/getsentry/raven-go"
)

// Recover recover()s, logs the error and sends it to sentry.
// Event handlers run it deferred so a single bad event never stops the bot.
func Recover() {
	err := recover()
	if err != nil {
		buf := make([]byte, 1<<16)
		stackSize := runtime.Stack(buf, false)

		if cache.HasLogger() {
			cache.GetLogger().WithField("module", "except").Errorf("recovered from panic: %#v\n%s", err, string(buf[0:stackSize]))
		} else {
			fmt.Printf("%#v\n", err)
		}

		raven.CaptureError(fmt.Errorf("%#v", err), map[string]string{})
	}
}

// RelaxLog logs $err and sends it to sentry, it is a no-op if $err is nil
func RelaxLog(err error) {
	if err != nil {
		if cache.HasLogger() {
			cache.GetLogger().WithField("module", "except").Error(err.Error())
		}
		raven.CaptureError(err, map[string]string{})
	}
}
