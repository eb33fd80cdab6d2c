package helpers

import (
	"sync"

	"github.com/Jeffail/gabs"
	"github.com/pkg/errors"
)

var (
	// config Saves the bot-config
	config      *gabs.Container
	configMutex sync.RWMutex

	// DEBUG_MODE is set by the "debug" config key
	DEBUG_MODE = false
)

// LoadConfig loads the config from $path into $config
func LoadConfig(path string) error {
	json, err := gabs.ParseJSONFile(path)
	if err != nil {
		return errors.Wrap(err, "parsing config "+path+" failed")
	}

	SetConfig(json)
	return nil
}

// SetConfig replaces the config
func SetConfig(container *gabs.Container) {
	configMutex.Lock()
	config = container
	configMutex.Unlock()
}

// GetConfig is a config getter
func GetConfig() *gabs.Container {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if config == nil {
		return gabs.New()
	}
	return config
}

// ConfigString returns the string at path or fallback if it is missing or empty
func ConfigString(path string, fallback string) string {
	value, ok := GetConfig().Path(path).Data().(string)
	if !ok || value == "" {
		return fallback
	}
	return value
}

// ConfigInt returns the number at path or fallback, json numbers are parsed as float64
func ConfigInt(path string, fallback int) int {
	switch value := GetConfig().Path(path).Data().(type) {
	case float64:
		return int(value)
	case int:
		return value
	}
	return fallback
}

func ConfigBool(path string, fallback bool) bool {
	value, ok := GetConfig().Path(path).Data().(bool)
	if !ok {
		return fallback
	}
	return value
}
