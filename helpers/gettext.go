package helpers

import (
	_ "embed"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/Jeffail/gabs"
)

var (
	//go:embed assets/i18n.json
	translationsJSON []byte

	translations     *gabs.Container
	translationsOnce sync.Once
)

// LoadTranslations parses the embedded texts, GetText calls it on first use
func LoadTranslations() {
	translationsOnce.Do(func() {
		json, err := gabs.ParseJSON(translationsJSON)
		if err != nil {
			panic(err)
		}

		translations = json
	})
}

// GetText returns the text for $id, or $id itself if there is no such text
func GetText(id string) string {
	LoadTranslations()

	if !translations.ExistsP(id) {
		return id
	}

	item := translations.Path(id)

	// If this is an array return a random item
	if arr, ok := item.Data().([]interface{}); ok && len(arr) > 0 {
		return fmt.Sprint(arr[rand.Intn(len(arr))])
	}

	text, ok := item.Data().(string)
	if !ok {
		return id
	}
	return text
}

func GetTextF(id string, replacements ...interface{}) string {
	return fmt.Sprintf(GetText(id), replacements...)
}

// GetBoolText returns the yes or no text
func GetBoolText(value bool) string {
	if value {
		return GetText("bot.yes")
	}
	return GetText("bot.no")
}

// Truncate shortens $text to $max runes
func Truncate(text string, max int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max-1]) + "…"
}
