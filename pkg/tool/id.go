package tool

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GenerateOrderNumber returns a human readable order number such as
// "P20260301-1A2B3C4D". The suffix comes from a random UUID.
func GenerateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "P" + now.UTC().Format("20060102") + "-" + suffix
}
