// Package instance names the running process in logs and lock owners.
package instance

import (
	"os"
	"strings"
)

// lookup order: explicit override, then the dyno name, then the container hostname.
var envKeys = []string{"SEEDSHOP_INSTANCE_ID", "DYNO", "HOSTNAME"}

// GetID returns the first non-empty instance identifier or fallback.
func GetID(fallback string) string {
	for _, key := range envKeys {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	return fallback
}
