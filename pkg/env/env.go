package env

import (
	"os"
	"strings"
)

// Prefix namespaces the service's own variables.
const Prefix = "BAKEHOUSE_"

// Get reads BAKEHOUSE_<key>, then the bare key, then falls back.
func Get(key, fallback string) string {
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
