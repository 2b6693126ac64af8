package instance

import (
	"os"

	"github.com/angelmondragon/bakehouse-backend/pkg/env"
)

// GetID names the running process in logs: WORKER_ID, then the platform
// dyno name, then the hostname.
func GetID() string {
	if id := env.Get("WORKER_ID", ""); id != "" {
		return id
	}
	if dyno := os.Getenv("DYNO"); dyno != "" {
		return dyno
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
