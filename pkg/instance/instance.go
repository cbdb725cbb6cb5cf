package instance

import (
	"os"
	"strings"
)

// GetID names the running process for log correlation. WORKER_ID wins, then the
// platform dyno name, then the hostname, then fallback.
func GetID(fallback string) string {
	for _, key := range []string{"WORKER_ID", "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallback
}
