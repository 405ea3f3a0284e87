package instance

import "os"

// GetID returns the process instance identifier used to tag recovery
// events with their origin, or a default value.
func GetID() string {
	if id := os.Getenv("ZENTIK_INSTANCE_ID"); id != "" {
		return id
	}
	return "sync-0"
}
