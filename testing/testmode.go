// Package testing prepares the process environment for tests. Test files
// import it for its side effects: entrypoints see ODYSSEY_TEST_MODE=1 and
// skip server startup, and the required secrets have defaults.
package testing

import "os"

var defaults = map[string]string{
	"ODYSSEY_TEST_MODE": "1",
	"SESSION_SECRET":    "test-session-secret",
	"CSRF_SECRET":       "test-csrf-secret",
}

func init() {
	for key, value := range defaults {
		if key == "ODYSSEY_TEST_MODE" || os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}
