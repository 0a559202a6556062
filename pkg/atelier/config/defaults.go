package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Defaults applied when no config file or environment override is present.
const (
	// DefaultListenAddr is the address the HTTP API binds to.
	DefaultListenAddr = "127.0.0.1:7430"

	// DefaultJournalRetentionDays is how long mutation history is kept.
	DefaultJournalRetentionDays = 30

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"
)

// DefaultAllowedOrigins are the browser origins the API accepts.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}

// DefaultDataDir returns the default store location under the XDG data
// directory.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, "atelier", "db")
}

// DefaultJournalDir returns the default journal location.
func DefaultJournalDir() string {
	return filepath.Join(xdg.DataHome, "atelier", "journal")
}

// DefaultMirrorDir returns the default external-edit mirror root.
func DefaultMirrorDir() string {
	return filepath.Join(xdg.CacheHome, "atelier", "mirror")
}
