package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Default values for optional config fields.
const (
	DefaultBlockSize    = ByteSize(4 << 20)
	DefaultAlgorithm    = "sha256"
	DefaultPollInterval = Duration(2 * time.Second)
	DefaultLogLevel     = "info"

	MinBlockSize    = 512
	MaxBlockSize    = 64 << 20
	MinPollInterval = 100 * time.Millisecond
)

// ExampleConfig is the template for init with documentation comments.
const ExampleConfig = `# imgflash configuration
# See: https://github.com/dhavalsavalia/imgflash

[write]
# Read the device back after writing and compare it with the image
verify = true

# Eject the device after a successful write
auto_eject = false

# Transfer block size ("4 MiB", "1MB", "512KiB")
block_size = "4 MiB"

[checksum]
# Default digest for the checksum command: sha256, md5 or blake2b
algorithm = "sha256"

[device]
# How often the TUI refreshes the device list (duration string: "500ms", "2s", etc.)
poll_interval = "2s"

[history]
# Record every write in a local database
enabled = true

# Database path; empty means $XDG_DATA_HOME/imgflash/history.db
path = ""

[log]
# One of: trace, debug, info, warn, error
level = "info"

# The TUI writes logs here; empty discards them
file = ""
`

// GenerateExampleConfig writes the example config to the given path.
// If path is empty, it uses the default XDG path. An existing file is
// never overwritten.
// Returns the path where the file was written.
func GenerateExampleConfig(path string) (string, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	// Create parent directory if needed
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("cannot write config file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(ExampleConfig); err != nil {
		return "", fmt.Errorf("cannot write config file: %w", err)
	}

	return path, nil
}
