package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Environment variables that override the config file.
const (
	EnvConfig    = "IMGFLASH_CONFIG"
	EnvLogLevel  = "IMGFLASH_LOG_LEVEL"
	EnvVerify    = "IMGFLASH_VERIFY"
	EnvAutoEject = "IMGFLASH_AUTO_EJECT"
)

var (
	loadOnce   sync.Once
	loadedPath string
	loadErr    error
)

// EnsureDotEnv loads the first .env file found from the current working
// directory up to the filesystem root. Subsequent calls are no-ops.
func EnsureDotEnv() error {
	// Keep unit tests hermetic.
	if runningUnderGoTest() && os.Getenv("GOTEST_LOAD_DOTENV") != "1" {
		return nil
	}
	loadOnce.Do(func() {
		path, err := findDotEnv()
		if err != nil {
			loadErr = err
			log.Debug().Err(err).Msg("search .env failed")
			return
		}
		if path == "" {
			return
		}
		if err := godotenv.Load(path); err != nil {
			loadErr = err
			log.Debug().Err(err).Str("dotenv", path).Msg("load .env failed")
			return
		}
		loadedPath = path
		log.Debug().Str("dotenv", path).Msg("loaded .env")
	})
	return loadErr
}

// LoadedDotEnv returns the resolved .env path if one was loaded, otherwise "".
func LoadedDotEnv() string {
	return loadedPath
}

// PathFromEnv returns flagPath, or IMGFLASH_CONFIG when flagPath is empty.
func PathFromEnv(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return os.Getenv(EnvConfig)
}

// applyEnv copies IMGFLASH_* overrides onto cfg.
func applyEnv(cfg *Config) error {
	var errs []error

	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	for name, dst := range map[string]*bool{
		EnvVerify:    &cfg.Write.Verify,
		EnvAutoEject: &cfg.Write.AutoEject,
	} {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s=%q is not a boolean", name, v))
			continue
		}
		*dst = b
	}

	return errors.Join(errs...)
}

func runningUnderGoTest() bool {
	if strings.HasSuffix(os.Args[0], ".test") {
		return true
	}
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

func findDotEnv() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(wd, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			return "", nil
		}
		wd = parent
	}
}
