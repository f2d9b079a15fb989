package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
[write]
verify = false
auto_eject = true
block_size = "1 MiB"

[checksum]
algorithm = "blake2b"

[device]
poll_interval = "1s"

[history]
enabled = false
path = "/tmp/imgflash-history.db"

[log]
level = "debug"
file = "/tmp/imgflash.log"
`
	path := writeTempConfig(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Write
	if cfg.Write.Verify {
		t.Error("write.verify = true, want false")
	}
	if !cfg.Write.AutoEject {
		t.Error("write.auto_eject = false, want true")
	}
	if cfg.Write.BlockSize != 1<<20 {
		t.Errorf("write.block_size = %d, want %d", cfg.Write.BlockSize, 1<<20)
	}

	// Checksum
	if cfg.Checksum.Algorithm != "blake2b" {
		t.Errorf("checksum.algorithm = %q, want %q", cfg.Checksum.Algorithm, "blake2b")
	}

	// Device
	if cfg.Device.PollInterval != Duration(time.Second) {
		t.Errorf("device.poll_interval = %v, want %v", cfg.Device.PollInterval, Duration(time.Second))
	}

	// History
	if cfg.History.Enabled || cfg.History.Path != "/tmp/imgflash-history.db" {
		t.Errorf("history = %+v", cfg.History)
	}

	// Log
	if cfg.Log.Level != "debug" || cfg.Log.File != "/tmp/imgflash.log" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	path := writeTempConfig(t, "[device]\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.Write.Verify {
		t.Error("verify should default to true")
	}
	if cfg.Write.AutoEject {
		t.Error("auto_eject should default to false")
	}
	if cfg.Write.BlockSize != DefaultBlockSize {
		t.Errorf("block_size = %d, want default %d", cfg.Write.BlockSize, DefaultBlockSize)
	}
	if cfg.Checksum.Algorithm != DefaultAlgorithm {
		t.Errorf("algorithm = %q, want default %q", cfg.Checksum.Algorithm, DefaultAlgorithm)
	}
	if cfg.Device.PollInterval != DefaultPollInterval {
		t.Errorf("poll_interval = %v, want default %v", cfg.Device.PollInterval, DefaultPollInterval)
	}
	if !cfg.History.Enabled {
		t.Error("history should default to enabled")
	}
	if want := filepath.Join("/custom/data", "imgflash", "history.db"); cfg.History.Path != want {
		t.Errorf("history.path = %q, want %q", cfg.History.Path, want)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("log.level = %q, want default %q", cfg.Log.Level, DefaultLogLevel)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"block size not sector aligned", "[write]\nblock_size = \"1000 B\"\n", "write.block_size"},
		{"block size too large", "[write]\nblock_size = \"1 GiB\"\n", "write.block_size"},
		{"unknown algorithm", "[checksum]\nalgorithm = \"sha1\"\n", "checksum.algorithm"},
		{"poll too fast", "[device]\npoll_interval = \"10ms\"\n", "device.poll_interval"},
		{"bad log level", "[log]\nlevel = \"loud\"\n", "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not mention %s", err, tt.field)
			}
		})
	}
}

func TestLoad_MultipleErrorsJoined(t *testing.T) {
	content := `
[checksum]
algorithm = "crc32"

[device]
poll_interval = "1ms"
`
	_, err := Load(writeTempConfig(t, content))
	if err == nil {
		t.Fatal("expected error for invalid fields")
	}
	if !strings.Contains(err.Error(), "checksum.algorithm") || !strings.Contains(err.Error(), "device.poll_interval") {
		t.Errorf("expected both problems reported, got %q", err)
	}
}

func TestLoad_BadByteSize(t *testing.T) {
	_, err := Load(writeTempConfig(t, "[write]\nblock_size = \"lots\"\n"))
	if err == nil {
		t.Fatal("expected parse error for block_size")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	content := `this is not valid toml {{{`
	path := writeTempConfig(t, content)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestLoadOrDefault_MissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Write.Verify || cfg.Write.BlockSize != DefaultBlockSize {
		t.Errorf("expected defaults, got %+v", cfg.Write)
	}
}

func TestLoadOrDefault_ExplicitMissingPath(t *testing.T) {
	_, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("explicit missing path must fail")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvVerify, "false")
	t.Setenv(EnvAutoEject, "1")
	t.Setenv(EnvLogLevel, "WARN")

	cfg, err := Load(writeTempConfig(t, "[write]\nverify = true\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Write.Verify {
		t.Error("IMGFLASH_VERIFY=false not applied")
	}
	if !cfg.Write.AutoEject {
		t.Error("IMGFLASH_AUTO_EJECT=1 not applied")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoad_EnvOverrideInvalid(t *testing.T) {
	t.Setenv(EnvVerify, "sometimes")

	_, err := Load(writeTempConfig(t, ""))
	if err == nil || !strings.Contains(err.Error(), EnvVerify) {
		t.Fatalf("expected error naming %s, got %v", EnvVerify, err)
	}
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/imgflash.toml")

	if got := PathFromEnv(""); got != "/etc/imgflash.toml" {
		t.Errorf("PathFromEnv(\"\") = %q", got)
	}
	if got := PathFromEnv("/flag.toml"); got != "/flag.toml" {
		t.Errorf("flag should win, got %q", got)
	}
}

func TestEnsureDotEnv_SkippedUnderTest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("IMGFLASH_TEST_DOTENV=loaded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	if err := EnsureDotEnv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := os.Getenv("IMGFLASH_TEST_DOTENV"); v != "" {
		t.Errorf(".env loaded under go test: %q", v)
	}
}

func TestGenerateExampleConfig(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "imgflash", "config.toml")

	result, err := GenerateExampleConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result != path {
		t.Errorf("returned path = %q, want %q", result, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("cannot read generated file: %v", err)
	}

	if string(data) != ExampleConfig {
		t.Error("generated config does not match ExampleConfig")
	}

	// Verify the generated config is valid and loadable
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("generated config is not loadable: %v", err)
	}
	if cfg.Write.BlockSize != DefaultBlockSize {
		t.Errorf("example block_size = %d, want %d", cfg.Write.BlockSize, DefaultBlockSize)
	}
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !filepath.IsAbs(path) {
		t.Errorf("path %q is not absolute", path)
	}

	if filepath.Base(path) != "config.toml" {
		t.Errorf("path base = %q, want config.toml", filepath.Base(path))
	}
}

func TestDefaultPath_XDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/xdg/config")

	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "/custom/xdg/config/imgflash/config.toml"
	if path != expected {
		t.Errorf("path = %q, want %q", path, expected)
	}
}

func TestGenerateExampleConfig_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	// Create existing file
	if err := os.WriteFile(path, []byte("existing"), 0644); err != nil {
		t.Fatalf("cannot create existing file: %v", err)
	}

	_, err := GenerateExampleConfig(path)
	if err == nil {
		t.Fatal("expected error for existing file")
	}

	data, _ := os.ReadFile(path)
	if string(data) != "existing" {
		t.Error("existing config was overwritten")
	}
}

func TestByteSize_Marshal(t *testing.T) {
	text, err := DefaultBlockSize.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "4.0 MiB" {
		t.Errorf("MarshalText = %q, want %q", text, "4.0 MiB")
	}
}
