// Package config resolves the credentials and options zpapi needs
// before it can talk to the Zotero API. Each credential is resolved
// from exactly one source, in precedence order: explicit flag,
// environment variable, zpapi.ini in the working directory, then the
// global config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Environment variable names.
const (
	EnvAPIKey      = "ZOTERO_API_KEY"
	EnvLibraryID   = "ZOTERO_LIBRARY_ID"
	EnvLibraryType = "ZOTERO_LIBRARY_TYPE"
)

// LocalConfigFile is the ini config file read from the working directory.
const LocalConfigFile = "zpapi.ini"

// Library types accepted by the API.
const (
	LibraryTypeUser  = "user"
	LibraryTypeGroup = "group"
)

// Config is the fully resolved configuration for one invocation.
type Config struct {
	APIKey      string
	LibraryID   int
	LibraryType string
}

// Flags carries the values parsed from the command line. Zero values
// mean the flag was not given.
type Flags struct {
	APIKey      string
	LibraryID   int
	LibraryType string

	// Dir is the directory searched for zpapi.ini and .env. Empty
	// means the working directory.
	Dir string
}

// MissingCredentialError reports a credential that no source provided.
// Its message tells the user every way to supply the value.
type MissingCredentialError struct {
	Name string
	Flag string
	Env  string
	Key  string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf(`no %s configured.

Provide one of:
  - the --%s flag
  - the %s environment variable
  - %s = ... in the [DEFAULT] section of %s
  - %s: ... in %s`,
		e.Name, e.Flag, e.Env, e.Key, LocalConfigFile, e.Key, GlobalConfigPath())
}

// Resolve produces a complete configuration or an error describing the
// first missing or invalid credential.
func Resolve(flags Flags) (*Config, error) {
	dir := flags.Dir
	if dir == "" {
		dir = "."
	}

	// .env values only fill in unset environment variables.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	local, err := loadLocal(dir)
	if err != nil {
		return nil, err
	}
	global, err := LoadGlobalConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.APIKey = firstNonEmpty(
		flags.APIKey,
		os.Getenv(EnvAPIKey),
		localValue(local, "api_key"),
		global.APIKey,
	)
	if cfg.APIKey == "" {
		return nil, &MissingCredentialError{Name: "API key", Flag: "api_key", Env: EnvAPIKey, Key: "api_key"}
	}

	rawID := ""
	if flags.LibraryID > 0 {
		rawID = strconv.Itoa(flags.LibraryID)
	}
	rawID = firstNonEmpty(
		rawID,
		os.Getenv(EnvLibraryID),
		localValue(local, "library_id"),
		global.libraryIDString(),
	)
	if rawID == "" {
		return nil, &MissingCredentialError{Name: "library ID", Flag: "library_id", Env: EnvLibraryID, Key: "library_id"}
	}
	cfg.LibraryID, err = strconv.Atoi(rawID)
	if err != nil || cfg.LibraryID <= 0 {
		return nil, fmt.Errorf("library ID must be a positive integer, got %q", rawID)
	}

	cfg.LibraryType = firstNonEmpty(
		flags.LibraryType,
		os.Getenv(EnvLibraryType),
		localValue(local, "library_type"),
		global.LibraryType,
	)
	if cfg.LibraryType == "" {
		return nil, &MissingCredentialError{Name: "library type", Flag: "library_type", Env: EnvLibraryType, Key: "library_type"}
	}
	if cfg.LibraryType != LibraryTypeUser && cfg.LibraryType != LibraryTypeGroup {
		return nil, fmt.Errorf("library type must be %q or %q, got %q", LibraryTypeUser, LibraryTypeGroup, cfg.LibraryType)
	}

	return cfg, nil
}

// loadLocal reads zpapi.ini from dir. A missing file is not an error;
// a malformed one is.
func loadLocal(dir string) (*ini.File, error) {
	path := filepath.Join(dir, LocalConfigFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", LocalConfigFile, err)
	}

	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", LocalConfigFile, err)
	}
	return f, nil
}

// localValue looks up a key in the DEFAULT section, checking presence
// explicitly so a file that omits the key falls through to the next
// source.
func localValue(f *ini.File, key string) string {
	if f == nil {
		return ""
	}
	section := f.Section(ini.DefaultSection)
	if !section.HasKey(key) {
		return ""
	}
	return section.Key(key).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
