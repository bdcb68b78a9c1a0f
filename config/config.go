package config

import (
	"os"
	"path/filepath"

	"github.com/jamesbehr/rip/filesystem"
	"github.com/jamesbehr/rip/mover"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	EnvConfig    = "RIP_CONFIG"
	EnvGraveyard = "RIP_GRAVEYARD"
	EnvLogLevel  = "RIP_LOG_LEVEL"
)

type Config struct {
	// Graveyard is used when neither the --graveyard flag nor RIP_GRAVEYARD
	// is set.
	Graveyard string `toml:"graveyard,omitempty"`

	// BigFileThreshold is the size in bytes above which a cross-device copy
	// asks first. Zero disables the check.
	BigFileThreshold int64 `toml:"big_file_threshold,omitempty"`

	// SkipVerify turns off the BLAKE3 comparison of copied files.
	SkipVerify bool `toml:"skip_verify,omitempty"`

	Log LogConfig `toml:"log"`
}

func Default() Config {
	return Config{
		BigFileThreshold: mover.DefaultBigFileThreshold,
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// DefaultPath returns $RIP_CONFIG if set, otherwise rip/config.toml under
// the XDG config directory.
func DefaultPath() (string, error) {
	if path := os.Getenv(EnvConfig); path != "" {
		return path, nil
	}

	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "rip", "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "locating config file")
	}

	return filepath.Join(home, ".config", "rip", "config.toml"), nil
}

// Load decodes the TOML file at path over the defaults. A missing file is
// not an error. RIP_LOG_LEVEL overrides the configured log level.
func Load(path string) (Config, error) {
	c := Default()

	f, err := os.Open(path)
	if err == nil {
		defer f.Close()

		if err := toml.NewDecoder(f).Decode(&c); err != nil {
			return c, errors.Wrapf(err, "parsing %s", path)
		}
	} else if !os.IsNotExist(err) {
		return c, errors.Wrapf(err, "reading %s", path)
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}

	return c, nil
}

// ResolveGraveyard picks the graveyard location. In order of preference:
// the flag value, $RIP_GRAVEYARD, the config file, $XDG_DATA_HOME/graveyard
// and finally /tmp/graveyard-$USER.
func (c Config) ResolveGraveyard(flag string) string {
	if flag != "" {
		return flag
	}

	if env := os.Getenv(EnvGraveyard); env != "" {
		return env
	}

	if c.Graveyard != "" {
		return c.Graveyard
	}

	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "graveyard")
	}

	user := os.Getenv("USER")
	if user == "" {
		user = "unknown"
	}

	return filepath.Join(os.TempDir(), "graveyard-"+user)
}

// Prepare creates the graveyard if needed, readable only by its owner, and
// returns its canonical path.
func Prepare(graveyard string) (filesystem.Path, error) {
	abs, err := filepath.Abs(graveyard)
	if err != nil {
		return filesystem.Path(""), errors.Wrapf(err, "resolving %s", graveyard)
	}

	root := filesystem.MakePath(abs)

	exists, err := root.Exists()
	if err != nil {
		return filesystem.Path(""), errors.Wrapf(err, "stat %s", root)
	}

	if !exists {
		log.WithField("root", root).Debug("creating graveyard")

		if err := root.MkdirAll(0700); err != nil {
			return filesystem.Path(""), errors.Wrapf(err, "creating graveyard %s", root)
		}
	}

	canonical, err := root.Canonical()
	if err != nil {
		return filesystem.Path(""), errors.Wrapf(err, "resolving %s", root)
	}

	return canonical, nil
}
