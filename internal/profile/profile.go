// Package profile lays out the per-profile state directory under ~/.chatsync.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// DefaultName is used when neither a flag nor the config names a profile.
const DefaultName = "default"

// HomeEnv overrides the base directory when set.
const HomeEnv = "CHATSYNC_HOME"

var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName checks that name conforms to profile naming rules.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid profile name %q: must match ^[a-z0-9_-]{1,64}$", name)
	}
	return nil
}

// Home returns $CHATSYNC_HOME, or ~/.chatsync.
func Home() string {
	if h := os.Getenv(HomeEnv); h != "" {
		return h
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".chatsync")
}

// ConfigPath returns the global config file under home.
func ConfigPath(home string) string {
	return filepath.Join(home, "config.toml")
}

// Resolve picks the profile name: the flag, then the configured default, then DefaultName.
func Resolve(flagOverride, configured string) string {
	switch {
	case flagOverride != "":
		return flagOverride
	case configured != "":
		return configured
	default:
		return DefaultName
	}
}

// Profile is one named profile's directory.
type Profile struct {
	Name string
	Dir  string
}

// New validates name and returns its profile under home.
func New(home, name string) (Profile, error) {
	if err := ValidateName(name); err != nil {
		return Profile{}, err
	}
	return Profile{Name: name, Dir: filepath.Join(home, "profiles", name)}, nil
}

func (p Profile) SocketPath() string { return filepath.Join(p.Dir, "daemon.sock") }
func (p Profile) LockPath() string   { return filepath.Join(p.Dir, "LOCK") }
func (p Profile) EnvPath() string    { return filepath.Join(p.Dir, ".env") }
func (p Profile) LogDir() string     { return filepath.Join(p.Dir, "logs") }
func (p Profile) LogPath() string    { return filepath.Join(p.LogDir(), "chatsyncd.log") }

// EnsureDirs creates the profile directory tree with owner-only permissions.
func (p Profile) EnsureDirs() error {
	for _, d := range []string{p.Dir, p.LogDir()} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

// List returns the names of profiles that exist under home.
func List(home string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(home, "profiles"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && ValidateName(e.Name()) == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
