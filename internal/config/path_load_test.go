package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.toml"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "crabshell", "config.toml"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "crabshell", "config.toml"), resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingTOMLParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[script]
path = "bar.lua"
args = ["--verbose"]

[hyprland]
event_backlog = 32
request_timeout = "500ms"

[control]
enable = false
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "bar.lua", loaded.Config.Script.Path)
	require.Equal(t, []string{"--verbose"}, loaded.Config.Script.Args)
	require.Equal(t, 32, loaded.Config.Hyprland.EventBacklog)
	require.Equal(t, 500*time.Millisecond, loaded.Config.Hyprland.RequestTimeout.Duration)
	require.Equal(t, 6, loaded.Config.Hyprland.RequestAttempts)
	require.True(t, loaded.Config.Hyprland.SkipUnknownEvents)
	require.False(t, loaded.Config.Control.Enable)
	require.Empty(t, loaded.Warnings)
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[script\npath = 1"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}

func TestScriptPathResolvesAgainstConfigDir(t *testing.T) {
	loaded := Loaded{Path: "/home/u/.config/crabshell/config.toml", Config: Default()}

	require.Equal(t, "/home/u/.config/crabshell/main.lua", loaded.ScriptPath(""))
	require.Equal(t, "/home/u/.config/crabshell/bars/top.lua", loaded.ScriptPath("bars/top.lua"))
	require.Equal(t, "/opt/bar.lua", loaded.ScriptPath("/opt/bar.lua"))

	loaded.Config.Script.Path = "/etc/crabshell/init.lua"
	require.Equal(t, "/etc/crabshell/init.lua", loaded.ScriptPath(""))
}

func TestLoadDirectorySelectsConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("[worker]\nname_prefix = \"bg\"\n"), 0o600))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, filepath.Join(dir, FileName), loaded.Path)
	require.Equal(t, dir, loaded.Dir())
	require.Equal(t, "bg", loaded.Config.Worker.NamePrefix)
	require.Equal(t, filepath.Join(dir, DefaultScript), loaded.ScriptPath(""))
}
