package config

import (
	"os"
	"path/filepath"
	"sync"
)

// HomeEnv names the variable that pins the macrotool home directory. The
// home holds config.yaml, the logs/ directory and the macros/ library.
const HomeEnv = "MACROTOOL_HOME"

var (
	homeOnce sync.Once
	homeDir  string
)

// GetHome returns the macrotool home directory, resolved once per process:
// $MACROTOOL_HOME, then the install root when the binary sits in <root>/bin,
// then <user config dir>/macrotool when it exists, then the working
// directory.
func GetHome() string {
	homeOnce.Do(func() {
		homeDir = resolveHome(homeSources{
			getenv:     os.Getenv,
			executable: os.Executable,
			configDir:  os.UserConfigDir,
			getwd:      os.Getwd,
		})
	})
	return homeDir
}

// GetLogsDir returns <home>/logs, where the rotating log file goes.
func GetLogsDir() string {
	return filepath.Join(GetHome(), "logs")
}

// GetMacrosDir returns <home>/macros. Macro paths that do not exist as
// given are looked up here.
func GetMacrosDir() string {
	return filepath.Join(GetHome(), "macros")
}

// ResetHome forgets the resolved home so the next GetHome resolves again.
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}

// homeSources is the process state resolveHome reads.
type homeSources struct {
	getenv     func(string) string
	executable func() (string, error)
	configDir  func() (string, error)
	getwd      func() (string, error)
}

func resolveHome(p homeSources) string {
	if env := p.getenv(HomeEnv); env != "" {
		return env
	}

	if exe, err := p.executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		if dir := filepath.Dir(exe); filepath.Base(dir) == "bin" {
			return filepath.Dir(dir)
		}
	}

	if base, err := p.configDir(); err == nil {
		dir := filepath.Join(base, "macrotool")
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}

	if cwd, err := p.getwd(); err == nil {
		return cwd
	}
	return "."
}

// Resolve finds the configuration: an explicit path wins, then config.yaml
// (or .yml) in the working directory, then the one in the home directory.
func Resolve(explicit string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	if cwd, err := os.Getwd(); err == nil {
		for _, name := range []string{"config.yaml", "config.yml"} {
			if _, err := os.Stat(filepath.Join(cwd, name)); err == nil {
				return LoadFromDir(cwd)
			}
		}
	}
	return LoadFromDir(GetHome())
}
