package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/wayfare-social/wayfare-chat/pkg/config"
)

const Logo = "🧭"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

// GetConfigDir returns the per-user wayfare-chat directory, which holds the
// config file and the session record.
func GetConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wayfare-chat")
}

func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.json")
}

func LoadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(GetConfigPath())
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

// GetVersion returns the version string
func GetVersion() string {
	return version
}
