// Package config provides the console service's configuration values: where
// the backend lives, the access token to present to it, and how often the
// cached collections are refreshed. Values come from an optional YAML file
// overridden by environment variables. config.Initialize() should be called
// as close as possible to the top of the main function.
package config // import "github.com/quarterdeck-gg/console/config"

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/quarterdeck-gg/console/types"
	"github.com/quarterdeck-gg/console/utils"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

// Defaults applied before the file and environment are consulted.
const (
	defaultBackendURL   = "http://localhost:16662"
	defaultPollInterval = 60 * time.Second
	configFileName      = "console.yaml"
)

// serviceConfig stores service-global configuration values.
type serviceConfig struct {
	// backendURL is the base URL of the game-server backend
	// (scheme://host:port, no trailing slash).
	backendURL string

	// accessToken is the bearer token presented on every backend request.
	// Empty in local development, where the backend skips auth.
	accessToken types.AccessToken

	// pollInterval is how often the cached collections are re-fetched. This
	// is an explicit refresh trigger, not a TTL: cached data stays valid
	// until the next fetch or patch replaces it.
	pollInterval time.Duration
}

// config is a singleton that stores service-global configuration values.
var config serviceConfig

// rw synchronizes access to the configuration singleton.
var rw sync.RWMutex

// fileConfig is the YAML shape of the optional config file.
type fileConfig struct {
	BackendURL          string `yaml:"backend_url"`
	AccessToken         string `yaml:"access_token"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
}

// Initialize populates the configuration singleton from defaults, then the
// config file if one exists, then the environment. It never fails on a
// missing file, only on one that exists but can't be parsed.
func Initialize() error {
	next := serviceConfig{
		backendURL:   defaultBackendURL,
		pollInterval: defaultPollInterval,
	}

	if err := applyFile(&next); err != nil {
		return err
	}
	applyEnv(&next)

	rw.Lock()
	defer rw.Unlock()
	config = next
	return nil
}

// ConfigFilePath returns the location of the config file, honoring the
// CONSOLE_CONFIG environment variable.
func ConfigFilePath() string {
	if path := os.Getenv("CONSOLE_CONFIG"); path != "" {
		return path
	}
	return utils.ConfigDir + configFileName
}

// applyFile overlays values from the config file onto next, if the file
// exists.
func applyFile(next *serviceConfig) error {
	path := ConfigFilePath()

	exists, err := afero.Exists(utils.Fs, path)
	if err != nil || !exists {
		return nil
	}

	contents, err := afero.ReadFile(utils.Fs, path)
	if err != nil {
		return utils.MakeError("couldn't read config file %s: %s", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(contents, &fc); err != nil {
		return utils.MakeError("couldn't parse config file %s: %s", path, err)
	}

	if fc.BackendURL != "" {
		next.backendURL = fc.BackendURL
	}
	if fc.AccessToken != "" {
		next.accessToken = types.AccessToken(fc.AccessToken)
	}
	if fc.PollIntervalSeconds > 0 {
		next.pollInterval = time.Duration(fc.PollIntervalSeconds) * time.Second
	}

	return nil
}

// applyEnv overlays values from the environment onto next.
func applyEnv(next *serviceConfig) {
	if v := os.Getenv("BACKEND_URL"); v != "" {
		next.backendURL = v
	}
	if v := os.Getenv("ACCESS_TOKEN"); v != "" {
		next.accessToken = types.AccessToken(v)
	}
	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			next.pollInterval = time.Duration(seconds) * time.Second
		}
	}
}

// GetBackendURL returns the base URL of the game-server backend.
func GetBackendURL() string {
	rw.RLock()
	defer rw.RUnlock()

	return config.backendURL
}

// GetAccessToken returns the bearer token presented on backend requests.
func GetAccessToken() types.AccessToken {
	rw.RLock()
	defer rw.RUnlock()

	return config.accessToken
}

// GetPollInterval returns how often the cached collections are re-fetched.
func GetPollInterval() time.Duration {
	rw.RLock()
	defer rw.RUnlock()

	return config.pollInterval
}
