// Package metadata reports which environment the console service is running
// in. Other packages (most notably the logger) use it to decide whether to
// ship logs to production sinks or keep everything local.
package metadata // import "github.com/quarterdeck-gg/console/metadata"

import (
	"os"
	"strings"
)

// An AppEnvironment represents either localdev (i.e. an engineer's
// development machine), dev (i.e. talking to the dev backend), staging, or
// prod.
type AppEnvironment string

// Constants for the various AppEnvironments. DO NOT CHANGE THESE without
// understanding how any consumers of GetAppEnvironment() and
// GetAppEnvironmentLowercase() are using them!
const (
	EnvLocalDev AppEnvironment = "localdev"
	EnvDev      AppEnvironment = "dev"
	EnvStaging  AppEnvironment = "staging"
	EnvProd     AppEnvironment = "prod"
)

// GetAppEnvironment returns the AppEnvironment of the current process.
var GetAppEnvironment func() AppEnvironment = func(unmemoized func() AppEnvironment) func() AppEnvironment {
	// This nested function syntax is used to memoize the result of the first
	// call to GetAppEnvironment() and cache the result for all future calls.

	var isCached = false
	var cache AppEnvironment

	return func() AppEnvironment {
		if isCached {
			return cache
		}
		cache = unmemoized()
		isCached = true
		return cache
	}
}(func() AppEnvironment {
	env := strings.ToLower(os.Getenv("APP_ENV"))
	switch env {
	case "development", "dev":
		return EnvDev
	case "staging":
		return EnvStaging
	case "production", "prod":
		return EnvProd
	default:
		return EnvLocalDev
	}
})

// GetAppEnvironmentLowercase returns the app environment string, but just
// in lowercase.
func GetAppEnvironmentLowercase() string {
	return strings.ToLower(string(GetAppEnvironment()))
}

// IsLocalEnv returns true if the console service is running locally for
// development.
func IsLocalEnv() bool {
	return GetAppEnvironment() == EnvLocalDev
}

// GetGitCommit returns the git commit hash of this build, injected through
// the GIT_COMMIT environment variable by CI.
func GetGitCommit() string {
	return os.Getenv("GIT_COMMIT")
}
