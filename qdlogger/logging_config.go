package qdlogger // import "github.com/quarterdeck-gg/console/qdlogger"

import (
	"github.com/quarterdeck-gg/console/metadata"
)

// usingProdLogging reports whether logs should be shipped to the production
// sinks. We only do this outside local development.
func usingProdLogging() bool {
	return !metadata.IsLocalEnv()
}
