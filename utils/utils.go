package utils // import "github.com/quarterdeck-gg/console/utils"

import (
	"fmt"

	"github.com/spf13/afero"
)

// Fs is the filesystem used by the console service for all file access. We
// use afero so tests can swap in an in-memory filesystem.
var Fs = afero.NewOsFs()

// MakeError is a utility function to create an error from a format string and
// args. We use this instead of fmt.Errorf directly so that error construction
// is uniform across the codebase and easy to grep for.
func MakeError(format string, v ...interface{}) error {
	return fmt.Errorf(format, v...)
}

// Sprintf is a convenience wrapper for fmt.Sprintf.
func Sprintf(format string, v ...interface{}) string {
	return fmt.Sprintf(format, v...)
}
