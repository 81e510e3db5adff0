package utils // import "github.com/quarterdeck-gg/console/utils"

import "github.com/google/uuid"

// This block contains the directories the console service reads its local
// state from. They're used by more than one package, so we put them in the
// least common denominator --- this package.

var (
	// ConsoleDir is the root of the console service's local state.
	ConsoleDir string = "/quarterdeck/"

	// ConfigDir holds the config file watched for live reloads.
	ConfigDir string = ConsoleDir + "config/"
)

// Note: We use this value as a placeholder UUID because it is obvious and
// immediate when parsing/searching through logs, and by using a non nil
// placeholder UUID we are able to detect the error when a UUID is nil.

// PlaceholderTestUUID returns the special uuid to use as a placeholder during tests.
func PlaceholderTestUUID() uuid.UUID {
	uuid, _ := uuid.Parse("22222222-2222-2222-2222-222222222222")
	return uuid
}
