/*
Package instances defines the console service's view of a managed game-server
instance: the full attribute snapshot the backend reports for each instance,
and the id-keyed mapping the cache materializes from the backend's list
endpoint.
*/
package instances // import "github.com/quarterdeck-gg/console/instances"

import (
	"github.com/quarterdeck-gg/console/types"
)

// A GameType identifies the game an instance hosts. Only Minecraft editions
// exist today; the type is an enum so more can be added without breaking the
// wire format.
type GameType string

// Constants for the supported game types.
const (
	GameTypeMinecraftJava    GameType = "MinecraftJava"
	GameTypeMinecraftBedrock GameType = "MinecraftBedrock"
)

// A State is the lifecycle state of an instance as reported by the backend.
// The variant set is owned by the backend contract; unknown values are kept
// verbatim rather than rejected so a backend upgrade can't wedge the cache.
type State string

// Constants for the instance lifecycle states.
const (
	StateStopped  State = "Stopped"
	StateStarting State = "Starting"
	StateRunning  State = "Running"
	StateStopping State = "Stopping"
	StateCrashed  State = "Crashed"
	StateError    State = "Error"
)

// InstanceInfo is an immutable-by-convention snapshot of one managed
// instance at fetch time. Optional numeric fields are pointers; nil means
// unset/default. Consumers must not modify a received InstanceInfo in place;
// all mutation goes through the cache's patch operations.
type InstanceInfo struct {
	UUID              types.InstanceID   `json:"uuid"`                // Stable unique identifier, primary key of the mapping
	Name              types.InstanceName `json:"name"`                // Display name
	Flavour           types.Flavour      `json:"flavour"`             // Server distribution (vanilla, fabric, paper, ...)
	GameType          GameType           `json:"game_type"`           // Game this instance hosts
	CmdArgs           []string           `json:"cmd_args"`            // Extra startup arguments
	Description       string             `json:"description"`         // Free-text description
	Port              uint32             `json:"port"`                // Network port the server listens on
	MinRAM            *uint32            `json:"min_ram"`             // Minimum memory allocation in MiB, nil for default
	MaxRAM            *uint32            `json:"max_ram"`             // Maximum memory allocation in MiB, nil for default
	CreationTime      int64              `json:"creation_time"`       // Unix timestamp of instance creation
	Path              string             `json:"path"`                // Filesystem path on the host
	AutoStart         bool               `json:"auto_start"`          // Start the instance when the backend boots
	RestartOnCrash    bool               `json:"restart_on_crash"`    // Restart automatically after a crash
	TimeoutLastLeft   *uint32            `json:"timeout_last_left"`   // Seconds after the last player leaves before shutdown, nil to disable
	TimeoutNoActivity *uint32            `json:"timeout_no_activity"` // Seconds without console activity before shutdown, nil to disable
	StartOnConnection bool               `json:"start_on_connection"` // Start lazily on the first incoming connection
	BackupPeriod      *uint32            `json:"backup_period"`       // Seconds between automatic backups, nil to disable
	State             State              `json:"state"`               // Current lifecycle state
	PlayerCount       *uint32            `json:"player_count"`        // Current player count, present only while running
	MaxPlayerCount    *uint32            `json:"max_player_count"`    // Player cap, present only while running
}
