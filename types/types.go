// Package types contains the shared ID and token types used across the
// console service. We define this package separately so that the model,
// cache, and transport packages can all pass these types around without
// depending on each other.
package types // import "github.com/quarterdeck-gg/console/types"

// We define special types for the following string types for all the benefits
// of type safety, including making sure we never mix up instance UUIDs and
// display names, for instance.

type (
	// An InstanceID is the stable UUID assigned to a managed instance by the
	// backend when the instance is created. It is the primary key of the
	// cached instance mapping and never changes for the lifetime of the
	// underlying instance.
	InstanceID string

	// InstanceName is the display name given to an instance by the user.
	// Unlike InstanceID it may change between fetches.
	InstanceName string

	// Flavour identifies the server distribution an instance runs
	// (e.g. "vanilla", "fabric", "paper").
	Flavour string

	// AccessToken is the bearer token presented to the backend on every
	// request. It is a JWT minted by the backend's auth layer; the console
	// service carries it but never verifies its signature.
	AccessToken string
)

// String returns the string representation of an InstanceID.
func (id InstanceID) String() string {
	return string(id)
}
