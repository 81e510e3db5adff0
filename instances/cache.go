package instances // import "github.com/quarterdeck-gg/console/instances"

import (
	"github.com/quarterdeck-gg/console/querycache"
	"github.com/quarterdeck-gg/console/types"
)

// ListKey addresses the cached instance-list mapping in the query cache.
var ListKey = querycache.Key{Resource: "instances", Op: "list"}

// UpdateOne patches a single cached record by id, leaving every other record
// untouched. It makes no network call: callers use it once they already know
// the remote side effect happened, e.g. in response to a push event. A
// missing id is a no-op.
func UpdateOne(store *querycache.Store[Mapping], id types.InstanceID, updater func(InstanceInfo) InstanceInfo) {
	store.Mutate(ListKey, func(m Mapping) Mapping {
		return m.WithUpdated(id, updater)
	})
}

// DeleteOne removes a single cached record by id, leaving every other record
// untouched. Deleting an id that isn't cached is a no-op, not an error.
func DeleteOne(store *querycache.Store[Mapping], id types.InstanceID) {
	store.Mutate(ListKey, func(m Mapping) Mapping {
		return m.Without(id)
	})
}
