package instances // import "github.com/quarterdeck-gg/console/instances"

import (
	"github.com/quarterdeck-gg/console/types"
)

// A Mapping is the materialized cache value for the instance-list query: all
// known instances keyed by their UUID. It is rebuilt wholesale on every
// successful fetch and patched copy-on-write for single-record updates.
type Mapping map[types.InstanceID]InstanceInfo

// ToMapping folds a fetched sequence of records into a Mapping. A later
// record with a duplicate UUID silently overwrites an earlier one; the
// backend is assumed to guarantee uniqueness. The result is never nil, so an
// empty response materializes as an empty (present) mapping.
func ToMapping(records []InstanceInfo) Mapping {
	m := make(Mapping, len(records))
	for _, record := range records {
		m[record.UUID] = record
	}
	return m
}

// WithUpdated returns a copy of the mapping in which only the record with
// the given id has been replaced by updater(old). Every other entry is
// carried over unchanged. If the id is not present the mapping is returned
// as is.
func (m Mapping) WithUpdated(id types.InstanceID, updater func(InstanceInfo) InstanceInfo) Mapping {
	old, ok := m[id]
	if !ok {
		return m
	}

	next := make(Mapping, len(m))
	for k, v := range m {
		next[k] = v
	}
	next[id] = updater(old)
	return next
}

// Without returns a copy of the mapping with the record for id removed and
// every other entry carried over unchanged. If the id is not present the
// mapping is returned as is.
func (m Mapping) Without(id types.InstanceID) Mapping {
	if _, ok := m[id]; !ok {
		return m
	}

	next := make(Mapping, len(m)-1)
	for k, v := range m {
		if k != id {
			next[k] = v
		}
	}
	return next
}
