package apiclient // import "github.com/quarterdeck-gg/console/apiclient"

import (
	"context"
	"encoding/json"

	"github.com/quarterdeck-gg/console/instances"
	"github.com/quarterdeck-gg/console/utils"
)

// instanceListPath is the backend's fixed resource-list endpoint.
const instanceListPath = "/instance/list"

// InstanceList fetches the full instance list and folds it into an id-keyed
// mapping. The backend answers with a JSON array of instance records; an
// empty array materializes as an empty (non-nil) mapping. A non-200 status
// yields a *TransportError, a missing or malformed body a *ShapeError.
func (c *Client) InstanceList(ctx context.Context) (instances.Mapping, error) {
	url := c.baseURL + instanceListPath

	body, err := c.get(ctx, instanceListPath)
	if err != nil {
		return nil, err
	}

	var records []instances.InstanceInfo
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &ShapeError{URL: url, Reason: err.Error()}
	}
	if records == nil {
		// The body decoded but wasn't an array (e.g. JSON null).
		return nil, &ShapeError{URL: url, Reason: "expected a JSON array of instance records"}
	}
	for i, record := range records {
		if record.UUID == "" {
			return nil, &ShapeError{URL: url, Reason: utils.Sprintf("record %d has no uuid", i)}
		}
	}

	return instances.ToMapping(records), nil
}
