package apiclient // import "github.com/quarterdeck-gg/console/apiclient"

import (
	"github.com/quarterdeck-gg/console/utils"
)

// A TransportError indicates the backend answered with a non-success HTTP
// status. The response body, if any, is discarded; the cache surfaces the
// error and keeps whatever data it already holds.
type TransportError struct {
	StatusCode int
	URL        string
}

func (e *TransportError) Error() string {
	return utils.Sprintf("backend returned status %d for %s", e.StatusCode, e.URL)
}

// A ShapeError indicates the response body was missing or did not have the
// shape the endpoint's contract promises. It is raised before anything
// reaches the cache, so a malformed response can never corrupt cached data.
type ShapeError struct {
	URL    string
	Reason string
}

func (e *ShapeError) Error() string {
	return utils.Sprintf("malformed response from %s: %s", e.URL, e.Reason)
}
