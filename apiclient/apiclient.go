/*
Package apiclient is the console service's REST client for the game-server
backend. It performs the network round trips, validates response shapes, and
normalizes list responses into the id-keyed mappings the query cache stores.
It does no caching itself; that is the querycache package's job.
*/
package apiclient // import "github.com/quarterdeck-gg/console/apiclient"

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/lithammer/shortuuid/v3"
	logger "github.com/quarterdeck-gg/console/qdlogger"
	"github.com/quarterdeck-gg/console/types"
	"github.com/quarterdeck-gg/console/utils"
	"golang.org/x/time/rate"
)

// requestTimeout bounds any single round trip to the backend. Retry policy,
// if any, belongs to the caller.
const requestTimeout = 30 * time.Second

// requestsPerSecond limits how fast the console service polls the backend,
// so a misconfigured refresh loop can't hammer it.
const requestsPerSecond = 10

// A Client talks to one backend over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL     string
	accessToken func() types.AccessToken
	httpClient  *http.Client
	limiter     *rate.Limiter
	warnExpired sync.Once
}

// New creates a client for the backend at baseURL (scheme://host:port,
// without a trailing slash). The access token is resolved through the given
// function on every request, so a token rotated by a config reload takes
// effect without restarting. A nil function (or an empty token, as in local
// development where the backend skips auth) means requests go out
// unauthenticated.
func New(baseURL string, accessToken func() types.AccessToken) *Client {
	if accessToken == nil {
		accessToken = func() types.AccessToken { return "" }
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: requestTimeout},
		limiter:     rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// get performs a rate-limited GET against path and returns the response body
// on a 200. Any non-success status yields a *TransportError, an empty body a
// *ShapeError.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, utils.MakeError("couldn't create request for %s: %s", url, err)
	}

	if token := c.accessToken(); token != "" {
		c.warnIfTokenExpired(token)
		req.Header.Set("Authorization", "Bearer "+string(token))
	}
	req.Header.Set("X-Request-ID", shortuuid.New())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.MakeError("couldn't read response body from %s: %s", url, err)
	}
	if len(body) == 0 {
		return nil, &ShapeError{URL: url, Reason: "empty response body"}
	}

	return body, nil
}

// warnIfTokenExpired logs a warning (once) when the configured access token
// has passed its expiry claim. The token is a JWT minted by the backend; we
// only inspect it, never verify it, since verification is the backend's job.
func (c *Client) warnIfTokenExpired(token types.AccessToken) {
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(string(token), &claims)
	if err != nil || claims.ExpiresAt == nil {
		return
	}

	if time.Now().After(claims.ExpiresAt.Time) {
		c.warnExpired.Do(func() {
			logger.Warningf("access token expired at %s; the backend will start rejecting requests", claims.ExpiresAt.Time)
		})
	}
}
