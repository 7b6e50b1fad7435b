// Package tullave is the typed client for the Tullave card information API.
// All endpoints are bearer-token authenticated GETs; every failure maps into
// the closed taxonomy of the remote package. The client never retries, the
// caller decides what to do with a failed attempt.
package tullave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vblancom/tullave-services/internal/cache"
	"github.com/vblancom/tullave-services/internal/remote"
)

const defaultTimeout = 15 * time.Second

type Client struct {
	base         string
	token        string
	http         *http.Client
	balanceCache *cache.Cache[CardBalance]
}

// NewClient builds a card API client for the given base URL and bearer
// token. Balance lookups are cached for balanceTTL.
func NewClient(base, token string, timeout, balanceTTL time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if balanceTTL <= 0 {
		balanceTTL = time.Minute
	}
	return &Client{
		base:         strings.TrimRight(base, "/"),
		token:        token,
		http:         &http.Client{Timeout: timeout},
		balanceCache: cache.New[CardBalance](balanceTTL),
	}
}

// Close releases the client's cache resources.
func (c *Client) Close() {
	c.balanceCache.Close()
}

// Validity checks whether a card serial is a valid, usable card
// (GET /card/valid/{serial}).
func (c *Client) Validity(ctx context.Context, serial string) (CardStatus, error) {
	var out CardStatus
	err := c.get(ctx, "/card/valid", serial, &out)
	return out, err
}

// Information fetches the card holder details (GET /card/getInformation/{serial}).
func (c *Client) Information(ctx context.Context, serial string) (CardInformation, error) {
	var out CardInformation
	err := c.get(ctx, "/card/getInformation", serial, &out)
	return out, err
}

// Balance fetches the card balance (GET /card/getBalance/{serial}). Results
// are served from the TTL cache when fresh.
func (c *Client) Balance(ctx context.Context, serial string) (CardBalance, error) {
	if cached, ok := c.balanceCache.Get(serial); ok {
		return cached, nil
	}

	var out CardBalance
	if err := c.get(ctx, "/card/getBalance", serial, &out); err != nil {
		return CardBalance{}, err
	}
	c.balanceCache.Set(serial, out)
	return out, nil
}

// get runs one authenticated GET against base+path+"/"+serial and decodes
// the 2xx body into out.
func (c *Client) get(ctx context.Context, path, serial string, out any) error {
	target, err := url.Parse(c.base + path + "/" + serial)
	if err != nil {
		return fmt.Errorf("%w: %v", remote.ErrInvalidRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", remote.ErrInvalidRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return &remote.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &remote.TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromStatus(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &remote.DecodeError{Err: err}
	}
	return nil
}

// errorFromStatus maps a non-2xx response into the taxonomy: a decodable
// {errorCode, errorMessage} body wins, then 401/403, then a generic
// APIError carrying the bare status.
func errorFromStatus(status int, body []byte) error {
	var apiErr apiErrorBody
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.ErrorMessage != "" {
		return &remote.APIError{
			Code:    apiErr.ErrorCode,
			Message: apiErr.ErrorMessage,
			Status:  status,
		}
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return remote.ErrAuthenticationFailed
	}

	return &remote.APIError{
		Message: fmt.Sprintf("request failed with HTTP status %d", status),
		Status:  status,
	}
}
