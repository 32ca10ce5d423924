package adminsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Requires: roles:read scope
func (c *Client) ListRoles(ctx context.Context) (*ListRolesResponse, error) {
	var out ListRolesResponse
	if err := c.do(ctx, http.MethodGet, "/v1/roles", true, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Requires: users:read scope
func (c *Client) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	var out UserResponse
	if err := c.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(id), true, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// NextNumber reserves the next reference number of a sequence kind
// (order, invoice, batch, purchase, delivery).
// Requires: sequences:write scope
func (c *Client) NextNumber(ctx context.Context, kind string) (*SequenceNumberResponse, error) {
	var out SequenceNumberResponse
	if err := c.do(ctx, http.MethodPost, "/v1/sequences/"+url.PathEscape(kind)+"/next", true, nil, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLiveness checks if the service is alive.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/livez", false, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReadiness checks if the service and its dependencies are ready.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/readyz", false, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
