package adminsdk

import (
	"context"
	"net/http"
	"net/url"
)

// InspectRegistration loads the invitation behind a registration token. Each
// call counts against the token's attempt limit.
func (c *Client) InspectRegistration(ctx context.Context, token string) (*RegistrationInfo, error) {
	var out RegistrationInfo
	if err := c.do(ctx, http.MethodGet, "/register/"+url.PathEscape(token), false, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register accepts the invitation and creates the account.
func (c *Client) Register(ctx context.Context, token string, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/register/"+url.PathEscape(token), false, req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}
