package adminsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// IssueInvitation creates an invitation. The response carries the raw token,
// which cannot be fetched again.
// Requires: invitations:write scope
func (c *Client) IssueInvitation(ctx context.Context, req IssueInvitationRequest) (*InvitationResponse, error) {
	var out InvitationResponse
	if err := c.do(ctx, http.MethodPost, "/v1/invitations", true, req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInvitations returns invitations, newest first.
// Requires: invitations:read scope
func (c *Client) ListInvitations(ctx context.Context, p ListInvitationsParams) (*ListInvitationsResponse, error) {
	q := url.Values{}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.Email != "" {
		q.Set("email", p.Email)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}

	path := "/v1/invitations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out ListInvitationsResponse
	if err := c.do(ctx, http.MethodGet, path, true, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Requires: invitations:read scope
func (c *Client) GetInvitation(ctx context.Context, id string) (*InvitationResponse, error) {
	var out InvitationResponse
	if err := c.do(ctx, http.MethodGet, "/v1/invitations/"+url.PathEscape(id), true, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResendInvitation issues a new token and restarts the validity window.
// Requires: invitations:write scope
func (c *Client) ResendInvitation(ctx context.Context, id string, validDays int) (*InvitationResponse, error) {
	var out InvitationResponse
	err := c.do(ctx, http.MethodPost, "/v1/invitations/"+url.PathEscape(id)+"/resend", true,
		ResendInvitationRequest{ValidDays: validDays}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeInvitation expires an invitation immediately.
// Requires: invitations:write scope
func (c *Client) RevokeInvitation(ctx context.Context, id string) (*InvitationResponse, error) {
	var out InvitationResponse
	if err := c.do(ctx, http.MethodPost, "/v1/invitations/"+url.PathEscape(id)+"/revoke", true, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
