// Package adminsdk is a Go client for the bakeboard admin service.
//
// Operator calls (invitations, roles, users, sequence numbers) need a bearer
// token carrying the matching scope, for example one minted with
// cmd/admin-token. The registration calls are public and only need the
// invitation token from the registration link.
//
//	c := adminsdk.NewClient("http://localhost:8080", operatorToken)
//	inv, err := c.IssueInvitation(ctx, adminsdk.IssueInvitationRequest{
//		Email: "new.baker@example.com",
//		Role:  "staff",
//	})
//
// Errors returned by the service are *APIError values carrying the HTTP status
// and the machine readable error code.
package adminsdk
