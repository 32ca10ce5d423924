// Package notify delivers outbound messages about invitations and new
// accounts. Rendering is deliberately plain text; the storefront owns any
// branded templates.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// InvitationNotice is everything a recipient needs to act on an invitation.
type InvitationNotice struct {
	InvitationID string
	Email        string
	Token        string
	Role         string
	SenderName   string
	ExpiresAt    time.Time
	Link         string // <base>/register/<token>
}

// WelcomeNotice goes out once an invitation has been accepted.
type WelcomeNotice struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

type Dispatcher interface {
	SendInvitation(ctx context.Context, n InvitationNotice) error
	SendWelcome(ctx context.Context, n WelcomeNotice) error
}

// RegistrationLink joins the public base URL and the token into the link
// embedded in invitation messages.
func RegistrationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/register/" + token
}

func invitationSubject(n InvitationNotice) string {
	return fmt.Sprintf("%s invited you to join the team", n.SenderName)
}

func invitationBody(n InvitationNotice) string {
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	fmt.Fprintf(&b, "%s has invited you to join as %s.\n", n.SenderName, n.Role)
	b.WriteString("Open the link below to create your account:\n\n")
	b.WriteString(n.Link + "\n\n")
	fmt.Fprintf(&b, "The link expires on %s.\n", n.ExpiresAt.UTC().Format("Mon 2 Jan 2006 15:04 MST"))
	b.WriteString("If you were not expecting this message you can ignore it.\n")
	return b.String()
}

func welcomeSubject(WelcomeNotice) string { return "Your account is ready" }

func welcomeBody(n WelcomeNotice) string {
	return fmt.Sprintf("Hi %s,\n\nYour account has been created with the %s role. You can sign in now.\n", n.Name, n.Role)
}

// Memory keeps notices in memory. It backs tests and local runs without a
// mail server.
type Memory struct {
	mu          sync.Mutex
	invitations []InvitationNotice
	welcomes    []WelcomeNotice
}

func (m *Memory) SendInvitation(_ context.Context, n InvitationNotice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invitations = append(m.invitations, n)
	return nil
}

func (m *Memory) SendWelcome(_ context.Context, n WelcomeNotice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes = append(m.welcomes, n)
	return nil
}

func (m *Memory) Invitations() []InvitationNotice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]InvitationNotice(nil), m.invitations...)
}

func (m *Memory) Welcomes() []WelcomeNotice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WelcomeNotice(nil), m.welcomes...)
}

// LastInvitation returns the most recent notice for email.
func (m *Memory) LastInvitation(email string) (InvitationNotice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.invitations) - 1; i >= 0; i-- {
		if m.invitations[i].Email == email {
			return m.invitations[i], true
		}
	}
	return InvitationNotice{}, false
}
