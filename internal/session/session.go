// Package session carries the actor context through the engine. It replaces
// ambient current-user state: a Session is built once at session start and
// passed explicitly into the repository and push channel constructors.
package session

import "ordersync/internal/models"

// Session identifies the actor and carries the bearer token for the upstream
// API. The token itself is issued by an external identity collaborator.
type Session struct {
	actor models.Actor
	token string
}

func New(actor models.Actor, token string) *Session {
	return &Session{actor: actor, token: token}
}

// CurrentActor returns the session owner.
func (s *Session) CurrentActor() models.Actor {
	return s.actor
}

// Token returns the bearer token for upstream requests.
func (s *Session) Token() string {
	return s.token
}

// IsAuthenticated reports whether the session carries credentials.
func (s *Session) IsAuthenticated() bool {
	return s.token != ""
}

// IsAdmin reports whether the actor sees all orders and joins the admin
// broadcast group.
func (s *Session) IsAdmin() bool {
	return s.actor.Role == models.RoleAdmin
}
