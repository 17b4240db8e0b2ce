// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"
)

const (
	MaxIdentityLen = 64
)

var (
	ErrIdentityTooLong = errors.New("identity too long")
	ErrIdentityEmpty   = errors.New("identity empty")
)

// ConnID is the transport-assigned id of one live link.
type ConnID string

// Identity is an external user id handed over by the auth collaborator.
type Identity string

type Role string

const (
	RoleUnset       Role = "unset"
	RoleBroadcaster Role = "broadcaster"
	RoleObserver    Role = "observer"
)

// ParseRole accepts only the two roles a client may claim.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleBroadcaster, RoleObserver:
		return Role(s), nil
	}
	return RoleUnset, ErrInvalidRole
}

func NewIdentity(s string) (Identity, error) {
	if len(s) == 0 {
		return "", ErrIdentityEmpty
	}
	if len(s) > MaxIdentityLen {
		return "", ErrIdentityTooLong
	}
	return Identity(s), nil
}

// Connection is the registry's view of one transport link.
// ListeningTo is a back-reference into the session keyspace, never an owner.
type Connection struct {
	ID          ConnID    `json:"connection_id"`
	Role        Role      `json:"role"`
	Identity    Identity  `json:"identity,omitempty"`
	ListeningTo Identity  `json:"listening_to,omitempty"`
	ClientToken string    `json:"-"`
	ConnectedAt time.Time `json:"connected_at"`
}

func (c Connection) Registered() bool {
	return c.Role == RoleBroadcaster || c.Role == RoleObserver
}
