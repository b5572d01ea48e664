// Package session keeps the signed-in user of a device.
package session

import (
	"context"
	"fmt"

	"crewlog/internal/roster"
)

// Slot keys of the persisted session.
const (
	KeyIdentifier  = "identifier"
	KeyDisplayName = "display_name"
	KeyRole        = "role"
)

// Session is the signed-in user of one device.
type Session struct {
	Identifier  string      `json:"rut"`
	DisplayName string      `json:"name"`
	Role        roster.Role `json:"-"`
}

// RoleLabel returns the persisted role label.
func (s Session) RoleLabel() string { return s.Role.String() }

// Manager runs the session lifecycle against one device store.
type Manager struct {
	store Store
}

// NewManager wraps store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Load reads the session back. ok is false when nobody is signed in.
func (m *Manager) Load(ctx context.Context) (Session, bool, error) {
	id, ok, err := m.store.Get(ctx, KeyIdentifier)
	if err != nil {
		return Session{}, false, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok || id == "" {
		return Session{}, false, nil
	}
	name, _, err := m.store.Get(ctx, KeyDisplayName)
	if err != nil {
		return Session{}, false, fmt.Errorf("failed to read session: %w", err)
	}
	role, _, err := m.store.Get(ctx, KeyRole)
	if err != nil {
		return Session{}, false, fmt.Errorf("failed to read session: %w", err)
	}
	return Session{Identifier: id, DisplayName: name, Role: roster.ParseRole(role)}, true, nil
}

// SignIn persists u as the device's session.
func (m *Manager) SignIn(ctx context.Context, u roster.User) (Session, error) {
	s := Session{Identifier: u.RUT, DisplayName: u.Name, Role: u.Role}
	for _, kv := range [][2]string{
		{KeyIdentifier, s.Identifier},
		{KeyDisplayName, s.DisplayName},
		{KeyRole, s.Role.String()},
	} {
		if err := m.store.Set(ctx, kv[0], kv[1]); err != nil {
			return Session{}, fmt.Errorf("failed to write session: %w", err)
		}
	}
	return s, nil
}

// SignOut clears every slot, the role included.
func (m *Manager) SignOut(ctx context.Context) error {
	for _, key := range []string{KeyIdentifier, KeyDisplayName, KeyRole} {
		if err := m.store.Remove(ctx, key); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
	}
	return nil
}
