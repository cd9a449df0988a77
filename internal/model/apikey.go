// Package model defines domain entities for the application.
package model

import (
	"strings"
	"time"
)

// APIKeyNameMaxLength is the maximum length of a key's display name.
const APIKeyNameMaxLength = 255

// APIKey represents an API key owned by a single user.
type APIKey struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Name         string     `json:"name"`
	KeyHash      string     `json:"-"` // Never serialize
	KeyPrefix    string     `json:"key_prefix"`
	Last4        string     `json:"last4"`
	Scope        []string   `json:"scope,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// TeamID is the owning user's team, populated by queries that join users.
	TeamID string `json:"-"`
}

// IsExpired reports whether the key has passed its expiry at the given time.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// ScopePathPrefix starts every scope entry a key can be granted.
const ScopePathPrefix = "/api/"

// CanAccess reports whether the key's scope permits the given API path.
// A key without scope may call any endpoint. Scope entries have the form
// "/api/<namespace>.<method>" where either part may be "*".
func (k *APIKey) CanAccess(path string) bool {
	if len(k.Scope) == 0 {
		return true
	}

	resource := path[strings.LastIndex(path, "/")+1:]
	namespace, method, _ := strings.Cut(resource, ".")

	for _, s := range k.Scope {
		if !strings.HasPrefix(s, ScopePathPrefix) {
			continue
		}
		scopeNamespace, scopeMethod, _ := strings.Cut(strings.TrimPrefix(s, ScopePathPrefix), ".")
		if (scopeNamespace == "*" || scopeNamespace == namespace) &&
			(scopeMethod == "*" || scopeMethod == method) {
			return true
		}
	}
	return false
}
