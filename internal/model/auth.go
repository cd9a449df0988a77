package model

// AuthType identifies the kind of credential a request was authenticated with.
type AuthType string

// Credential types.
const (
	// AuthTypeApp is a signed application token sent as a bearer token.
	AuthTypeApp AuthType = "app"
	// AuthTypeSession is the same token carried in a session cookie.
	AuthTypeSession AuthType = "session"
	// AuthTypeAPI is an API key.
	AuthTypeAPI AuthType = "api"
)

// AuthContext holds authenticated request context.
// This is injected into the request context by auth middleware.
type AuthContext struct {
	Type AuthType
	User *User

	// Set only for API key authentication.
	KeyID     string
	KeyPrefix string
	Scope     []string
}

// UserID returns the authenticated user's ID, or "" when unset.
func (a *AuthContext) UserID() string {
	if a == nil || a.User == nil {
		return ""
	}
	return a.User.ID
}

// Principal returns a stable identifier for rate limiting.
func (a *AuthContext) Principal() string {
	if a.KeyID != "" {
		return "key:" + a.KeyID
	}
	return "user:" + a.UserID()
}
