package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Key format: tk_{env}_{prefix}_{secret}
// Example: tk_live_7a9f3c_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const (
	KeyPrefixLen = 6  // hex encoded 3 bytes
	KeySecretLen = 32 // hex encoded 16 bytes
	keyLast4Len  = 4
)

// Environment indicators embedded in the key.
const (
	EnvLive = "live"
	EnvTest = "test"
)

var (
	// ErrInvalidKeyFormat indicates the key format is invalid.
	ErrInvalidKeyFormat = errors.New("invalid API key format")

	keyFormatRegex = regexp.MustCompile(`^tk_(live|test)_([a-f0-9]{6})_([a-f0-9]{32})$`)
)

// GeneratedKey contains the parts of a newly generated API key.
type GeneratedKey struct {
	Plaintext string // Full key, returned to the caller once
	Hash      string // Argon2id hash for storage
	Prefix    string // Visible prefix used for lookup
	Last4     string // Last four characters, for display
}

// GenerateAPIKey creates a new API key for the given environment.
// Unknown environments fall back to live.
func GenerateAPIKey(env string) (*GeneratedKey, error) {
	if env != EnvLive && env != EnvTest {
		env = EnvLive
	}

	prefix, err := randomHex(KeyPrefixLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate prefix: %w", err)
	}
	secret, err := randomHex(KeySecretLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := fmt.Sprintf("tk_%s_%s_%s", env, prefix, secret)

	hash, err := HashSecret(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}

	return &GeneratedKey{
		Plaintext: plaintext,
		Hash:      hash,
		Prefix:    prefix,
		Last4:     plaintext[len(plaintext)-keyLast4Len:],
	}, nil
}

// ParsedKey contains the parsed parts of an API key.
type ParsedKey struct {
	Env    string
	Prefix string
	Secret string
}

// ParseAPIKey extracts the components from a plaintext API key.
func ParseAPIKey(key string) (*ParsedKey, error) {
	matches := keyFormatRegex.FindStringSubmatch(key)
	if matches == nil {
		return nil, ErrInvalidKeyFormat
	}

	return &ParsedKey{
		Env:    matches[1],
		Prefix: matches[2],
		Secret: matches[3],
	}, nil
}

// ValidateKeyFormat checks if the key matches the expected format.
func ValidateKeyFormat(key string) bool {
	return keyFormatRegex.MatchString(key)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
