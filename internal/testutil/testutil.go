// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/penshort/teamkeys/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema applies every down migration in reverse order, then every up
// migration in order.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}
	dir := filepath.Join(root, "migrations")

	downs, err := migrationFiles(dir, ".down.sql")
	if err != nil {
		return err
	}
	for i := len(downs) - 1; i >= 0; i-- {
		if err := execFile(ctx, pool, downs[i]); err != nil {
			return err
		}
	}

	ups, err := migrationFiles(dir, ".up.sql")
	if err != nil {
		return err
	}
	for _, path := range ups {
		if err := execFile(ctx, pool, path); err != nil {
			return err
		}
	}

	return nil
}

func migrationFiles(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func execFile(ctx context.Context, pool *pgxpool.Pool, path string) error {
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", filepath.Base(path), err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply migration %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestTeam creates a team with a fresh ID.
func NewTestTeam(t testing.TB) *model.Team {
	t.Helper()
	return &model.Team{
		ID:        uuid.NewString(),
		Name:      "Team " + UniqueID("t"),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// NewTestUser creates a user in the given team with the given role.
func NewTestUser(t testing.TB, teamID string, role model.Role) *model.User {
	t.Helper()
	id := uuid.NewString()
	return &model.User{
		ID:        id,
		TeamID:    teamID,
		Email:     id + "@example.com",
		Name:      "User " + id[:8],
		Role:      role,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// NewTestAPIKey creates a test API key with sensible defaults.
func NewTestAPIKey(t testing.TB, userID string) *model.APIKey {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.APIKey{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      "Test Key",
		KeyHash:   fmt.Sprintf("hash-%d", now.UnixNano()),
		KeyPrefix: "abc123",
		Last4:     "beef",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
