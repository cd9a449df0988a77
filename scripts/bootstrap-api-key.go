// Command bootstrap-api-key seeds a team with an admin user and prints an
// API key and app token for them.
//
//	go run scripts/bootstrap-api-key.go -team "Acme" -email admin@acme.test
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/penshort/teamkeys/internal/auth"
	"github.com/penshort/teamkeys/internal/model"
	"github.com/penshort/teamkeys/internal/repository"
)

type output struct {
	TeamID    string   `json:"team_id"`
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	KeyID     string   `json:"key_id"`
	Key       string   `json:"key"`
	KeyPrefix string   `json:"key_prefix"`
	Scope     []string `json:"scope,omitempty"`
	AppToken  string   `json:"app_token,omitempty"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		jwtSecret   = flag.String("jwt-secret", os.Getenv("JWT_SECRET"), "Secret for the app token; empty skips the token")
		teamName    = flag.String("team", "bootstrap", "Team name")
		email       = flag.String("email", "admin@teamkeys.local", "Admin user email")
		name        = flag.String("name", "bootstrap", "API key name")
		scopeInput  = flag.String("scope", "", "Comma-separated endpoint scope, e.g. /api/apiKeys.list")
		env         = flag.String("env", auth.EnvLive, "Key environment: live or test")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fail("DATABASE_URL is required")
	}

	scope, err := parseScope(*scopeInput)
	if err != nil {
		fail(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fail("connect database: " + err.Error())
	}
	defer repo.Close()

	now := time.Now().UTC()
	team := &model.Team{ID: uuid.NewString(), Name: *teamName, CreatedAt: now}
	if err := repo.CreateTeam(ctx, team); err != nil {
		fail("create team: " + err.Error())
	}

	user := &model.User{
		ID:        uuid.NewString(),
		TeamID:    team.ID,
		Email:     *email,
		Name:      "Admin",
		Role:      model.RoleAdmin,
		CreatedAt: now,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		fail("create user: " + err.Error())
	}

	generated, err := auth.GenerateAPIKey(*env)
	if err != nil {
		fail("generate api key: " + err.Error())
	}

	key := &model.APIKey{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Name:      *name,
		KeyHash:   generated.Hash,
		KeyPrefix: generated.Prefix,
		Last4:     generated.Last4,
		Scope:     scope,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateAPIKey(ctx, key); err != nil {
		fail("create api key: " + err.Error())
	}

	out := output{
		TeamID:    team.ID,
		UserID:    user.ID,
		Email:     user.Email,
		KeyID:     key.ID,
		Key:       generated.Plaintext,
		KeyPrefix: key.KeyPrefix,
		Scope:     scope,
	}

	if *jwtSecret != "" {
		token, err := auth.NewTokenIssuer(*jwtSecret, "teamkeys", 24*time.Hour).Issue(user.ID)
		if err != nil {
			fail("issue app token: " + err.Error())
		}
		out.AppToken = token
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Key)
		if out.AppToken != "" {
			fmt.Println(out.AppToken)
		}
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fail("invalid format; use plain or json")
	}
}

func parseScope(input string) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	var scope []string
	for _, part := range strings.Split(input, ",") {
		entry := strings.TrimSpace(part)
		if entry == "" {
			continue
		}
		if !strings.HasPrefix(entry, "/api/") {
			return nil, fmt.Errorf("invalid scope entry %q: must start with /api/", entry)
		}
		scope = append(scope, entry)
	}
	return scope, nil
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
