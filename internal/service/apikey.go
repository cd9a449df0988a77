// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/penshort/teamkeys/internal/apperr"
	"github.com/penshort/teamkeys/internal/audit"
	"github.com/penshort/teamkeys/internal/auth"
	"github.com/penshort/teamkeys/internal/metrics"
	"github.com/penshort/teamkeys/internal/model"
	"github.com/penshort/teamkeys/internal/policy"
	"github.com/penshort/teamkeys/internal/repository"
)

// Actor is the authenticated principal performing an operation.
type Actor struct {
	User   *model.User
	Source audit.Source
}

// CacheInvalidator drops cached credentials for a deleted key.
type CacheInvalidator interface {
	InvalidateAPIKey(ctx context.Context, keyID string) error
}

// EventPublisher fans committed events out to other consumers.
type EventPublisher interface {
	PublishAsync(event *model.Event)
}

// APIKeyServiceOptions holds the optional collaborators of APIKeyService.
type APIKeyServiceOptions struct {
	Cache     CacheInvalidator
	Publisher EventPublisher
	Metrics   metrics.Recorder
	Logger    *slog.Logger
	// KeyEnv is embedded in minted keys ("live" or "test").
	KeyEnv string
	Now    func() time.Time
}

// APIKeyService implements create, list and delete of API keys.
type APIKeyService struct {
	store     repository.Store
	policy    policy.Checker
	recorder  *audit.Recorder
	cache     CacheInvalidator
	publisher EventPublisher
	metrics   metrics.Recorder
	logger    *slog.Logger
	keyEnv    string
	now       func() time.Time
	generate  func(env string) (*auth.GeneratedKey, error)
}

// NewAPIKeyService creates a new APIKeyService.
func NewAPIKeyService(store repository.Store, checker policy.Checker, opts APIKeyServiceOptions) *APIKeyService {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoop()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.KeyEnv == "" {
		opts.KeyEnv = auth.EnvLive
	}
	return &APIKeyService{
		store:     store,
		policy:    checker,
		recorder:  audit.NewRecorder(opts.Now),
		cache:     opts.Cache,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    opts.Logger.With("component", "service.apikey"),
		keyEnv:    opts.KeyEnv,
		now:       opts.Now,
		generate:  auth.GenerateAPIKey,
	}
}

// CreateInput defines input for creating a key. The owner is always the actor.
type CreateInput struct {
	Name      string
	ExpiresAt *time.Time
	Scope     []string
}

// CreateResult is a new key together with its only plaintext copy.
type CreateResult struct {
	Key    *model.APIKey
	Secret string
}

// Create mints a key for the acting user. Only application-token
// credentials may mint keys.
func (s *APIKeyService) Create(ctx context.Context, actor Actor, in CreateInput) (*CreateResult, error) {
	if actor.Source.AuthType != model.AuthTypeApp {
		return nil, apperr.Forbidden("API keys can only be created with an application token")
	}

	name := strings.TrimSpace(in.Name)
	now := s.now().UTC()
	if fields := validateCreate(name, in, now); fields != nil {
		return nil, apperr.Validation("Invalid request", fields)
	}

	generated, err := s.generate(s.keyEnv)
	if err != nil {
		return nil, fmt.Errorf("generate API key: %w", err)
	}

	key := &model.APIKey{
		ID:        uuid.NewString(),
		UserID:    actor.User.ID,
		TeamID:    actor.User.TeamID,
		Name:      name,
		KeyHash:   generated.Hash,
		KeyPrefix: generated.Prefix,
		Last4:     generated.Last4,
		Scope:     in.Scope,
		ExpiresAt: in.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var event *model.Event
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := policy.Authorize(ctx, s.policy, actor.User, policy.ActionCreateAPIKey, policy.TeamResource(actor.User.TeamID)); err != nil {
			return err
		}
		if err := tx.CreateAPIKey(ctx, key); err != nil {
			return err
		}
		event, err = s.recorder.Record(ctx, tx, model.EventAPIKeyCreate, actor.User, key.ID,
			map[string]any{"name": key.Name}, actor.Source)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncAPIKeyCreated()
	s.publish(event)
	s.logger.InfoContext(ctx, "api key created",
		slog.String("key_id", key.ID),
		slog.String("user_id", key.UserID),
	)

	return &CreateResult{Key: key, Secret: generated.Plaintext}, nil
}

func validateCreate(name string, in CreateInput, now time.Time) map[string]string {
	fields := map[string]string{}
	if name == "" {
		fields["name"] = "is required"
	} else if utf8.RuneCountInString(name) > model.APIKeyNameMaxLength {
		fields["name"] = fmt.Sprintf("must be at most %d characters", model.APIKeyNameMaxLength)
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		fields["expiresAt"] = "must be in the future"
	}
	for _, entry := range in.Scope {
		if !strings.HasPrefix(entry, model.ScopePathPrefix) {
			fields["scope"] = "entries must be API paths starting with " + model.ScopePathPrefix
			break
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ListInput defines input for listing keys.
type ListInput struct {
	// UserID optionally narrows the listing to one user.
	UserID string
}

// ListResult is one page of keys plus the total matching count.
type ListResult struct {
	Keys  []*model.APIKey
	Total int
	Scope Scope
}

// List returns the keys visible to the actor, newest first.
//
// Without a user, admins see the whole team and everyone else sees their
// own keys. With a user, the user is loaded first and then authorized,
// so an unknown ID is reported as not found even to callers who could not
// list it.
func (s *APIKeyService) List(ctx context.Context, actor Actor, in ListInput, page model.Page) (*ListResult, error) {
	canListTeam := s.policy.Check(ctx, actor.User, policy.ActionListAPIKeys, policy.TeamResource(actor.User.TeamID)).Allowed

	var target *model.User
	if in.UserID != "" {
		if _, err := uuid.Parse(in.UserID); err != nil {
			return nil, apperr.Validation("Invalid request", map[string]string{"userId": "must be a valid UUID"})
		}
		user, err := s.store.GetUserByID(ctx, in.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil, apperr.NotFound("User not found")
			}
			return nil, err
		}
		if err := policy.Authorize(ctx, s.policy, actor.User, policy.ActionListAPIKeys, policy.UserResource(user)); err != nil {
			return nil, err
		}
		target = user
	}

	scope := ResolveScope(actor.User, canListTeam, target)
	filter := scope.Filter()

	keys, err := s.store.ListAPIKeys(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountAPIKeys(ctx, filter)
	if err != nil {
		return nil, err
	}

	s.metrics.IncAPIKeyListed()
	return &ListResult{Keys: keys, Total: total, Scope: scope}, nil
}

// Delete removes a key. The row is locked for the duration of the
// transaction, so concurrent deletes of the same key serialize and all but
// one observe not found.
func (s *APIKeyService) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation("Invalid request", map[string]string{"id": "must be a valid UUID"})
	}

	var event *model.Event
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		key, err := tx.GetAPIKeyForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrAPIKeyNotFound) {
				return apperr.NotFound("API key not found")
			}
			return err
		}
		if err := policy.Authorize(ctx, s.policy, actor.User, policy.ActionDelete, policy.APIKeyResource(key)); err != nil {
			return err
		}
		if err := tx.DeleteAPIKey(ctx, key.ID); err != nil {
			if errors.Is(err, repository.ErrAPIKeyNotFound) {
				return apperr.NotFound("API key not found")
			}
			return err
		}
		event, err = s.recorder.Record(ctx, tx, model.EventAPIKeyDelete, actor.User, key.ID,
			map[string]any{"name": key.Name}, actor.Source)
		return err
	})
	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateAPIKey(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate cached credentials",
				slog.String("key_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	s.metrics.IncAPIKeyDeleted()
	s.publish(event)
	s.logger.InfoContext(ctx, "api key deleted", slog.String("key_id", id))
	return nil
}

func (s *APIKeyService) publish(event *model.Event) {
	if s.publisher != nil && event != nil {
		s.publisher.PublishAsync(event)
	}
}
