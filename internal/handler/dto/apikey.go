// Package dto provides the request bodies and response envelopes of the API.
package dto

import (
	"net/url"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/penshort/teamkeys/internal/model"
)

// CreateAPIKeyRequest is the body of apiKeys.create.
type CreateAPIKeyRequest struct {
	Name      string     `json:"name" validate:"required,notblank,max=255"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Scope     []string   `json:"scope,omitempty" validate:"omitempty,max=50,dive,required,startswith=/api/"`
}

// ListAPIKeysRequest is the body of apiKeys.list.
type ListAPIKeysRequest struct {
	UserID string `json:"userId,omitempty" validate:"omitempty,uuid"`
}

// DeleteAPIKeyRequest is the body of apiKeys.delete.
type DeleteAPIKeyRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

// APIKey is the presented form of a key. Value is only set on create.
type APIKey struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Name         string     `json:"name"`
	Value        string     `json:"value,omitempty"`
	Last4        string     `json:"last4"`
	Scope        []string   `json:"scope"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	LastActiveAt *time.Time `json:"lastActiveAt"`
}

// PresentAPIKey converts a stored key. The hash never leaves the service.
func PresentAPIKey(k *model.APIKey) APIKey {
	scope := k.Scope
	if scope == nil {
		scope = []string{}
	}
	return APIKey{
		ID:           k.ID,
		UserID:       k.UserID,
		Name:         k.Name,
		Last4:        k.Last4,
		Scope:        scope,
		CreatedAt:    k.CreatedAt,
		UpdatedAt:    k.UpdatedAt,
		ExpiresAt:    k.ExpiresAt,
		LastActiveAt: k.LastActiveAt,
	}
}

// PresentAPIKeys converts a page of stored keys.
func PresentAPIKeys(keys []*model.APIKey) []APIKey {
	return lo.Map(keys, func(k *model.APIKey, _ int) APIKey {
		return PresentAPIKey(k)
	})
}

// DataResponse wraps a single object.
type DataResponse[T any] struct {
	Data T `json:"data"`
}

// Pagination describes the returned window.
type Pagination struct {
	Offset   int    `json:"offset"`
	Limit    int    `json:"limit"`
	Total    int    `json:"total"`
	NextPath string `json:"nextPath"`
}

// ListResponse wraps a page of objects.
type ListResponse[T any] struct {
	Pagination Pagination `json:"pagination"`
	Data       []T        `json:"data"`
}

// SuccessResponse acknowledges an operation without a payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// NewPagination builds pagination metadata. NextPath points at the next
// page of the same endpoint, or is empty on the last page.
func NewPagination(path string, page model.Page, total int) Pagination {
	p := Pagination{Offset: page.Offset, Limit: page.Limit, Total: total}
	if page.Limit > 0 && page.Offset < total-page.Limit {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(page.Limit))
		q.Set("offset", strconv.Itoa(page.Offset+page.Limit))
		p.NextPath = path + "?" + q.Encode()
	}
	return p
}
