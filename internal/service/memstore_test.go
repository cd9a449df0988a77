package service

import (
	"context"
	"sort"
	"sync"

	"github.com/penshort/teamkeys/internal/model"
	"github.com/penshort/teamkeys/internal/repository"
)

// memStore is an in-memory repository.Store. A transaction holds a global
// lock, which serializes it the way a row lock would for the rows it
// touches, and restores a snapshot on error.
type memStore struct {
	mu   *sync.Mutex
	data *memData
	inTx bool
}

type memData struct {
	teams  map[string]*model.Team
	users  map[string]*model.User
	keys   map[string]*model.APIKey
	events []*model.Event

	failCreateEvent error
}

func newMemStore() *memStore {
	return &memStore{
		mu: &sync.Mutex{},
		data: &memData{
			teams: map[string]*model.Team{},
			users: map[string]*model.User{},
			keys:  map[string]*model.APIKey{},
		},
	}
}

func (m *memStore) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (d *memData) clone() *memData {
	c := &memData{
		teams:           make(map[string]*model.Team, len(d.teams)),
		users:           make(map[string]*model.User, len(d.users)),
		keys:            make(map[string]*model.APIKey, len(d.keys)),
		events:          append([]*model.Event(nil), d.events...),
		failCreateEvent: d.failCreateEvent,
	}
	for k, v := range d.teams {
		c.teams[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.keys {
		c.keys[k] = v
	}
	return c
}

func (m *memStore) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(&memStore{mu: m.mu, data: m.data, inTx: true}); err != nil {
		*m.data = *snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		*m.data = *snapshot
		return err
	}
	return nil
}

func (m *memStore) addTeam(t *model.Team) {
	defer m.lock()()
	m.data.teams[t.ID] = t
}

func (m *memStore) addUser(u *model.User) {
	defer m.lock()()
	m.data.users[u.ID] = u
}

func (m *memStore) GetTeamByID(_ context.Context, id string) (*model.Team, error) {
	defer m.lock()()
	t, ok := m.data.teams[id]
	if !ok {
		return nil, repository.ErrTeamNotFound
	}
	return t, nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	defer m.lock()()
	u, ok := m.data.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memStore) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	defer m.lock()()
	if _, ok := m.data.keys[key.ID]; ok {
		return repository.ErrAPIKeyExists
	}
	stored := *key
	if u, ok := m.data.users[key.UserID]; ok {
		stored.TeamID = u.TeamID
	}
	m.data.keys[key.ID] = &stored
	return nil
}

func (m *memStore) GetAPIKeyForUpdate(_ context.Context, id string) (*model.APIKey, error) {
	defer m.lock()()
	k, ok := m.data.keys[id]
	if !ok {
		return nil, repository.ErrAPIKeyNotFound
	}
	cp := *k
	return &cp, nil
}

func (m *memStore) DeleteAPIKey(_ context.Context, id string) error {
	defer m.lock()()
	if _, ok := m.data.keys[id]; !ok {
		return repository.ErrAPIKeyNotFound
	}
	delete(m.data.keys, id)
	return nil
}

func (m *memStore) match(f repository.APIKeyFilter) []*model.APIKey {
	var out []*model.APIKey
	for _, k := range m.data.keys {
		u, ok := m.data.users[k.UserID]
		if !ok || u.TeamID != f.TeamID {
			continue
		}
		if f.UserID != "" && u.ID != f.UserID {
			continue
		}
		cp := *k
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *memStore) ListAPIKeys(_ context.Context, f repository.APIKeyFilter, page model.Page) ([]*model.APIKey, error) {
	defer m.lock()()
	if f.TeamID == "" {
		return nil, repository.ErrFilterMissingTeam
	}
	all := m.match(f)
	if page.Offset >= len(all) {
		return []*model.APIKey{}, nil
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end], nil
}

func (m *memStore) CountAPIKeys(_ context.Context, f repository.APIKeyFilter) (int, error) {
	defer m.lock()()
	if f.TeamID == "" {
		return 0, repository.ErrFilterMissingTeam
	}
	return len(m.match(f)), nil
}

func (m *memStore) CreateEvent(_ context.Context, e *model.Event) error {
	defer m.lock()()
	if m.data.failCreateEvent != nil {
		return m.data.failCreateEvent
	}
	m.data.events = append(m.data.events, e)
	return nil
}

func (m *memStore) keyCount() int {
	defer m.lock()()
	return len(m.data.keys)
}

func (m *memStore) eventsFor(modelID string) []*model.Event {
	defer m.lock()()
	var out []*model.Event
	for _, e := range m.data.events {
		if e.ModelID == modelID {
			out = append(out, e)
		}
	}
	return out
}

func (m *memStore) eventCount() int {
	defer m.lock()()
	return len(m.data.events)
}

func (m *memStore) setFailCreateEvent(err error) {
	defer m.lock()()
	m.data.failCreateEvent = err
}
