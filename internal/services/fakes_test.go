package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/core"
)

// memStore is an in-memory stand-in for the SQLite repository.
type memStore struct {
	mu         sync.Mutex
	seq        int
	txs        map[string]core.Transaction
	categories map[string]core.Category
	users      map[string]core.User
	seeded     bool
}

func newMemStore() *memStore {
	return &memStore{
		txs:        map[string]core.Transaction{},
		categories: map[string]core.Category{},
		users:      map[string]core.User{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return prefix + "-" + strconv.Itoa(m.seq)
}

func (m *memStore) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx.ID = m.nextID("tx")
	m.txs[tx.ID] = tx
	return tx, nil
}

func (m *memStore) GetTransaction(_ context.Context, ownerID, id string) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok || tx.OwnerID != ownerID {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (m *memStore) UpdateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.txs[tx.ID]; !ok || old.OwnerID != tx.OwnerID {
		return core.Transaction{}, core.ErrNotFound
	}
	m.txs[tx.ID] = tx
	return tx, nil
}

func (m *memStore) DeleteTransaction(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx, ok := m.txs[id]; !ok || tx.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(m.txs, id)
	return nil
}

func (m *memStore) ListTransactions(_ context.Context, ownerID string, from, to time.Time) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []core.Transaction{}
	for _, tx := range m.txs {
		if tx.OwnerID != ownerID {
			continue
		}
		if !from.IsZero() && tx.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !tx.Date.Before(to) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (m *memStore) SeedDefaultCategories(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seeded {
		return 0, core.ErrAlreadyExists
	}
	m.seeded = true
	seeds := core.DefaultCategories()
	for _, s := range seeds {
		id := m.nextID("default")
		m.categories[id] = core.Category{ID: id, Name: s.Name, Emoji: s.Emoji, Type: s.Type, IsDefault: true}
	}
	return len(seeds), nil
}

func (m *memStore) FindVisibleCategories(_ context.Context, ownerID string) ([]core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []core.Category{}
	for _, c := range m.categories {
		if c.IsDefault || c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) GetVisibleCategory(_ context.Context, ownerID, id string) (core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok || (!c.IsDefault && c.OwnerID != ownerID) {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (m *memStore) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID("cat")
	m.categories[c.ID] = c
	return c, nil
}

func (m *memStore) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.categories[c.ID]
	if !ok || old.IsDefault || old.OwnerID != c.OwnerID {
		return core.Category{}, core.ErrNotFound
	}
	m.categories[c.ID] = c
	return c, nil
}

func (m *memStore) DeleteCategory(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok || c.IsDefault || c.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *memStore) CreateUser(_ context.Context, u core.User) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return core.User{}, core.ErrAlreadyExists
		}
	}
	u.ID = m.nextID("user")
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (m *memStore) UpdateUserPreferences(_ context.Context, id string, currency core.Currency, theme string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	if currency != "" {
		u.BaseCurrency = currency
	}
	if theme != "" {
		u.Theme = theme
	}
	m.users[id] = u
	return u, nil
}

func (m *memStore) UpdateUserProfile(_ context.Context, u core.User) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.users {
		if id != u.ID && existing.Email == u.Email {
			return core.User{}, core.ErrAlreadyExists
		}
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *memStore) MarkUserVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.Verified = true
	m.users[id] = u
	return nil
}

// recordingPublisher captures published events and can be told to fail.
type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.TransactionEvent
	err    error
}

func (p *recordingPublisher) PublishTransactionEvent(_ context.Context, e *amqp.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, *e)
	return nil
}

type fakeGoogle struct {
	id  auth.GoogleIdentity
	err error
}

func (f fakeGoogle) Verify(context.Context, string) (auth.GoogleIdentity, error) {
	return f.id, f.err
}

var errBroker = errors.New("broker unavailable")

func ptr[T any](v T) *T { return &v }
