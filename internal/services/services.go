// Package services implements the MamaBoss use cases on top of the
// document store: each module loads a user's whole collection, changes
// it in memory and writes it back.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"mamaboss/internal/core"
	"mamaboss/internal/log"
	"mamaboss/internal/metrics"
	"mamaboss/internal/storage"
)

var (
	ErrQuotaExceeded   = errors.New("plan limit reached")
	ErrPremiumRequired = errors.New("premium plan required")
	ErrPlanNotFound    = errors.New("plan not found")
	ErrNoSubscription  = errors.New("no subscription")
	ErrPaymentDeclined = errors.New("payment declined")
	ErrMethodNotFound  = errors.New("payment method not found")
	ErrAlreadyOnPlan   = errors.New("already subscribed to this plan")
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Store    storage.Store
	Logger   *log.Logger
	Metrics  *metrics.Metrics
	Location *time.Location
	Now      func() time.Time
	Changes  *Notifier
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = log.Discard()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// now returns the current time in the configured location.
func (d Deps) now() time.Time {
	return d.Now().In(d.Location)
}

// Notifier fans out "user data changed" signals. A nil Notifier drops them.
type Notifier struct {
	mu  sync.RWMutex
	fns []func(userID string)
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) Subscribe(fn func(userID string)) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fns = append(n.fns, fn)
}

func (n *Notifier) Notify(userID string) {
	if n == nil {
		return
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, fn := range n.fns {
		fn(userID)
	}
}

// keyedMutex serializes load-modify-save cycles per user.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// collection is one per-user JSON array document.
type collection[T any] struct {
	deps  Deps
	key   string
	locks *keyedMutex
	seed  func(userID string) []T
}

func newCollection[T any](deps Deps, key string) collection[T] {
	return collection[T]{deps: deps, key: key, locks: &keyedMutex{}}
}

// withSeed makes absent documents start out as seed(userID).
func (c collection[T]) withSeed(seed func(userID string) []T) collection[T] {
	c.seed = seed
	return c
}

// list returns the stored items, the seed when nothing is stored, or an
// empty slice.
func (c collection[T]) list(ctx context.Context, userID string) ([]T, error) {
	items, found, err := storage.Load[[]T](ctx, c.deps.Store, userID, c.key)
	if err != nil {
		return nil, err
	}
	if !found && c.seed != nil {
		items = c.seed(userID)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// ensure writes the seed when the document is absent and returns the items.
func (c collection[T]) ensure(ctx context.Context, userID string) ([]T, error) {
	unlock := c.locks.lock(userID)
	defer unlock()

	items, found, err := storage.Load[[]T](ctx, c.deps.Store, userID, c.key)
	if err != nil {
		return nil, err
	}
	if found || c.seed == nil {
		if items == nil {
			items = []T{}
		}
		return items, nil
	}
	items = c.seed(userID)
	if err := storage.Save(ctx, c.deps.Store, userID, c.key, items); err != nil {
		return nil, err
	}
	return items, nil
}

// update runs fn over the stored items under the user's lock and saves
// the result. Nothing is written when fn fails.
func (c collection[T]) update(ctx context.Context, userID string, fn func([]T) ([]T, error)) error {
	unlock := c.locks.lock(userID)
	defer unlock()

	items, err := c.list(ctx, userID)
	if err != nil {
		return err
	}
	items, err = fn(items)
	if err != nil {
		return err
	}
	if err := storage.Save(ctx, c.deps.Store, userID, c.key, items); err != nil {
		return err
	}
	c.deps.Changes.Notify(userID)
	return nil
}

// replace overwrites the stored items.
func (c collection[T]) replace(ctx context.Context, userID string, items []T) error {
	return c.update(ctx, userID, func([]T) ([]T, error) { return items, nil })
}

// indexOf finds the item with id, or returns core.ErrNotFound.
func indexOf[T any](items []T, id string, idOf func(T) string) (int, error) {
	for i := range items {
		if idOf(items[i]) == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", core.ErrNotFound, id)
}

func remove[T any](items []T, i int) []T {
	return append(items[:i:i], items[i+1:]...)
}

func newID() string {
	return uuid.NewString()
}
