package fields

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrRemoveNotAllowed is returned when a scope only supports deactivation.
var ErrRemoveNotAllowed = errors.New("hard removal is not allowed in this scope")

// Repository persists the field schema of a scope.
type Repository interface {
	Load(ctx context.Context, scope string) ([]DynamicField, error)
	Save(ctx context.Context, scope string, fields []DynamicField) error
}

// ScopePolicy tells which deletion semantics a scope exposes.
type ScopePolicy struct {
	AllowRemove     bool
	AllowDeactivate bool
}

// PolicyFor returns the policy of scope: contract scopes keep every field
// and only deactivate them, the global list also supports hard removal.
func PolicyFor(scope string) ScopePolicy {
	if scope == GlobalScope {
		return ScopePolicy{AllowRemove: true, AllowDeactivate: true}
	}
	return ScopePolicy{AllowDeactivate: true}
}

// Catalog loads field stores from a repository and writes them back after
// every mutation. Mutations of one scope are serialized.
type Catalog struct {
	repo     Repository
	registry *Registry

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCatalog returns a catalog over repo.
func NewCatalog(repo Repository, reg *Registry) *Catalog {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Catalog{repo: repo, registry: reg, locks: map[string]*sync.Mutex{}}
}

// Registry returns the field type registry the catalog was built with.
func (c *Catalog) Registry() *Registry { return c.registry }

func (c *Catalog) lock(scope string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[scope]
	if !ok {
		l = &sync.Mutex{}
		c.locks[scope] = l
	}
	return l
}

// Store loads a snapshot of scope. Changes made to it are not saved; use
// Mutate for that.
func (c *Catalog) Store(ctx context.Context, scope string) (*Store, error) {
	fields, err := c.repo.Load(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("loading fields of %s: %w", scope, err)
	}
	return NewStore(scope, fields), nil
}

// View runs fn against a snapshot of scope.
func (c *Catalog) View(ctx context.Context, scope string, fn func(*Store) error) error {
	s, err := c.Store(ctx, scope)
	if err != nil {
		return err
	}
	return fn(s)
}

// Fields returns every field of scope, by order.
func (c *Catalog) Fields(ctx context.Context, scope string) ([]DynamicField, error) {
	s, err := c.Store(ctx, scope)
	if err != nil {
		return nil, err
	}
	return s.All(), nil
}

// Active returns the fields a form of scope renders.
func (c *Catalog) Active(ctx context.Context, scope string) ([]DynamicField, error) {
	s, err := c.Store(ctx, scope)
	if err != nil {
		return nil, err
	}
	return s.Active(), nil
}

// Mutate runs fn against the store and editor of scope and saves the
// result when fn succeeds. Concurrent mutations of the same scope wait for
// each other.
func (c *Catalog) Mutate(ctx context.Context, scope string, fn func(*Store, *Editor) error) error {
	l := c.lock(scope)
	l.Lock()
	defer l.Unlock()

	s, err := c.Store(ctx, scope)
	if err != nil {
		return err
	}
	if err := fn(s, NewEditor(s, c.registry)); err != nil {
		return err
	}
	if err := c.repo.Save(ctx, scope, s.All()); err != nil {
		return fmt.Errorf("saving fields of %s: %w", scope, err)
	}
	slog.Debug("field schema saved", "scope", scope, "fields", s.Len())
	return nil
}

// SaveDraft validates d and creates or updates the field it describes.
func (c *Catalog) SaveDraft(ctx context.Context, scope string, d *Draft) (DynamicField, error) {
	var saved DynamicField
	err := c.Mutate(ctx, scope, func(_ *Store, e *Editor) error {
		var err error
		saved, err = e.Save(e.Bind(d))
		return err
	})
	return saved, err
}

// Import saves every draft in one mutation. Nothing is written if any
// draft is invalid; the error names the offending draft.
func (c *Catalog) Import(ctx context.Context, scope string, drafts []*Draft) ([]DynamicField, error) {
	var out []DynamicField
	err := c.Mutate(ctx, scope, func(_ *Store, e *Editor) error {
		for i, d := range drafts {
			f, err := e.Save(e.Bind(d))
			if err != nil {
				return fmt.Errorf("field %d (%s): %w", i, d.Name, err)
			}
			out = append(out, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetActive activates or deactivates a field.
func (c *Catalog) SetActive(ctx context.Context, scope, id string, active bool) (DynamicField, error) {
	var f DynamicField
	err := c.Mutate(ctx, scope, func(s *Store, _ *Editor) error {
		if !s.SetActive(id, active) {
			return fmt.Errorf("%w: %q", ErrUnknownField, id)
		}
		f, _ = s.Get(id)
		return nil
	})
	return f, err
}

// Remove hard-deletes a field where the scope policy allows it.
func (c *Catalog) Remove(ctx context.Context, scope, id string) error {
	if !PolicyFor(scope).AllowRemove {
		return ErrRemoveNotAllowed
	}
	return c.Mutate(ctx, scope, func(s *Store, _ *Editor) error {
		if !s.Remove(id) {
			return fmt.Errorf("%w: %q", ErrUnknownField, id)
		}
		return nil
	})
}

// Reorder renumbers the fields of scope.
func (c *Catalog) Reorder(ctx context.Context, scope string, ids []string) ([]DynamicField, error) {
	var out []DynamicField
	err := c.Mutate(ctx, scope, func(s *Store, _ *Editor) error {
		if err := s.Reorder(ids); err != nil {
			return err
		}
		out = s.All()
		return nil
	})
	return out, err
}
