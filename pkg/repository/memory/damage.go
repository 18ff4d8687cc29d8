package memory

import (
	"context"
	"sync"

	"github.com/secmon-lab/jira2zammad/pkg/domain/interfaces"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
)

// Damage keeps the ledger in memory. It is used by tests and dry runs.
type Damage struct {
	mu     sync.RWMutex
	stored model.Damage
	saves  int
}

var _ interfaces.DamageRepository = &Damage{}

// NewDamage returns an empty store. Pass a ledger to simulate a left-over file.
func NewDamage(initial model.Damage) *Damage {
	r := &Damage{}
	if initial != nil {
		r.stored = initial.Clone()
	}
	return r
}

func (r *Damage) Exists(ctx context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stored != nil, nil
}

func (r *Damage) Load(ctx context.Context) (model.Damage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stored == nil {
		return model.Damage{}, nil
	}
	return r.stored.Clone(), nil
}

func (r *Damage) Save(ctx context.Context, damage model.Damage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = damage.Clone()
	r.saves++
	return nil
}

func (r *Damage) Remove(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = nil
	return nil
}

func (r *Damage) Location() string {
	return "memory"
}

// Saves returns how many times Save was called.
func (r *Damage) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}
