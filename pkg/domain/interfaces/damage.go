package interfaces

import (
	"context"

	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
)

// DamageRepository is the durable storage of the damage ledger.
type DamageRepository interface {
	// Exists reports whether a ledger has been stored.
	Exists(ctx context.Context) (bool, error)
	// Load returns the stored ledger. A missing ledger is an empty one.
	Load(ctx context.Context) (model.Damage, error)
	// Save replaces the stored ledger.
	Save(ctx context.Context, damage model.Damage) error
	// Remove deletes the stored ledger. Removing a missing ledger is not an error.
	Remove(ctx context.Context) error
	// Location describes where the ledger lives, for logs.
	Location() string
}
