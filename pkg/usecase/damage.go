package usecase

import (
	"context"
	"maps"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/domain/interfaces"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/service/zammad"
	"github.com/secmon-lab/jira2zammad/pkg/utils/errutil"
	"github.com/secmon-lab/jira2zammad/pkg/utils/logging"
)

// DamageLedger remembers the original state of every Zammad user the
// migration changed, so the changes can be reverted afterwards.
type DamageLedger struct {
	repo   interfaces.DamageRepository
	damage model.Damage
}

// NewDamageLedger opens the ledger stored in repo. Unless resume is set, a
// stored ledger is a leftover of an unfinished run and fails with ErrDamageExists.
func NewDamageLedger(ctx context.Context, repo interfaces.DamageRepository, resume bool) (*DamageLedger, error) {
	exists, err := repo.Exists(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to check damage storage", goerr.V(LocationKey, repo.Location()))
	}

	ledger := &DamageLedger{repo: repo, damage: model.Damage{}}
	if !exists {
		return ledger, nil
	}
	if !resume {
		return nil, goerr.Wrap(ErrDamageExists, "damage ledger of a previous run found",
			goerr.V(LocationKey, repo.Location()))
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load damage ledger", goerr.V(LocationKey, repo.Location()))
	}
	ledger.damage = loaded
	logging.From(ctx).Info("Resuming damage ledger", "location", repo.Location(), "users", len(loaded))
	return ledger, nil
}

// Record stores the original values in change for fields of userID that are
// not recorded yet. The ledger is persisted when anything was added.
func (x *DamageLedger) Record(ctx context.Context, userID int64, change map[string]any) error {
	fields, ok := x.damage[userID]
	if !ok {
		fields = make(map[string]any, len(change))
		x.damage[userID] = fields
	}

	changed := false
	for k, v := range change {
		if _, exists := fields[k]; exists {
			continue
		}
		fields[k] = v
		changed = true
	}
	if !changed {
		return nil
	}

	if err := x.repo.Save(ctx, x.damage.Clone()); err != nil {
		return goerr.Wrap(err, "failed to persist damage ledger",
			goerr.V(UserIDKey, userID), goerr.V(LocationKey, x.repo.Location()))
	}
	return nil
}

// RevertResult counts the outcome of RevertAll
type RevertResult struct {
	Reverted int
	Failed   int
}

// RevertAll writes the recorded values back to every user in ascending id
// order. Users that fail stay in the ledger, which is saved again; an empty
// ledger removes the storage.
func (x *DamageLedger) RevertAll(ctx context.Context, svc zammad.Service) (*RevertResult, error) {
	result := &RevertResult{}
	logger := logging.From(ctx)

	for _, id := range x.damage.UserIDs() {
		if ctx.Err() != nil {
			break
		}

		if _, err := svc.FindUser(ctx, id); err != nil {
			_ = errutil.Handle(ctx, goerr.Wrap(err, "user to revert not found", goerr.V(UserIDKey, id)), "failed to revert user")
			result.Failed++
			continue
		}

		params := maps.Clone(x.damage[id])
		if _, err := svc.UpdateUser(ctx, id, params); err != nil {
			_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to update user", goerr.V(UserIDKey, id)), "failed to revert user")
			result.Failed++
			continue
		}

		logger.Info("Reverted user", "user_id", id, "fields", params)
		delete(x.damage, id)
		result.Reverted++
	}

	if len(x.damage) == 0 {
		if err := x.repo.Remove(ctx); err != nil {
			return result, goerr.Wrap(err, "failed to remove damage ledger", goerr.V(LocationKey, x.repo.Location()))
		}
		return result, nil
	}

	if err := x.repo.Save(ctx, x.damage.Clone()); err != nil {
		return result, goerr.Wrap(err, "failed to save remaining damage", goerr.V(LocationKey, x.repo.Location()))
	}
	return result, nil
}

// Snapshot returns a copy of the ledger.
func (x *DamageLedger) Snapshot() model.Damage {
	return x.damage.Clone()
}

// Location describes the storage of the ledger.
func (x *DamageLedger) Location() string {
	return x.repo.Location()
}
