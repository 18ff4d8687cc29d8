package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/domain/interfaces"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
)

// DefaultPath is where the damage ledger is written unless configured otherwise.
const DefaultPath = "/var/tmp/jira2zammad-damage-done.yml"

// Damage stores the ledger as a YAML file on the local filesystem.
type Damage struct {
	path string
	perm fs.FileMode
}

var _ interfaces.DamageRepository = &Damage{}

type Option func(*Damage)

// WithPerm sets the mode of the written file.
func WithPerm(perm fs.FileMode) Option {
	return func(d *Damage) {
		d.perm = perm
	}
}

func NewDamage(path string, opts ...Option) *Damage {
	d := &Damage{
		path: path,
		perm: 0o600,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Damage) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(d.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, goerr.Wrap(err, "failed to stat damage file", goerr.V("path", d.path))
}

func (d *Damage) Load(ctx context.Context) (model.Damage, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Damage{}, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read damage file", goerr.V("path", d.path))
	}

	damage, err := model.DecodeDamage(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse damage file", goerr.V("path", d.path))
	}
	return damage, nil
}

// Save writes the ledger to a temporary file next to the target and renames it into place.
func (d *Damage) Save(ctx context.Context, damage model.Damage) error {
	data, err := damage.Encode()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), "."+filepath.Base(d.path)+".*")
	if err != nil {
		return goerr.Wrap(err, "failed to create temporary damage file", goerr.V("path", d.path))
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return goerr.Wrap(err, "failed to write damage file", goerr.V("path", tmpName))
	}
	if err := tmp.Chmod(d.perm); err != nil {
		_ = tmp.Close()
		return goerr.Wrap(err, "failed to set damage file mode", goerr.V("path", tmpName))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close damage file", goerr.V("path", tmpName))
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		return goerr.Wrap(err, "failed to replace damage file", goerr.V("path", d.path))
	}
	return nil
}

func (d *Damage) Remove(ctx context.Context) error {
	if err := os.Remove(d.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return goerr.Wrap(err, "failed to remove damage file", goerr.V("path", d.path))
	}
	return nil
}

func (d *Damage) Location() string {
	return d.path
}
