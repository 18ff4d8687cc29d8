package gcs

import (
	"context"
	"errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/domain/interfaces"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/utils/safe"
)

// Scheme prefixes damage locations stored in Cloud Storage.
const Scheme = "gs://"

// Damage stores the ledger as a YAML object in a Cloud Storage bucket.
type Damage struct {
	client *storage.Client
	bucket string
	object string
}

var _ interfaces.DamageRepository = &Damage{}

// ParseURL splits gs://bucket/path/to/object.
func ParseURL(url string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(url, Scheme)
	if !ok {
		return "", "", goerr.New("damage location is not a gs:// URL", goerr.V("url", url))
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", goerr.New("damage location requires bucket and object", goerr.V("url", url))
	}
	return bucket, object, nil
}

// NewDamage creates a Cloud Storage client with application default credentials.
func NewDamage(ctx context.Context, url string) (*Damage, error) {
	bucket, object, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &Damage{client: client, bucket: bucket, object: object}, nil
}

func (d *Damage) handle() *storage.ObjectHandle {
	return d.client.Bucket(d.bucket).Object(d.object)
}

func (d *Damage) Exists(ctx context.Context) (bool, error) {
	_, err := d.handle().Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to get damage object attributes", goerr.V("location", d.Location()))
	}
	return true, nil
}

func (d *Damage) Load(ctx context.Context) (model.Damage, error) {
	r, err := d.handle().NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return model.Damage{}, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open damage object", goerr.V("location", d.Location()))
	}
	defer safe.Close(ctx, r)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read damage object", goerr.V("location", d.Location()))
	}

	damage, err := model.DecodeDamage(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse damage object", goerr.V("location", d.Location()))
	}
	return damage, nil
}

func (d *Damage) Save(ctx context.Context, damage model.Damage) error {
	data, err := damage.Encode()
	if err != nil {
		return err
	}

	w := d.handle().NewWriter(ctx)
	w.ContentType = "application/yaml"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write damage object", goerr.V("location", d.Location()))
	}
	// the object is committed on Close
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to commit damage object", goerr.V("location", d.Location()))
	}
	return nil
}

func (d *Damage) Remove(ctx context.Context) error {
	err := d.handle().Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return goerr.Wrap(err, "failed to delete damage object", goerr.V("location", d.Location()))
	}
	return nil
}

func (d *Damage) Location() string {
	return Scheme + d.bucket + "/" + d.object
}

// Close releases the storage client.
func (d *Damage) Close() error {
	return d.client.Close()
}
