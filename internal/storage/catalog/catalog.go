// Package catalog stores durable dataset versions: the catalog record
// describing each dataset and its payload in the snapshot envelope
// format. Unlike session state, catalog entries carry no TTL.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/yndnr/tabsess-go/internal/core/domain"
	"github.com/yndnr/tabsess-go/internal/storage"
	"github.com/yndnr/tabsess-go/internal/storage/snapshot"
)

const (
	recordKeyPrefix  = "dset:"
	payloadKeyPrefix = "dsfr:"
)

func recordKey(id string) string  { return recordKeyPrefix + id }
func payloadKey(id string) string { return payloadKeyPrefix + id }

// Catalog is the dataset registry built on a cache backend.
type Catalog struct {
	cache storage.CacheClient
	codec *snapshot.Codec
}

// New creates a catalog.
func New(cache storage.CacheClient, codec *snapshot.Codec) *Catalog {
	return &Catalog{cache: cache, codec: codec}
}

// Register stores a dataset record and, when a frame is given, its
// payload. A registered frame marks the dataset ready; registering
// without one leaves it in the processing state.
func (c *Catalog) Register(ctx context.Context, ds *domain.Dataset, frame *domain.Frame) error {
	if ds.ID == "" {
		return domain.ErrMissingArgument.WithDetails("dataset id")
	}

	if frame != nil {
		encoded, meta, err := c.codec.Encode(frame)
		if err != nil {
			return err
		}
		if err := c.cache.Set(ctx, payloadKey(ds.ID), encoded, 0); err != nil {
			return domain.ErrStorageError.WithCause(err)
		}
		ds.State = domain.DatasetReady
		ds.RowCount = meta.RowCount
		ds.ColCount = meta.ColCount
	} else {
		ds.State = domain.DatasetProcessing
	}

	return c.putRecord(ctx, ds)
}

// Get loads a dataset record.
func (c *Catalog) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	raw, err := c.cache.Get(ctx, recordKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, domain.ErrDatasetNotFound.WithDetails("dataset " + id)
	}
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}

	var ds domain.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, domain.ErrStorageError.WithDetails("dataset record is not valid JSON").WithCause(err)
	}
	return &ds, nil
}

// Frame loads the payload of a ready dataset.
func (c *Catalog) Frame(ctx context.Context, id string) (*domain.Frame, error) {
	ds, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ds.IsReady() {
		return nil, domain.ErrDatasetNotReady.WithDetails("dataset " + id)
	}

	raw, err := c.cache.Get(ctx, payloadKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, domain.ErrDatasetNotFound.WithDetails("payload of dataset " + id)
	}
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return c.codec.Decode(raw)
}

// MarkReady attaches a payload to a processing dataset and flips its
// state to ready.
func (c *Catalog) MarkReady(ctx context.Context, id string, frame *domain.Frame) (*domain.Dataset, error) {
	ds, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.Register(ctx, ds, frame); err != nil {
		return nil, err
	}
	return ds, nil
}

// Commit persists a session's final frame as a new dataset version
// derived from the session's source dataset.
func (c *Catalog) Commit(ctx context.Context, parentID, ownerID string, frame *domain.Frame) (*domain.Dataset, error) {
	parent, err := c.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}

	id, err := domain.GenerateDatasetID()
	if err != nil {
		return nil, err
	}
	ds := &domain.Dataset{
		ID:        id,
		Name:      parent.Name,
		OwnerID:   ownerID,
		ParentID:  parent.ID,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := c.Register(ctx, ds, frame); err != nil {
		return nil, err
	}
	return ds, nil
}

// Delete removes a dataset record and its payload.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.cache.Delete(ctx, payloadKey(id)); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	if err := c.cache.Delete(ctx, recordKey(id)); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

func (c *Catalog) putRecord(ctx context.Context, ds *domain.Dataset) error {
	raw, err := json.Marshal(ds)
	if err != nil {
		return domain.ErrStorageError.WithDetails("marshal dataset record").WithCause(err)
	}
	if err := c.cache.Set(ctx, recordKey(ds.ID), raw, 0); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}
