// Package domain defines the core domain models for TabSess.
package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// DatasetIDPrefix is the prefix for dataset IDs.
const DatasetIDPrefix = "tsds-"

// DatasetState tracks a dataset through ingestion.
type DatasetState string

const (
	// DatasetProcessing marks a dataset still being ingested; sessions
	// cannot be opened on it yet.
	DatasetProcessing DatasetState = "processing"

	// DatasetReady marks a fully processed dataset.
	DatasetReady DatasetState = "ready"
)

// Dataset is a catalog record for a durable dataset version. The payload
// itself is stored separately in the snapshot envelope format.
type Dataset struct {
	// ID is the unique identifier. Format: tsds-{ulid_lowercase}.
	ID string `json:"id"`

	// Name is a human-readable label, carried across committed versions.
	Name string `json:"name"`

	// OwnerID identifies the user who owns the dataset.
	OwnerID string `json:"owner_id"`

	// State is the ingestion state.
	State DatasetState `json:"state"`

	// ParentID references the dataset version this one was committed
	// from, empty for originals.
	ParentID string `json:"parent_id,omitempty"`

	// RowCount and ColCount describe the stored payload.
	RowCount int `json:"row_count"`
	ColCount int `json:"col_count"`

	// CreatedAt is the creation timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`
}

// GenerateDatasetID generates a new dataset ID using ULID.
func GenerateDatasetID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return DatasetIDPrefix + strings.ToLower(id.String()), nil
}

// IsReady reports whether sessions may be opened on the dataset.
func (d *Dataset) IsReady() bool {
	return d.State == DatasetReady
}
