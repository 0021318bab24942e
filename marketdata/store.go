package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quotron/quotron/errors"
	"github.com/quotron/quotron/kv"
)

// KVStore persists fetched rows into the key-value backend under
// {namespace}:{item}:{start}:{end}.
type KVStore struct {
	adapter kv.Adapter
}

// NewKVStore creates a result store over the given adapter.
func NewKVStore(adapter kv.Adapter) *KVStore {
	return &KVStore{adapter: adapter}
}

// payload is the stored representation of one fetched range.
type payload struct {
	SchemaVersion int    `json:"schema_version"`
	ItemID        string `json:"item_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	FetchedAt     string `json:"fetched_at"`
	Rows          []Row  `json:"rows"`
}

// Store writes rows as a single JSON document. Re-fetching the same
// range overwrites the previous document.
func (s *KVStore) Store(ctx context.Context, rows []Row, namespace, itemID, startDate, endDate string) error {
	if len(rows) == 0 {
		return errors.Newf("refusing to store empty result for %s", itemID)
	}

	doc := payload{
		SchemaVersion: 1,
		ItemID:        itemID,
		StartDate:     startDate,
		EndDate:       endDate,
		FetchedAt:     time.Now().UTC().Format(time.RFC3339),
		Rows:          rows,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal rows for %s", itemID)
	}

	key := ResultKey(namespace, itemID, startDate, endDate)
	if err := s.adapter.Save(ctx, key, data); err != nil {
		return errors.Wrapf(err, "failed to store rows for %s", itemID)
	}

	return nil
}

// Load reads back a previously stored range, or errors.ErrNotFound.
func (s *KVStore) Load(ctx context.Context, namespace, itemID, startDate, endDate string) ([]Row, error) {
	data, err := s.adapter.Get(ctx, ResultKey(namespace, itemID, startDate, endDate))
	if err != nil {
		return nil, err
	}

	var doc payload
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "corrupt stored rows for %s", itemID)
	}

	return doc.Rows, nil
}

// ResultKey builds the storage key for one fetched range.
func ResultKey(namespace, itemID, startDate, endDate string) string {
	return fmt.Sprintf("%s:%s:%s:%s", namespace, itemID, startDate, endDate)
}
