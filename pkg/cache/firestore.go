package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig selects the collection a FirestoreStore writes to.
type FirestoreConfig struct {
	ProjectID      string `yaml:"project_id"`
	CollectionName string `yaml:"collection"`
}

// firestoreDoc wraps the JSON encoding of a value, so that types with custom
// marshalling round-trip the same way they do through Redis.
type firestoreDoc struct {
	Value   string    `firestore:"value"`
	Updated time.Time `firestore:"updated,serverTimestamp"`
}

// FirestoreStore keeps values in one Firestore collection, one document per
// key. It suits deployments that want results to outlive Redis TTLs.
// The client is owned by the caller.
type FirestoreStore[K any, V any] struct {
	coll   *firestore.CollectionRef
	logger zerolog.Logger
}

// NewFirestoreStore returns a store writing to cfg.CollectionName.
func NewFirestoreStore[K any, V any](cfg *FirestoreConfig, client *firestore.Client, logger zerolog.Logger) (*FirestoreStore[K, V], error) {
	if client == nil {
		return nil, errors.New("firestore client cannot be nil")
	}
	if cfg.CollectionName == "" {
		return nil, errors.New("firestore collection name is required")
	}
	logger = logger.With().Str("component", "FirestoreStore").Str("collection", cfg.CollectionName).Logger()
	logger.Info().Str("project_id", cfg.ProjectID).Msg("Using Firestore result store.")
	return &FirestoreStore[K, V]{coll: client.Collection(cfg.CollectionName), logger: logger}, nil
}

// docID escapes the key so that '/' cannot address a subcollection.
func docID[K any](key K) string {
	return url.PathEscape(fmt.Sprint(key))
}

// FetchFromCache implements Store.
func (s *FirestoreStore[K, V]) FetchFromCache(ctx context.Context, key K) (V, error) {
	var value V
	id := docID(key)
	snap, err := s.coll.Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return value, fmt.Errorf("document %s: %w", id, ErrMiss)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("doc_id", id).Msg("Firestore get failed.")
		return value, fmt.Errorf("firestore get %s: %w", id, err)
	}

	var doc firestoreDoc
	if err := snap.DataTo(&doc); err != nil {
		return value, fmt.Errorf("firestore document %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(doc.Value), &value); err != nil {
		s.logger.Warn().Err(err).Str("doc_id", id).Msg("Discarding undecodable stored value.")
		return value, fmt.Errorf("document %s undecodable: %w", id, ErrMiss)
	}
	return value, nil
}

// WriteToCache implements Store. Existing documents are overwritten.
func (s *FirestoreStore[K, V]) WriteToCache(ctx context.Context, key K, value V) error {
	id := docID(key)
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", id, err)
	}
	if _, err := s.coll.Doc(id).Set(ctx, firestoreDoc{Value: string(raw)}); err != nil {
		s.logger.Error().Err(err).Str("doc_id", id).Msg("Firestore set failed.")
		return fmt.Errorf("firestore set %s: %w", id, err)
	}
	return nil
}

// Invalidate deletes the document for key.
func (s *FirestoreStore[K, V]) Invalidate(ctx context.Context, key K) error {
	_, err := s.coll.Doc(docID(key)).Delete(ctx)
	return err
}

// Close is a no-op.
func (s *FirestoreStore[K, V]) Close() error { return nil }
