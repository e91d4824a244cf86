package state

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	pfirestore "finitefield.org/wheel-of-life/internal/platform/firestore"
)

// stateDocument is the Firestore representation of one blob.
type stateDocument struct {
	Blob      string    `firestore:"blob"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// documents is the narrow slice of a Firestore collection the store needs.
type documents interface {
	get(ctx context.Context, id string) (stateDocument, error)
	set(ctx context.Context, id string, doc stateDocument) error
	delete(ctx context.Context, id string) error
	ping(ctx context.Context) error
}

// FirestoreStore keeps one document per key in a collection.
type FirestoreStore struct {
	docs documents
	now  func() time.Time
}

// NewFirestoreStore stores blobs in collection using the provider's client.
func NewFirestoreStore(provider *pfirestore.Provider, collection string) *FirestoreStore {
	return newFirestoreStore(&collectionDocs{provider: provider, name: collection})
}

func newFirestoreStore(docs documents) *FirestoreStore {
	return &FirestoreStore{docs: docs, now: time.Now}
}

func (s *FirestoreStore) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := s.docs.get(ctx, key)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(doc.Blob), nil
}

func (s *FirestoreStore) Put(ctx context.Context, key string, blob []byte) error {
	return s.docs.set(ctx, key, stateDocument{Blob: string(blob), UpdatedAt: s.now().UTC()})
}

func (s *FirestoreStore) Delete(ctx context.Context, key string) error {
	err := s.docs.delete(ctx, key)
	if pfirestore.IsNotFound(err) {
		return nil
	}
	return err
}

func (s *FirestoreStore) Ping(ctx context.Context) error {
	return s.docs.ping(ctx)
}

type collectionDocs struct {
	provider *pfirestore.Provider
	name     string
}

func (c *collectionDocs) ref(ctx context.Context) (*firestore.CollectionRef, error) {
	client, err := c.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(c.name), nil
}

func (c *collectionDocs) get(ctx context.Context, id string) (stateDocument, error) {
	col, err := c.ref(ctx)
	if err != nil {
		return stateDocument{}, err
	}
	snap, err := col.Doc(id).Get(ctx)
	if err != nil {
		return stateDocument{}, pfirestore.WrapError("state.get", err)
	}
	var doc stateDocument
	if err := snap.DataTo(&doc); err != nil {
		return stateDocument{}, errors.Join(ErrCorrupt, err)
	}
	return doc, nil
}

func (c *collectionDocs) set(ctx context.Context, id string, doc stateDocument) error {
	col, err := c.ref(ctx)
	if err != nil {
		return err
	}
	_, err = col.Doc(id).Set(ctx, doc)
	return pfirestore.WrapError("state.put", err)
}

func (c *collectionDocs) delete(ctx context.Context, id string) error {
	col, err := c.ref(ctx)
	if err != nil {
		return err
	}
	_, err = col.Doc(id).Delete(ctx)
	return pfirestore.WrapError("state.delete", err)
}

// ping reads one page of document ids to prove the client can reach the
// collection.
func (c *collectionDocs) ping(ctx context.Context) error {
	col, err := c.ref(ctx)
	if err != nil {
		return err
	}
	iter := col.Limit(1).Documents(ctx)
	defer iter.Stop()
	_, err = iter.Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		return pfirestore.WrapError("state.ping", err)
	}
	return nil
}
