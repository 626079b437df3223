package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"cloud.google.com/go/firestore"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/option"
)

// ErrInvalidCredentials indicates a credential bundle that is malformed or
// missing required identity fields. Sessions presenting one must not
// proceed past the handshake.
var ErrInvalidCredentials = errors.New("invalid tenant credentials")

// docStore is the narrow surface the relay needs from a tenant's document
// store. The production implementation wraps Firestore.
type docStore interface {
	Write(ctx context.Context, collection, id string, record any) error
	Close() error
}

type firestoreStore struct {
	fs *firestore.Client
}

func (s *firestoreStore) Write(ctx context.Context, collection, id string, record any) error {
	_, err := s.fs.Collection(collection).Doc(id).Set(ctx, record)
	return err
}

func (s *firestoreStore) Close() error {
	return s.fs.Close()
}

// Client is a long-lived handle to one tenant's document store.
type Client struct {
	projectID string
	store     docStore
}

// ProjectID returns the tenant project identifier this client serves.
func (c *Client) ProjectID() string {
	return c.projectID
}

// Write persists one record in the tenant's store under the given
// collection and document id.
func (c *Client) Write(ctx context.Context, collection, id string, record any) error {
	if err := c.store.Write(ctx, collection, id, record); err != nil {
		return fmt.Errorf("tenant write %s/%s: %w", collection, id, err)
	}
	return nil
}

// Close releases the underlying store connection.
func (c *Client) Close() error {
	return c.store.Close()
}

// Resolver caches tenant clients by project id for the process lifetime.
// It is shared by every connection; entries are created lazily on first
// use and never evicted. Duplicate credential bundles for an already
// cached project are ignored (first writer wins).
type Resolver struct {
	mu      sync.RWMutex
	clients map[string]*Client
	group   singleflight.Group

	// newStore builds the backing document store; replaced in tests.
	newStore func(ctx context.Context, projectID string, bundle []byte) (docStore, error)
}

// NewResolver returns an empty resolver ready for concurrent use.
func NewResolver() *Resolver {
	return &Resolver{
		clients:  make(map[string]*Client),
		newStore: newFirestoreStore,
	}
}

func newFirestoreStore(ctx context.Context, projectID string, bundle []byte) (docStore, error) {
	fs, err := firestore.NewClient(ctx, projectID, option.WithCredentialsJSON(bundle))
	if err != nil {
		return nil, err
	}
	return &firestoreStore{fs: fs}, nil
}

type credentialIdentity struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
}

// Resolve returns the cached client for the bundle's project, creating it
// on first use. Concurrent first-use for the same project constructs at
// most one client; losers receive the winner's handle.
func (r *Resolver) Resolve(ctx context.Context, bundle json.RawMessage) (*Client, error) {
	var identity credentialIdentity
	if err := json.Unmarshal(bundle, &identity); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	projectID := strings.TrimSpace(identity.ProjectID)
	if projectID == "" {
		return nil, fmt.Errorf("%w: missing project_id", ErrInvalidCredentials)
	}

	r.mu.RLock()
	client, ok := r.clients[projectID]
	r.mu.RUnlock()
	if ok {
		return client, nil
	}

	v, err, _ := r.group.Do(projectID, func() (any, error) {
		// A racer may have stored the entry between the read above and
		// the singleflight call.
		r.mu.RLock()
		existing, ok := r.clients[projectID]
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}

		store, err := r.newStore(ctx, projectID, bundle)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}

		created := &Client{projectID: projectID, store: store}
		r.mu.Lock()
		r.clients[projectID] = created
		r.mu.Unlock()

		log.Printf("[tenant] initialized client for project=%s", projectID)
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Client), nil
}

// Close releases every cached tenant client. Called on shutdown.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for projectID, client := range r.clients {
		if err := client.Close(); err != nil {
			log.Printf("[tenant] close client project=%s: %v", projectID, err)
		}
		delete(r.clients, projectID)
	}
}
