package elastic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gateguard/gateguard/internal/models"
)

// ErrUnknownConnection reports that no configured log store matches the
// requested name. Callers translate it to a 404 at the HTTP edge.
var ErrUnknownConnection = errors.New("unknown connection")

// ConnectionSource lists the log-store connections registered in the
// gateway's configuration store.
type ConnectionSource interface {
	ElasticConfigs(ctx context.Context) ([]models.ElasticConnection, error)
}

// Registry resolves connection names to ready clients. Connections are
// loaded from the source on first use and cached; a failed load is retried
// on the next call.
type Registry struct {
	source ConnectionSource

	mu      sync.Mutex
	clients map[string]*Client
}

// NewRegistry builds a Registry over the given connection source.
func NewRegistry(source ConnectionSource) *Registry {
	return &Registry{source: source}
}

func (r *Registry) ensure(ctx context.Context) error {
	if r.clients != nil {
		return nil
	}
	conns, err := r.source.ElasticConfigs(ctx)
	if err != nil {
		return fmt.Errorf("loading log store connections: %w", err)
	}
	clients := make(map[string]*Client, len(conns))
	for _, conn := range conns {
		clients[conn.Name] = NewClient(conn)
	}
	r.clients = clients
	return nil
}

// Client returns the client for the named connection.
func (r *Registry) Client(ctx context.Context, name string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("elasticsearch %q not found: %w", name, ErrUnknownConnection)
	}
	return c, nil
}

// Names returns the known connection names, sorted.
func (r *Registry) Names(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// All returns every known connection's client keyed by name, for health
// probing.
func (r *Registry) All(ctx context.Context) (map[string]*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	all := make(map[string]*Client, len(r.clients))
	for name, c := range r.clients {
		all[name] = c
	}
	return all, nil
}
