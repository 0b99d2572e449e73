package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/cuemby/carebook/pkg/types"
)

// DirectoryAPI lists providers
type DirectoryAPI interface {
	Providers(ctx context.Context) ([]*types.User, error)
}

// Directory is the public provider listing
type Directory struct {
	api DirectoryAPI

	mu        sync.RWMutex
	providers []*types.User
}

// NewDirectory creates an empty directory
func NewDirectory(api DirectoryAPI) *Directory {
	return &Directory{api: api}
}

// Load fetches the provider list
func (d *Directory) Load(ctx context.Context) error {
	providers, err := d.api.Providers(ctx)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.providers = providers
	d.mu.Unlock()
	return nil
}

// All returns every loaded provider
func (d *Directory) All() []*types.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.providers
}

// Search returns the loaded providers matching query
func (d *Directory) Search(query string) []*types.User {
	return SearchProviders(d.All(), query)
}

// SearchProviders keeps providers whose full name or business name contains
// query, ignoring case. An empty query matches everyone.
func SearchProviders(providers []*types.User, query string) []*types.User {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return providers
	}

	out := make([]*types.User, 0, len(providers))
	for _, p := range providers {
		if strings.Contains(strings.ToLower(p.FullName()), q) ||
			strings.Contains(strings.ToLower(p.BusinessName()), q) {
			out = append(out, p)
		}
	}
	return out
}
