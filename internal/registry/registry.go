package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"brand-dna-studio/internal/brand"
)

var ErrNotFound = errors.New("brand not found")

type Options struct {
	TTL time.Duration
}

// Registry keeps extracted brands in memory for later generation requests.
// Stored values are copies; callers replace them through Update.
type Registry struct {
	mu    sync.Mutex
	items *cache.Cache
}

func New(opts Options) *Registry {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Registry{items: cache.New(ttl, ttl/2)}
}

func (r *Registry) Put(dna brand.DNA) {
	r.items.SetDefault(dna.ID, dna)
}

func (r *Registry) Get(id string) (brand.DNA, error) {
	v, ok := r.items.Get(id)
	if !ok {
		return brand.DNA{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return v.(brand.DNA), nil
}

// Update applies u to the stored brand and stores the result. Concurrent
// updates to one brand are applied one after another.
func (r *Registry) Update(id string, u brand.Update) (brand.DNA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.Get(id)
	if err != nil {
		return brand.DNA{}, err
	}
	next, err := cur.Apply(u, time.Now().UTC())
	if err != nil {
		return brand.DNA{}, err
	}
	r.Put(next)
	return next, nil
}

func (r *Registry) Delete(id string) {
	r.items.Delete(id)
}

func (r *Registry) Len() int {
	return r.items.ItemCount()
}
