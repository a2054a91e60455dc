package preview

import (
	"sync"

	"github.com/bstardust/flood-survey-collector/internal/media"
	"github.com/google/uuid"
)

const refPrefix = "pv_"

// Registry hands out opaque preview references for local files. A reference
// stays resolvable until it is released.
type Registry struct {
	mu    sync.RWMutex
	files map[string]media.File
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{files: make(map[string]media.File)}
}

// Create registers f and returns its reference
func (r *Registry) Create(f media.File) string {
	ref := refPrefix + uuid.NewString()

	r.mu.Lock()
	r.files[ref] = f
	r.mu.Unlock()

	return ref
}

// Lookup resolves a reference
func (r *Registry) Lookup(ref string) (media.File, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.files[ref]
	return f, ok
}

// Release drops a reference. Releasing an unknown reference is a no-op.
func (r *Registry) Release(ref string) {
	r.mu.Lock()
	delete(r.files, ref)
	r.mu.Unlock()
}
