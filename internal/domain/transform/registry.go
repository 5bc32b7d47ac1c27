package transform

import (
	"context"
	"fmt"
	"sync"

	"github.com/fhirbridge/fhirbridge/internal/platform/dhis"
)

// Transformer turns an input into a tracker payload. A nil outcome with a nil
// error means the transformer declined the input; the orchestrator rolls back
// and tries the next candidate rule.
type Transformer interface {
	ResourceType() dhis.ResourceType
	Transform(ctx context.Context, in *Input) (*Outcome, error)
}

// Registry resolves transformers by tracker version and target resource type.
// Registration is explicit; a lookup miss is fatal for the orchestration.
type Registry struct {
	mu      sync.RWMutex
	entries map[registryKey]Transformer
}

type registryKey struct {
	version      string
	resourceType dhis.ResourceType
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[registryKey]Transformer)}
}

// Register binds t for the given tracker version. Later registrations for the
// same (version, resource type) pair replace earlier ones.
func (r *Registry) Register(version string, t Transformer) {
	r.mu.Lock()
	r.entries[registryKey{version: version, resourceType: t.ResourceType()}] = t
	r.mu.Unlock()
}

// Get resolves the transformer for (version, resourceType), or a *FatalError.
func (r *Registry) Get(version string, resourceType dhis.ResourceType) (Transformer, error) {
	r.mu.RLock()
	t, ok := r.entries[registryKey{version: version, resourceType: resourceType}]
	r.mu.RUnlock()
	if !ok {
		return nil, &FatalError{
			Msg: fmt.Sprintf("no transformer for %s on tracker version %s", resourceType, version),
		}
	}
	return t, nil
}
