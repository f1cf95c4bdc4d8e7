package crawler

import (
	"sync"

	"github.com/nao1215/patentcrawl/internal/model"
)

// Pool maps patent ids to entities.
type Pool interface {
	// GetOrCreate returns the patent registered under id, calling factory to
	// create it when there is none.
	GetOrCreate(id string, factory func() (*model.Patent, error)) (*model.Patent, error)
}

// SharedPool makes every lookup of an id return the same *model.Patent.
//
// At most one factory call per id succeeds, even under concurrent callers:
// callers that arrive while a factory runs wait for its result. A factory
// error is returned to its caller and not remembered, so waiting callers run
// their own factory. Entries are never evicted.
type SharedPool struct {
	mu      sync.Mutex
	entries map[string]*poolEntry
}

// poolEntry is a registered or in-flight patent.
type poolEntry struct {
	done   chan struct{}
	patent *model.Patent
	err    error
}

// NewSharedPool creates an empty SharedPool.
func NewSharedPool() *SharedPool {
	return &SharedPool{
		entries: make(map[string]*poolEntry),
	}
}

// GetOrCreate implements Pool.
func (p *SharedPool) GetOrCreate(id string, factory func() (*model.Patent, error)) (*model.Patent, error) {
	for {
		p.mu.Lock()
		if e, ok := p.entries[id]; ok {
			p.mu.Unlock()
			<-e.done
			if e.err == nil {
				return e.patent, nil
			}
			continue
		}

		e := &poolEntry{done: make(chan struct{})}
		p.entries[id] = e
		p.mu.Unlock()

		e.patent, e.err = factory()
		if e.err != nil {
			// Unregister before waking the waiters so they retry.
			p.mu.Lock()
			delete(p.entries, id)
			p.mu.Unlock()
		}
		close(e.done)

		return e.patent, e.err
	}
}

// PassThroughPool calls the factory on every lookup, so equal ids yield
// distinct but equal-valued patents.
type PassThroughPool struct{}

// GetOrCreate implements Pool.
func (PassThroughPool) GetOrCreate(_ string, factory func() (*model.Patent, error)) (*model.Patent, error) {
	return factory()
}
