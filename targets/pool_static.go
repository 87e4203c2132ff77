//go:build targets_pooled

package targets

import (
	"errors"
	"sync"
)

var errPoolExhausted = errors.New("targets: context pool exhausted")

func init() {
	releaseHook = releasePooled
}

// Pooled lifecycle: a fixed-size array of context structs plus a
// parallel busy-bit vector (spec.md §4.4, §9 "Global static context
// pool with parallel busy-bit array"). No dynamic allocation occurs
// on the NewContext/Release path, matching CONFIG_UPTANE_NOMALLOC in
// the original C core. The busy bitset stays private to this file.
var (
	poolMu    sync.Mutex
	pool      [NumContexts]Context
	poolBusy  [NumContexts]bool
)

// NewContext returns the first free slot in the static pool, or an
// error if every slot is busy. Build with -tags targets_pooled to
// select this mode.
func NewContext() (*Context, error) {
	poolMu.Lock()
	defer poolMu.Unlock()
	for i := range poolBusy {
		if !poolBusy[i] {
			poolBusy[i] = true
			pool[i] = Context{}
			return &pool[i], nil
		}
	}
	return nil, errPoolExhausted
}

// releasePooled clears the busy bit for ctx's slot, making it
// reusable. Called from Context.Release when built with
// -tags targets_pooled.
func releasePooled(ctx *Context) {
	poolMu.Lock()
	defer poolMu.Unlock()
	for i := range pool {
		if &pool[i] == ctx {
			poolBusy[i] = false
			return
		}
	}
}
