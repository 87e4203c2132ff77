//go:build !targets_pooled

package targets

// NewContext allocates a fresh Context on the heap. This is the
// default lifecycle mode; build with -tags targets_pooled to select
// the fixed-size pool in pool_static.go instead (spec.md §4.4).
func NewContext() (*Context, error) {
	return &Context{}, nil
}

func init() {
	releaseHook = func(*Context) {}
}
