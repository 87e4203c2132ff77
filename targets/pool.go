package targets

// releaseHook is wired at init time by whichever lifecycle file this
// build selected: a no-op for the heap build, releasePooled for the
// build tagged targets_pooled.
var releaseHook func(*Context)

// Release frees every live verification context and signature buffer
// held by ctx, regardless of where Process exited (spec.md §3
// lifecycle, §5 "released on every exit path, success or failure").
// It is always safe to call, including on a ctx that was never
// Init'd or never Process'd.
func (c *Context) Release() {
	for i := range c.slots {
		if c.slots[i].live {
			c.slots[i].ctx.Free()
			c.slots[i].ctx = nil
			c.slots[i].live = false
		}
	}
	c.slots = nil
	c.src = nil
	if releaseHook != nil {
		releaseHook(c)
	}
}
