package template

// cursor is a forward-only position in the template source.
type cursor struct {
	src string
	off int
}

func newCursor(src string) *cursor {
	return &cursor{src: src}
}

// rest returns the unconsumed source.
func (c *cursor) rest() string {
	return c.src[c.off:]
}

// advance consumes n bytes.
func (c *cursor) advance(n int) {
	c.off += n
	if c.off > len(c.src) {
		c.off = len(c.src)
	}
}
