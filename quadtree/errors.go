package quadtree

import "errors"

var (
	// ErrInvalidOptions indicates tree options that cannot produce a valid tree.
	ErrInvalidOptions = errors.New("quadtree: invalid options")

	// ErrStaleElementID indicates an element id whose element was removed or
	// moved since the id was issued.
	ErrStaleElementID = errors.New("quadtree: stale element id")
)
