package alloc

import "errors"

var (
	// ErrNoSpace indicates that no free cell large enough was found.
	ErrNoSpace = errors.New("alloc: no free cell large enough")

	// ErrOverlap indicates a fixed range that intersects an allocated cell.
	ErrOverlap = errors.New("alloc: fixed range overlaps allocated cell")
)
