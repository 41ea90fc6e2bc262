package timeline

import "errors"

var (
	// ErrOverlap is returned when a clip mutation would make two clips'
	// intervals intersect on the video track.
	ErrOverlap = errors.New("clip overlaps an existing clip")

	// ErrNotFound is returned when an operation references a clip or overlay
	// id that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoSplitPoint is returned when a split is requested at a time that is
	// not strictly inside any clip.
	ErrNoSplitPoint = errors.New("no clip contains the split point")

	// ErrInvalidClip is returned when a clip or overlay fails field
	// validation (negative position, non-positive duration, volume range).
	ErrInvalidClip = errors.New("invalid clip")
)
