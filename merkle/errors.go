package merkle

import "fmt"

// CapacityExceededError is returned when an insert is attempted on a tree
// whose leaf count already equals its capacity. The tree is unchanged; the
// caller rolls over to a fresh instance.
type CapacityExceededError struct {
	capacity uint64
}

func NewCapacityExceededError(capacity uint64) CapacityExceededError {
	return CapacityExceededError{capacity: capacity}
}

func (e CapacityExceededError) Error() string {
	return fmt.Sprintf("tree is full (capacity %d)", e.capacity)
}

// IndexOutOfBoundsError is returned for updates or proof requests addressing
// a leaf slot at or beyond the current leaf count.
type IndexOutOfBoundsError struct {
	index     uint64
	leafCount uint64
}

func NewIndexOutOfBoundsError(index, leafCount uint64) IndexOutOfBoundsError {
	return IndexOutOfBoundsError{index: index, leafCount: leafCount}
}

func (e IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("leaf index %d out of bounds (leaf count %d)", e.index, e.leafCount)
}

// InvalidDepthError is returned at construction time only.
type InvalidDepthError struct {
	depth int
}

func NewInvalidDepthError(depth int) InvalidDepthError {
	return InvalidDepthError{depth: depth}
}

func (e InvalidDepthError) Error() string {
	return fmt.Sprintf("invalid tree depth %d (want 1..%d)", e.depth, MaxTreeDepth)
}

// LevelOutOfRangeError indicates a ZeroCache lookup past the configured
// depth. Correct callers never trigger it.
type LevelOutOfRangeError struct {
	level int
	max   int
}

func NewLevelOutOfRangeError(level, max int) LevelOutOfRangeError {
	return LevelOutOfRangeError{level: level, max: max}
}

func (e LevelOutOfRangeError) Error() string {
	return fmt.Sprintf("zero hash level %d out of range (max %d)", e.level, e.max)
}

// NodeNotFoundError is returned by storage engines for a node coordinate
// whose subtree has never been populated.
type NodeNotFoundError struct{}

func NewNodeNotFoundError() NodeNotFoundError {
	return NodeNotFoundError{}
}

func (e NodeNotFoundError) Error() string {
	return "node not found"
}

// NoLatestRootFoundError is returned by storage engines for a tree that has
// never been written.
type NoLatestRootFoundError struct{}

func NewNoLatestRootFoundError() NoLatestRootFoundError {
	return NoLatestRootFoundError{}
}

func (e NoLatestRootFoundError) Error() string {
	return "no latest root found"
}
