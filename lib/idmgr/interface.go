package idmgr

import "github.com/pkg/errors"

// ErrExhausted is returned by Allocate if no free id was found
var ErrExhausted = errors.New("no free id found")

type IIDManager interface {
	// Allocate draws a random id that was not taken before and marks it as taken.
	// Returns ErrExhausted if every attempt hit a taken id.
	Allocate() (id uint64, err error)

	// Reserve marks the given id as taken.
	// Return a boolean indicating whether the id was free before, and an error if any.
	Reserve(id uint64) (ok bool, err error)

	// Release frees the given id.
	// Return a boolean indicating whether the id was taken before, and an error if any.
	Release(id uint64) (ok bool, err error)
}
