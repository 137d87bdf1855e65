package discovery

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNoRecords     = errors.New("discovery: no address records")
	ErrEmptySeed     = errors.New("discovery: empty seed name")
	ErrLookupTimeout = errors.New("discovery: lookup timed out")
	ErrNoCandidates  = errors.New("discovery: no candidate addresses resolved")
)

// ResolutionError records why one seed produced no addresses.
type ResolutionError struct {
	Seed string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve seed %q: %v", e.Seed, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
