package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrLookup marks a search capability failure. Absorbed by the research node.
	ErrLookup = errors.New("lookup failed")

	// ErrGeneration marks a completion failure or empty reply. Absorbed by the synthesis node.
	ErrGeneration = errors.New("generation failed")

	errEmpty = errors.New("empty result")
)

func lookupError(query string, err error) error {
	return fmt.Errorf("%w: query %q: %w", ErrLookup, query, err)
}

func generationError(pipeline string, err error) error {
	return fmt.Errorf("%w: pipeline %s: %w", ErrGeneration, pipeline, err)
}
