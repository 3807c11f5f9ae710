package schedule

import (
	"fmt"

	"github.com/rs/zerolog"
)

// each runs fn for every item, isolating failures: an error (or panic)
// on one item is logged against that item's id and the loop continues
// with its siblings. It returns how many items succeeded and failed.
// Every per-case batch loop in this package goes through it.
func each[T any](log zerolog.Logger, scope string, items []T, id func(T) string, fn func(T) error) (ok, failed int) {
	for _, item := range items {
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return fn(item)
		}()
		if err != nil {
			failed++
			log.Error().
				Err(err).
				Str("scope", scope).
				Str("id", id(item)).
				Msg("batch item failed")
			continue
		}
		ok++
	}
	return ok, failed
}
