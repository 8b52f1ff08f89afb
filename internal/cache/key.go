package cache

import (
	"fmt"

	"github.com/alexisbeaulieu97/stageplan/internal/stage"
)

// DefaultPrefix is prepended to every cache key.
const DefaultPrefix = "_deepsea"

// Key derives the cache key {prefix}_{stagesOnly}_{id}.
func Key(prefix string, id stage.ID, stagesOnly bool) string {
	return fmt.Sprintf("%s_%t_%s", prefix, stagesOnly, id)
}

func keysFor(prefix string, id stage.ID) []string {
	return []string{Key(prefix, id, true), Key(prefix, id, false)}
}
