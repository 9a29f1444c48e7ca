package combat

import (
	"errors"

	"github.com/omega-realm/scruffy/internal/cache"
)

var (
	// ErrNoActiveCombatant means the user or its monster does not exist yet.
	ErrNoActiveCombatant = errors.New("no active combatant")

	// ErrCacheKeyMissing means a flush found nothing to remove for an entry.
	ErrCacheKeyMissing = cache.ErrKeyMissing

	// ErrPersistenceFailure wraps store write errors that happened after the
	// cache was already mutated. The cache is not rolled back.
	ErrPersistenceFailure = errors.New("persistence failure")
)
