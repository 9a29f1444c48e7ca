// Package combat resolves attacks between a user and its monster.
//
// Health is read from a pair of caches (one per role) with the durable store
// as fallback. In Vulnerable mode an attack writes the monster's cache entry,
// pauses, writes the user's entry, pauses again and only then persists both
// values. Nothing guards the span between those steps, so concurrent attacks
// by the same user can observe each other's half-finished work. Hardened mode
// serialises attacks per user instead.
package combat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/omega-realm/scruffy/internal/cache"
	"github.com/omega-realm/scruffy/internal/database"
	"github.com/omega-realm/scruffy/internal/logging"
	"github.com/omega-realm/scruffy/internal/models"
)

// Mode selects whether concurrent attacks may interleave.
type Mode string

const (
	Vulnerable Mode = "vulnerable"
	Hardened   Mode = "hardened"
)

// ParseMode accepts "vulnerable" or "hardened", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Vulnerable, Hardened:
		return m, nil
	default:
		return "", fmt.Errorf("unknown combat mode %q", s)
	}
}

// Store is the slice of the durable store the resolver needs.
type Store interface {
	FindUserByID(ctx context.Context, id int) (models.User, error)
	FindMonsterByOwner(ctx context.Context, userID int) (models.Monster, error)
	CreateMonsterForUser(ctx context.Context, userID int, template models.Monster) (models.Monster, bool, error)
	UpdateHealth(ctx context.Context, userID, monsterHealth, userHealth int) error
}

// Scoreboard is told about every finished fight.
type Scoreboard interface {
	Record(ctx context.Context, userID int, outcome Outcome) error
}

// Options configures a Resolver. Zero values are usable.
type Options struct {
	Mode            Mode
	Pacer           Pacer
	MonsterTemplate models.Monster
	Scoreboard      Scoreboard
	Logger          logging.Logger
}

// StatusReport is the durable view of both combatants.
type StatusReport struct {
	User    models.Stats `json:"user"`
	Monster models.Stats `json:"monster"`
}

type Resolver struct {
	store    Store
	users    cache.Cache
	monsters cache.Cache

	mode            Mode
	pacer           Pacer
	locks           *keyedMutex
	monsterTemplate models.Monster
	scoreboard      Scoreboard
	logger          logging.Logger
	tracer          trace.Tracer
}

func NewResolver(store Store, users, monsters cache.Cache, opts Options) *Resolver {
	r := &Resolver{
		store:           store,
		users:           users,
		monsters:        monsters,
		mode:            opts.Mode,
		pacer:           opts.Pacer,
		locks:           newKeyedMutex(),
		monsterTemplate: opts.MonsterTemplate,
		scoreboard:      opts.Scoreboard,
		logger:          opts.Logger,
		tracer:          otel.Tracer("github.com/omega-realm/scruffy/internal/combat"),
	}
	if r.mode == "" {
		r.mode = Vulnerable
	}
	if r.pacer == nil {
		r.pacer = DelayPacer{}
	}
	if r.logger == nil {
		r.logger = logging.Discard()
	}
	return r
}

func (r *Resolver) Mode() Mode { return r.mode }

// ResolveAttack runs one attack for the user against its monster.
//
// On a store write failure the computed Result is still returned together
// with an error wrapping ErrPersistenceFailure; the caches keep the new
// values.
func (r *Resolver) ResolveAttack(ctx context.Context, userID int) (Result, error) {
	// A started attack always runs to completion.
	ctx = context.WithoutCancel(ctx)

	ctx, span := r.tracer.Start(ctx, "combat.ResolveAttack", trace.WithAttributes(
		attribute.Int("user.id", userID),
		attribute.String("combat.mode", string(r.mode)),
	))
	defer span.End()

	if r.mode == Hardened {
		unlock := r.locks.Lock(userID)
		defer unlock()
	}

	user, monster, err := r.combatants(ctx, userID)
	if err != nil {
		recordSpanError(span, err)
		return Result{}, err
	}
	span.SetAttributes(attribute.Int("monster.id", monster.ID))

	monsterHealth := r.cachedHealth(ctx, r.monsters, monster.ID, monster.Health)
	userHealth := r.cachedHealth(ctx, r.users, user.ID, user.Health)

	monsterHealth = models.ClampHealth(monsterHealth - user.Strength)
	userHealth = models.ClampHealth(userHealth - monster.Strength)

	if err := r.monsters.Set(ctx, monster.ID, monsterHealth); err != nil {
		recordSpanError(span, err)
		return Result{}, fmt.Errorf("cache monster health: %w", err)
	}
	r.pacer.Pause(ctx, AfterMonsterWrite)

	if err := r.users.Set(ctx, user.ID, userHealth); err != nil {
		recordSpanError(span, err)
		return Result{}, fmt.Errorf("cache user health: %w", err)
	}
	r.pacer.Pause(ctx, AfterUserWrite)

	res := Result{
		Outcome:       Classify(monsterHealth, userHealth),
		UserHealth:    userHealth,
		MonsterHealth: monsterHealth,
	}
	span.SetAttributes(
		attribute.Int("user.health", userHealth),
		attribute.Int("monster.health", monsterHealth),
		attribute.String("combat.outcome", res.Outcome.String()),
	)

	if err := r.store.UpdateHealth(ctx, userID, monsterHealth, userHealth); err != nil {
		err = fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
		recordSpanError(span, err)
		r.logger.Error(ctx, "failed to persist attack", "user_id", userID, "error", err)
		return res, err
	}

	if res.Outcome.Terminal() && r.scoreboard != nil {
		if err := r.scoreboard.Record(ctx, userID, res.Outcome); err != nil {
			r.logger.Warn(ctx, "failed to record outcome", "user_id", userID, "outcome", res.Outcome.String(), "error", err)
		}
	}

	r.logger.Debug(ctx, "attack resolved",
		"user_id", userID,
		"user_health", userHealth,
		"monster_health", monsterHealth,
		"outcome", res.Outcome.String(),
	)
	return res, nil
}

// Status reads both combatants from the store and seeds the caches with the
// durable healths.
func (r *Resolver) Status(ctx context.Context, userID int) (StatusReport, error) {
	user, monster, err := r.combatants(ctx, userID)
	if err != nil {
		return StatusReport{}, err
	}

	if err := r.monsters.Set(ctx, monster.ID, monster.Health); err != nil {
		r.logger.Warn(ctx, "failed to seed monster cache", "monster_id", monster.ID, "error", err)
	}
	if err := r.users.Set(ctx, user.ID, user.Health); err != nil {
		r.logger.Warn(ctx, "failed to seed user cache", "user_id", user.ID, "error", err)
	}

	return StatusReport{User: user.Stats(), Monster: monster.Stats()}, nil
}

// Flush drops the user's and its monster's cache entries. Both removals are
// attempted; if either entry was absent the result wraps ErrCacheKeyMissing.
func (r *Resolver) Flush(ctx context.Context, userID int) error {
	var missing []string

	if err := r.users.Remove(ctx, userID); err != nil {
		if !errors.Is(err, cache.ErrKeyMissing) {
			return fmt.Errorf("flush user %d: %w", userID, err)
		}
		missing = append(missing, "user")
	}

	monster, err := r.store.FindMonsterByOwner(ctx, userID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		missing = append(missing, "monster")
	case err != nil:
		return fmt.Errorf("flush monster of user %d: %w", userID, err)
	default:
		if err := r.monsters.Remove(ctx, monster.ID); err != nil {
			if !errors.Is(err, cache.ErrKeyMissing) {
				return fmt.Errorf("flush monster %d: %w", monster.ID, err)
			}
			missing = append(missing, "monster")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrCacheKeyMissing, strings.Join(missing, ", "))
	}
	return nil
}

// EnsureMonster returns the user's monster, creating it from the configured
// template when the user has none. The bool reports creation.
func (r *Resolver) EnsureMonster(ctx context.Context, userID int) (models.Monster, bool, error) {
	if _, err := r.store.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.Monster{}, false, ErrNoActiveCombatant
		}
		return models.Monster{}, false, err
	}
	return r.store.CreateMonsterForUser(ctx, userID, r.monsterTemplate)
}

func (r *Resolver) combatants(ctx context.Context, userID int) (models.User, models.Monster, error) {
	user, err := r.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.User{}, models.Monster{}, fmt.Errorf("%w: user %d", ErrNoActiveCombatant, userID)
		}
		return models.User{}, models.Monster{}, err
	}
	monster, err := r.store.FindMonsterByOwner(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.User{}, models.Monster{}, fmt.Errorf("%w: user %d has no monster", ErrNoActiveCombatant, userID)
		}
		return models.User{}, models.Monster{}, err
	}
	return user, monster, nil
}

// cachedHealth prefers the cache and falls back to the stored value when the
// entry is absent or the cache cannot be read.
func (r *Resolver) cachedHealth(ctx context.Context, c cache.Cache, id, stored int) int {
	health, ok, err := c.Get(ctx, id)
	if err != nil {
		r.logger.Warn(ctx, "cache read failed, using stored health", "id", id, "error", err)
		return stored
	}
	if !ok {
		return stored
	}
	return health
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
