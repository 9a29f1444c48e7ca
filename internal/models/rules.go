package models

import "fmt"

// MaxHealth is the domain ceiling for any combatant's health.
const MaxHealth = 100

// RoleRules holds the starting stats and upper bounds for one combatant role.
// Lower bounds are always zero.
type RoleRules struct {
	Health      int
	Strength    int
	Hits        int
	MaxHealth   int
	MaxStrength int
	MaxHits     int
}

// RangeError reports a stat outside its allowed range
type RangeError struct {
	Field string
	Value int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s must be between 0 and %d, got %d", e.Field, e.Max, e.Value)
}

// Check validates a set of stats against the role bounds.
func (r RoleRules) Check(health, strength, hits int) error {
	if health < 0 || health > r.MaxHealth {
		return &RangeError{Field: "health", Value: health, Max: r.MaxHealth}
	}
	if strength < 0 || strength > r.MaxStrength {
		return &RangeError{Field: "strength", Value: strength, Max: r.MaxStrength}
	}
	if hits < 0 || hits > r.MaxHits {
		return &RangeError{Field: "hits", Value: hits, Max: r.MaxHits}
	}
	return nil
}

// Domain is the hard ceiling a role's configured maxima may not exceed.
type Domain struct {
	MaxHealth   int
	MaxStrength int
	MaxHits     int
}

var (
	UserDomain    = Domain{MaxHealth: MaxHealth, MaxStrength: 20, MaxHits: 5}
	MonsterDomain = Domain{MaxHealth: MaxHealth, MaxStrength: 50, MaxHits: 9999}
)

// Validate checks that the rules are consistent and stay inside domain.
func (r RoleRules) Validate(domain Domain) error {
	if r.MaxHealth < 0 || r.MaxHealth > domain.MaxHealth {
		return fmt.Errorf("max health must be between 0 and %d, got %d", domain.MaxHealth, r.MaxHealth)
	}
	if r.MaxStrength < 0 || r.MaxStrength > domain.MaxStrength {
		return fmt.Errorf("max strength must be between 0 and %d, got %d", domain.MaxStrength, r.MaxStrength)
	}
	if r.MaxHits < 0 || r.MaxHits > domain.MaxHits {
		return fmt.Errorf("max hits must be between 0 and %d, got %d", domain.MaxHits, r.MaxHits)
	}
	return r.Check(r.Health, r.Strength, r.Hits)
}

// ClampHealth bounds a health value to [0, MaxHealth].
func ClampHealth(health int) int {
	if health < 0 {
		return 0
	}
	if health > MaxHealth {
		return MaxHealth
	}
	return health
}
