package models

// Stats is the role-independent view of a combatant used by the resolver
// and returned by the status endpoint.
type Stats struct {
	ID       int `json:"id"`
	Health   int `json:"health"`
	Hits     int `json:"hits"`
	Strength int `json:"strength"`
}

// User represents a registered player
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
	Health   int    `json:"health"`
	Strength int    `json:"strength"`
	Hits     int    `json:"hits"`
}

func (u User) Stats() Stats {
	return Stats{ID: u.ID, Health: u.Health, Hits: u.Hits, Strength: u.Strength}
}

// Monster represents the opponent owned by a user
type Monster struct {
	ID       int    `json:"id"`
	Name     string `json:"monstername"`
	Health   int    `json:"health"`
	Strength int    `json:"strength"`
	Hits     int    `json:"hits"`
	OwnerID  int    `json:"owner_id"`
}

func (m Monster) Stats() Stats {
	return Stats{ID: m.ID, Health: m.Health, Hits: m.Hits, Strength: m.Strength}
}
