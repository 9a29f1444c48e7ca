package combat

// Outcome is the terminal classification of one attack.
type Outcome int

const (
	Ongoing Outcome = iota
	Win
	Fail
	Finish
)

func (o Outcome) String() string {
	switch o {
	case Ongoing:
		return "ongoing"
	case Win:
		return "win"
	case Fail:
		return "fail"
	case Finish:
		return "finish"
	default:
		return "unknown"
	}
}

// Terminal reports whether the fight is over.
func (o Outcome) Terminal() bool {
	return o == Win || o == Fail || o == Finish
}

// Message is the player facing text for terminal outcomes.
func (o Outcome) Message() string {
	switch o {
	case Win:
		return "Congratulations! Monster is defeated!"
	case Fail:
		return "Oh no! Monster eats you!"
	case Finish:
		return "It's a draw! You and the monster fall together."
	default:
		return ""
	}
}

// Classify maps the post-attack healths to an outcome.
func Classify(monsterHealth, userHealth int) Outcome {
	switch {
	case monsterHealth == 0 && userHealth == 0:
		return Finish
	case monsterHealth == 0:
		return Win
	case userHealth == 0:
		return Fail
	default:
		return Ongoing
	}
}

// Result is what one resolved attack produced.
type Result struct {
	Outcome       Outcome
	UserHealth    int
	MonsterHealth int
}
