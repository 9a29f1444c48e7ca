package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrAuthenticationFailure covers bad credentials and missing or invalid
// sessions.
var ErrAuthenticationFailure = errors.New("authentication failure")

// PasswordMode selects how passwords are stored.
type PasswordMode string

const (
	PasswordBcrypt PasswordMode = "bcrypt"
	// PasswordPlain stores passwords verbatim and compares them for equality.
	PasswordPlain PasswordMode = "plain"
)

func ParsePasswordMode(s string) (PasswordMode, error) {
	switch m := PasswordMode(strings.ToLower(strings.TrimSpace(s))); m {
	case PasswordBcrypt, PasswordPlain:
		return m, nil
	default:
		return "", fmt.Errorf("unknown password mode %q", s)
	}
}

// Passwords hashes and verifies user passwords.
type Passwords struct {
	mode PasswordMode
	cost int
}

func NewPasswords(mode PasswordMode) *Passwords {
	return &Passwords{mode: mode, cost: bcrypt.DefaultCost}
}

// Hash returns the value to store for a password.
func (p *Passwords) Hash(password string) (string, error) {
	if p.mode == PasswordPlain {
		return password, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a password against its stored value and returns
// ErrAuthenticationFailure on mismatch.
func (p *Passwords) Verify(stored, password string) error {
	if p.mode == PasswordPlain {
		if subtle.ConstantTimeCompare([]byte(stored), []byte(password)) != 1 {
			return ErrAuthenticationFailure
		}
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)); err != nil {
		return ErrAuthenticationFailure
	}
	return nil
}
