package password

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrTooShort      = errors.New("password too short")
	ErrTooLong       = errors.New("password too long")
	ErrMissingUpper  = errors.New("password needs an uppercase letter")
	ErrMissingLower  = errors.New("password needs a lowercase letter")
	ErrMissingDigit  = errors.New("password needs a digit")
	ErrMissingSymbol = errors.New("password needs a symbol")
	ErrWeak          = errors.New("password too weak")
)

// Policy describes the strength rules. Lengths count runes, not bytes.
type Policy struct {
	MinLength      int
	MaxLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSymbol  bool
	RejectVeryWeak bool
}

// DefaultPolicy matches the registration and reset forms of the platform.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:      8,
		MaxLength:      128,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		RejectVeryWeak: true,
	}
}

// Validate checks the configured bounds themselves.
func (p Policy) Validate() error {
	if p.MinLength < 1 {
		return errors.New("password MinLength must be >= 1")
	}
	if p.MaxLength < p.MinLength {
		return errors.New("password MaxLength must be >= MinLength")
	}
	return nil
}

// Check returns the first rule pw violates, or nil. It does not mutate input.
func (p Policy) Check(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < p.MinLength {
		return ErrTooShort
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return ErrTooLong
	}

	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	switch {
	case p.RequireUpper && !upper:
		return ErrMissingUpper
	case p.RequireLower && !lower:
		return ErrMissingLower
	case p.RequireDigit && !digit:
		return ErrMissingDigit
	case p.RequireSymbol && !symbol:
		return ErrMissingSymbol
	}

	if p.RejectVeryWeak && looksVeryWeak(pw) {
		return ErrWeak
	}
	return nil
}

// looksVeryWeak is minimal on purpose; it is not an entropy estimator.
func looksVeryWeak(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" {
		return true
	}

	first, _ := utf8.DecodeRuneInString(s)
	allSame := true
	for _, r := range s {
		if r != first {
			allSame = false
			break
		}
	}
	if allSame {
		return true
	}

	switch strings.ToLower(s) {
	case "password", "password1", "password123", "passw0rd", "qwerty123", "abc12345", "letmein1", "welcome1":
		return true
	}
	return false
}
