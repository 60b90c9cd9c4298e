package service

import (
	"fmt"
	"unicode"
)

// PasswordPolicy is the complexity rule applied on registration.
type PasswordPolicy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

// DefaultPasswordPolicy requires 12 characters from all four classes.
var DefaultPasswordPolicy = PasswordPolicy{
	MinLength:      12,
	RequireUpper:   true,
	RequireLower:   true,
	RequireDigit:   true,
	RequireSpecial: true,
}

// Check returns one message per violated rule, or nil.
func (p PasswordPolicy) Check(password string) []string {
	var upper, lower, digit, special bool
	n := 0
	for _, r := range password {
		n++
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r):
			special = true
		}
	}

	var out []string
	if n < p.MinLength {
		out = append(out, fmt.Sprintf("must be at least %d characters", p.MinLength))
	}
	if p.RequireUpper && !upper {
		out = append(out, "must contain an uppercase letter")
	}
	if p.RequireLower && !lower {
		out = append(out, "must contain a lowercase letter")
	}
	if p.RequireDigit && !digit {
		out = append(out, "must contain a digit")
	}
	if p.RequireSpecial && !special {
		out = append(out, "must contain a special character")
	}
	return out
}
