package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidInput = errors.New("invalid input")

// NormalizeAccessCode trims and upper-cases a code so lookups are case-insensitive
func NormalizeAccessCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateAccessCode checks length and charset of an already normalized code
func ValidateAccessCode(code string) error {
	if len(code) != AccessCodeLength {
		return fmt.Errorf("%w: access code must be %d characters, got %d", ErrInvalidInput, AccessCodeLength, len(code))
	}
	for i, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return fmt.Errorf("%w: invalid character '%c' at position %d of access code", ErrInvalidInput, r, i+1)
		}
	}
	return nil
}

// ValidateUser checks a participant before it is stored
func ValidateUser(u *User) error {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name must be at most %d characters", ErrInvalidInput, MaxNameLength)
	}
	u.Name = name
	return nil
}

// ValidateCard checks a card before it is stored
func ValidateCard(c *Card) error {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(title) > MaxTitleLength {
		return fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, MaxTitleLength)
	}
	if len(c.Description) > MaxDescriptionLen {
		return fmt.Errorf("%w: description must be at most %d characters", ErrInvalidInput, MaxDescriptionLen)
	}
	c.Title = title
	return nil
}

// ValidateVote checks that a vote references a card and a user
func ValidateVote(v *Vote) error {
	if v.CardID == "" {
		return fmt.Errorf("%w: card_id is required", ErrInvalidInput)
	}
	if v.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return nil
}
