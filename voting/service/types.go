package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/wricardo/voting-session/voting/model"
)

// SessionInfo is a session with counts and per-card tallies
type SessionInfo struct {
	model.Session
	UserCount int         `json:"user_count"`
	CardCount int         `json:"card_count"`
	VoteCount int         `json:"vote_count"`
	Tally     []CardTally `json:"tally"`
}

// CardTally counts the yes and no votes on one card
type CardTally struct {
	CardID string `json:"card_id"`
	Title  string `json:"title"`
	Yes    int    `json:"yes"`
	No     int    `json:"no"`
}

// ListOptions configures session listing
type ListOptions struct {
	Sort  string `json:"sort"`  // "created_at" or "access_code"
	Order string `json:"order"` // "asc" or "desc"
	Limit int    `json:"limit"` // 0 means no limit
}

// generateAccessCode returns a random code drawn from model.AccessCodeCharset
func generateAccessCode() (string, error) {
	max := big.NewInt(int64(len(model.AccessCodeCharset)))
	code := make([]byte, model.AccessCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate access code: %w", err)
		}
		code[i] = model.AccessCodeCharset[n.Int64()]
	}
	return string(code), nil
}
