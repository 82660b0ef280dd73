// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"strings"
)

// ErrUnknownGuess is returned when a guess label cannot be parsed.
var ErrUnknownGuess = errors.New("unknown guess")

// Guess is the user's pre-committed answer. The zero value means unset.
type Guess int

const (
	GuessUnset Guess = iota
	GuessFake
	GuessReal
)

func (g Guess) String() string {
	switch g {
	case GuessFake:
		return "Fake"
	case GuessReal:
		return "Real"
	default:
		return ""
	}
}

// IsSet reports whether the user picked an answer.
func (g Guess) IsSet() bool { return g == GuessFake || g == GuessReal }

// ParseGuess accepts "Fake" or "Real" (case-insensitive). An empty string
// yields GuessUnset without error so that callers can forward raw form input.
func ParseGuess(s string) (Guess, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return GuessUnset, nil
	case "fake":
		return GuessFake, nil
	case "real":
		return GuessReal, nil
	default:
		return GuessUnset, ErrUnknownGuess
	}
}

// Submission is one user request for analysis.
type Submission struct {
	ImageData []byte // uploaded image bytes, optional
	ImageName string // original file name of the upload
	URL       string // remote image or page URL, optional
	Guess     Guess
	Nickname  string // leaderboard nickname, optional
}

// HasImage reports whether an uploaded image is attached.
func (s Submission) HasImage() bool { return len(s.ImageData) > 0 }
