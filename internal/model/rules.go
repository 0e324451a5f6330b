package model

import (
	"fmt"
	"time"
)

// Rules holds the configured life rules shared by both servers
type Rules struct {
	DefaultLives  int
	GracePeriod   time.Duration // <= 0 disables the grace period
	LivesOnRevive int
	MaxLives      int // <= 0 means uncapped
}

// DefaultRules returns the stock hardcore settings
func DefaultRules() Rules {
	return Rules{
		DefaultLives:  2,
		GracePeriod:   24 * time.Hour,
		LivesOnRevive: 1,
		MaxLives:      5,
	}
}

// ValidateLives rejects life counts outside [0, max]
func ValidateLives(lives, maxLives int) error {
	if lives < 0 {
		return fmt.Errorf("%w: lives cannot be negative", ErrInvalidLives)
	}
	if maxLives > 0 && lives > maxLives {
		return fmt.Errorf("%w: maximum lives is %d", ErrInvalidLives, maxLives)
	}
	return nil
}

// Validate checks the rules are internally consistent
func (r Rules) Validate() error {
	if r.DefaultLives < 1 {
		return fmt.Errorf("%w: default lives must be at least 1", ErrInvalidLives)
	}
	if err := ValidateLives(r.DefaultLives, r.MaxLives); err != nil {
		return err
	}
	return ValidateLives(r.LivesOnRevive, r.MaxLives)
}

// Clamp bounds a life count to [0, MaxLives]
func (r Rules) Clamp(lives int) int {
	if lives < 0 {
		return 0
	}
	if r.MaxLives > 0 && lives > r.MaxLives {
		return r.MaxLives
	}
	return lives
}
