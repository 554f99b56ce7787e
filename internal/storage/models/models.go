// Package models defines the records persisted by the local database.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/JohnDonavon/magic-app/internal/scryfall"
)

// Card is a catalog card as stored locally: the external Scryfall shape plus
// the two timestamps this system owns. CreatedAt/UpdatedAt are assigned by
// the repository at write time and persisted as epoch milliseconds.
type Card struct {
	scryfall.Card

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deck is a user-built deck. It exists only locally; there is no server
// counterpart. The ID is caller-generated.
type Deck struct {
	ID          string
	Name        string
	Description *string
	Format      *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the invariants enforced at the call boundary rather than
// by a database constraint.
func (d *Deck) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("deck id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("deck name is required")
	}
	return nil
}

// DeckCard links a card into a deck. Both foreign keys cascade on delete.
//
// The schema does not require (deck_id, card_id) pairs to be unique: the
// same card may appear in multiple rows of one deck. Callers generate a
// fresh ID per logical entry unless intentionally replacing one.
type DeckCard struct {
	ID          string
	DeckID      string
	CardID      string
	Quantity    int
	IsSideboard bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the quantity invariant before the row reaches storage.
func (dc *DeckCard) Validate() error {
	if dc.ID == "" {
		return fmt.Errorf("deck card id is required")
	}
	if dc.DeckID == "" {
		return fmt.Errorf("deck card deck_id is required")
	}
	if dc.CardID == "" {
		return fmt.Errorf("deck card card_id is required")
	}
	if dc.Quantity < 1 {
		return fmt.Errorf("deck card quantity must be at least 1, got %d", dc.Quantity)
	}
	return nil
}
