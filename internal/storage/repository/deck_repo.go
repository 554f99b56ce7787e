package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/JohnDonavon/magic-app/internal/storage"
	"github.com/JohnDonavon/magic-app/internal/storage/models"
)

// DeckRepository handles database operations for decks.
//
// Unlike cards, decks use strict inserts: a conflicting primary key is a
// caller error, not a silent replace. Decks are explicit user mutations,
// not idempotent re-fetches. Do not unify this with the card upsert.
type DeckRepository interface {
	// Insert inserts a new deck. The deck is validated first; a duplicate
	// id surfaces as a constraint violation.
	Insert(ctx context.Context, deck *models.Deck) error

	// InsertStatement builds the insert statement for batched execution.
	// It validates the deck and assigns its timestamps as a side effect.
	InsertStatement(deck *models.Deck) (storage.Statement, error)

	// Update updates an existing deck's mutable fields.
	Update(ctx context.Context, deck *models.Deck) error

	// GetByID retrieves a deck by its ID, or nil if absent.
	GetByID(ctx context.Context, id string) (*models.Deck, error)

	// GetAll retrieves every deck. Row order is unspecified.
	GetAll(ctx context.Context) ([]*models.Deck, error)

	// Delete deletes a deck; deck_cards rows cascade.
	Delete(ctx context.Context, id string) error
}

// deckRepository is the concrete implementation of DeckRepository.
type deckRepository struct {
	client *storage.Client
}

// NewDeckRepository creates a new deck repository.
func NewDeckRepository(client *storage.Client) DeckRepository {
	return &deckRepository{client: client}
}

// Insert inserts a new deck into the database.
func (r *deckRepository) Insert(ctx context.Context, deck *models.Deck) error {
	statement, err := r.InsertStatement(deck)
	if err != nil {
		return err
	}
	if _, err := r.client.Execute(ctx, statement.SQL, statement.Args...); err != nil {
		return fmt.Errorf("failed to insert deck: %w", err)
	}
	return nil
}

// InsertStatement builds the strict insert for a deck.
func (r *deckRepository) InsertStatement(deck *models.Deck) (storage.Statement, error) {
	if err := deck.Validate(); err != nil {
		return storage.Statement{}, fmt.Errorf("invalid deck: %w", err)
	}

	now := time.Now()
	deck.CreatedAt = now
	deck.UpdatedAt = now

	return storage.Statement{
		SQL: `INSERT INTO decks (id, name, description, format, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
		Args: []any{
			deck.ID,
			deck.Name,
			deck.Description,
			deck.Format,
			now.UnixMilli(),
			now.UnixMilli(),
		},
	}, nil
}

// Update updates an existing deck.
func (r *deckRepository) Update(ctx context.Context, deck *models.Deck) error {
	if err := deck.Validate(); err != nil {
		return fmt.Errorf("invalid deck: %w", err)
	}

	now := time.Now()
	deck.UpdatedAt = now

	query := `
		UPDATE decks
		SET name = ?, description = ?, format = ?, updated_at = ?
		WHERE id = ?
	`

	affected, err := r.client.Execute(ctx, query,
		deck.Name,
		deck.Description,
		deck.Format,
		now.UnixMilli(),
		deck.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update deck: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("deck %s not found", deck.ID)
	}

	return nil
}

// GetByID retrieves a deck by its ID.
func (r *deckRepository) GetByID(ctx context.Context, id string) (*models.Deck, error) {
	query := `
		SELECT id, name, description, format, created_at, updated_at
		FROM decks
		WHERE id = ?
	`

	row, err := r.client.GetFirst(ctx, query, id)
	if err != nil {
		return nil, err
	}

	deck, err := scanDeck(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck by id: %w", err)
	}
	return deck, nil
}

// GetAll retrieves all decks.
func (r *deckRepository) GetAll(ctx context.Context) ([]*models.Deck, error) {
	query := `
		SELECT id, name, description, format, created_at, updated_at
		FROM decks
	`

	rows, err := r.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all decks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var decks []*models.Deck
	for rows.Next() {
		deck, err := scanDeck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deck: %w", err)
		}
		decks = append(decks, deck)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decks: %w", err)
	}

	return decks, nil
}

// Delete deletes a deck by its ID. Linked deck_cards rows are removed by
// the cascade.
func (r *deckRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.client.Execute(ctx, `DELETE FROM decks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete deck: %w", err)
	}
	return nil
}

// scanDeck maps one decks row into its typed shape.
func scanDeck(row rowScanner) (*models.Deck, error) {
	var deck models.Deck
	var createdAt, updatedAt int64

	err := row.Scan(
		&deck.ID,
		&deck.Name,
		&deck.Description,
		&deck.Format,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	deck.CreatedAt = time.UnixMilli(createdAt)
	deck.UpdatedAt = time.UnixMilli(updatedAt)

	return &deck, nil
}
