package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/JohnDonavon/magic-app/internal/storage"
	"github.com/JohnDonavon/magic-app/internal/storage/models"
)

// DeckCardRepository handles database operations for deck card links.
// Inserts are strict, like decks: a duplicate id is a caller error.
type DeckCardRepository interface {
	// Insert inserts a new deck card link. Fails with a constraint
	// violation when the referenced deck or card does not exist.
	Insert(ctx context.Context, deckCard *models.DeckCard) error

	// InsertStatement builds the insert statement for batched execution.
	// It validates the link and assigns its timestamps as a side effect.
	InsertStatement(deckCard *models.DeckCard) (storage.Statement, error)

	// GetByDeckID retrieves all card links for a deck.
	GetByDeckID(ctx context.Context, deckID string) ([]*models.DeckCard, error)

	// DeleteByDeckID removes every card link for a deck; used before a
	// full rebuild of a deck's list.
	DeleteByDeckID(ctx context.Context, deckID string) error

	// DeleteByDeckIDStatement builds the bulk delete for batched execution.
	DeleteByDeckIDStatement(deckID string) storage.Statement
}

// deckCardRepository is the concrete implementation of DeckCardRepository.
type deckCardRepository struct {
	client *storage.Client
}

// NewDeckCardRepository creates a new deck card repository.
func NewDeckCardRepository(client *storage.Client) DeckCardRepository {
	return &deckCardRepository{client: client}
}

// Insert inserts a new deck card link into the database.
func (r *deckCardRepository) Insert(ctx context.Context, deckCard *models.DeckCard) error {
	statement, err := r.InsertStatement(deckCard)
	if err != nil {
		return err
	}
	if _, err := r.client.Execute(ctx, statement.SQL, statement.Args...); err != nil {
		return fmt.Errorf("failed to insert deck card: %w", err)
	}
	return nil
}

// InsertStatement builds the strict insert for a deck card link.
func (r *deckCardRepository) InsertStatement(deckCard *models.DeckCard) (storage.Statement, error) {
	if err := deckCard.Validate(); err != nil {
		return storage.Statement{}, fmt.Errorf("invalid deck card: %w", err)
	}

	now := time.Now()
	deckCard.CreatedAt = now
	deckCard.UpdatedAt = now

	return storage.Statement{
		SQL: `INSERT INTO deck_cards (id, deck_id, card_id, quantity, is_sideboard, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		Args: []any{
			deckCard.ID,
			deckCard.DeckID,
			deckCard.CardID,
			deckCard.Quantity,
			boolToInt(deckCard.IsSideboard),
			now.UnixMilli(),
			now.UnixMilli(),
		},
	}, nil
}

// GetByDeckID retrieves all card links for a deck.
func (r *deckCardRepository) GetByDeckID(ctx context.Context, deckID string) ([]*models.DeckCard, error) {
	query := `
		SELECT id, deck_id, card_id, quantity, is_sideboard, created_at, updated_at
		FROM deck_cards
		WHERE deck_id = ?
	`

	rows, err := r.client.Query(ctx, query, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get deck cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var deckCards []*models.DeckCard
	for rows.Next() {
		var deckCard models.DeckCard
		var createdAt, updatedAt int64
		err := rows.Scan(
			&deckCard.ID,
			&deckCard.DeckID,
			&deckCard.CardID,
			&deckCard.Quantity,
			&deckCard.IsSideboard,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deck card: %w", err)
		}
		deckCard.CreatedAt = time.UnixMilli(createdAt)
		deckCard.UpdatedAt = time.UnixMilli(updatedAt)
		deckCards = append(deckCards, &deckCard)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deck cards: %w", err)
	}

	return deckCards, nil
}

// DeleteByDeckID removes all card links for a deck.
func (r *deckCardRepository) DeleteByDeckID(ctx context.Context, deckID string) error {
	statement := r.DeleteByDeckIDStatement(deckID)
	if _, err := r.client.Execute(ctx, statement.SQL, statement.Args...); err != nil {
		return fmt.Errorf("failed to delete deck cards: %w", err)
	}
	return nil
}

// DeleteByDeckIDStatement builds the bulk delete for batched execution.
func (r *deckCardRepository) DeleteByDeckIDStatement(deckID string) storage.Statement {
	return storage.Statement{
		SQL:  `DELETE FROM deck_cards WHERE deck_id = ?`,
		Args: []any{deckID},
	}
}
