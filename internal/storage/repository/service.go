package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JohnDonavon/magic-app/internal/scryfall"
	"github.com/JohnDonavon/magic-app/internal/storage"
	"github.com/JohnDonavon/magic-app/internal/storage/models"
)

// Service provides the high-level operations the UI layer consumes,
// composed from the per-entity repositories.
type Service struct {
	client    *storage.Client
	catalog   *scryfall.Client
	cards     CardRepository
	decks     DeckRepository
	deckCards DeckCardRepository
}

// NewService creates a new storage service. The catalog client may be nil
// when remote fetching is not needed (e.g. offline browsing of the
// collection).
func NewService(client *storage.Client, catalog *scryfall.Client) *Service {
	return &Service{
		client:    client,
		catalog:   catalog,
		cards:     NewCardRepository(client),
		decks:     NewDeckRepository(client),
		deckCards: NewDeckCardRepository(client),
	}
}

// Cards returns the card repository.
func (s *Service) Cards() CardRepository { return s.cards }

// Decks returns the deck repository.
func (s *Service) Decks() DeckRepository { return s.decks }

// DeckCards returns the deck card repository.
func (s *Service) DeckCards() DeckCardRepository { return s.deckCards }

// ImportCard fetches a card from the remote catalog and upserts it locally.
// This is the scan/search flow's write path.
func (s *Service) ImportCard(ctx context.Context, id string) (*models.Card, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("no catalog client configured")
	}

	fetched, err := s.catalog.GetCard(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch card %s: %w", id, err)
	}

	card := &models.Card{Card: *fetched}
	if err := s.cards.Insert(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// CreateDeck creates a new deck with a generated id. Description and format
// are optional.
func (s *Service) CreateDeck(ctx context.Context, name string, description, format *string) (*models.Deck, error) {
	deck := &models.Deck{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Format:      format,
	}
	if err := s.decks.Insert(ctx, deck); err != nil {
		return nil, err
	}
	return deck, nil
}

// DeckEntry describes one logical card entry when building a deck list.
type DeckEntry struct {
	CardID      string
	Quantity    int
	IsSideboard bool
}

// CreateDeckWithCards inserts a deck and its card list in one batch
// transaction: either the deck and every entry are visible afterward, or
// nothing is.
func (s *Service) CreateDeckWithCards(ctx context.Context, deck *models.Deck, entries []DeckEntry) error {
	statements := make([]storage.Statement, 0, len(entries)+1)

	deckStatement, err := s.decks.InsertStatement(deck)
	if err != nil {
		return err
	}
	statements = append(statements, deckStatement)

	entryStatements, err := s.entryStatements(deck.ID, entries)
	if err != nil {
		return err
	}
	statements = append(statements, entryStatements...)

	if err := s.client.ExecBatch(ctx, statements); err != nil {
		return fmt.Errorf("failed to store deck %s: %w", deck.ID, err)
	}
	return nil
}

// RebuildDeckCards replaces a deck's entire card list: delete by deck id,
// then re-insert, inside one batch transaction. Lists are rebuilt wholesale,
// not diffed.
func (s *Service) RebuildDeckCards(ctx context.Context, deckID string, entries []DeckEntry) error {
	statements := []storage.Statement{s.deckCards.DeleteByDeckIDStatement(deckID)}

	entryStatements, err := s.entryStatements(deckID, entries)
	if err != nil {
		return err
	}
	statements = append(statements, entryStatements...)

	if err := s.client.ExecBatch(ctx, statements); err != nil {
		return fmt.Errorf("failed to rebuild deck %s: %w", deckID, err)
	}
	return nil
}

// entryStatements builds insert statements for a deck's entries, generating
// a fresh id per logical entry.
func (s *Service) entryStatements(deckID string, entries []DeckEntry) ([]storage.Statement, error) {
	statements := make([]storage.Statement, 0, len(entries))
	for _, entry := range entries {
		deckCard := &models.DeckCard{
			ID:          uuid.NewString(),
			DeckID:      deckID,
			CardID:      entry.CardID,
			Quantity:    entry.Quantity,
			IsSideboard: entry.IsSideboard,
		}
		statement, err := s.deckCards.InsertStatement(deckCard)
		if err != nil {
			return nil, err
		}
		statements = append(statements, statement)
	}
	return statements, nil
}

// DeckWithCards retrieves a deck and its card links. The deck is nil when
// absent.
func (s *Service) DeckWithCards(ctx context.Context, deckID string) (*models.Deck, []*models.DeckCard, error) {
	deck, err := s.decks.GetByID(ctx, deckID)
	if err != nil {
		return nil, nil, err
	}
	if deck == nil {
		return nil, nil, nil
	}

	deckCards, err := s.deckCards.GetByDeckID(ctx, deckID)
	if err != nil {
		return nil, nil, err
	}

	return deck, deckCards, nil
}
