package repository

import (
	"context"
	"testing"

	"github.com/JohnDonavon/magic-app/internal/storage"
	"github.com/JohnDonavon/magic-app/internal/storage/models"
)

func TestDeckRepository_InsertAndGet(t *testing.T) {
	client := setupTestClient(t)
	repo := NewDeckRepository(client)
	ctx := context.Background()

	description := "Counterspells and card draw"
	format := "modern"
	deck := &models.Deck{
		ID:          "deck-1",
		Name:        "Mono Blue Control",
		Description: &description,
		Format:      &format,
	}

	if err := repo.Insert(ctx, deck); err != nil {
		t.Fatalf("failed to insert deck: %v", err)
	}

	got, err := repo.GetByID(ctx, "deck-1")
	if err != nil {
		t.Fatalf("failed to get deck: %v", err)
	}
	if got == nil {
		t.Fatal("expected deck, got nil")
	}
	if got.Name != "Mono Blue Control" {
		t.Errorf("expected name 'Mono Blue Control', got %q", got.Name)
	}
	if got.Description == nil || *got.Description != description {
		t.Errorf("expected description %q, got %v", description, got.Description)
	}
	if got.Format == nil || *got.Format != format {
		t.Errorf("expected format %q, got %v", format, got.Format)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestDeckRepository_OptionalFieldsStayAbsent(t *testing.T) {
	client := setupTestClient(t)
	repo := NewDeckRepository(client)
	ctx := context.Background()

	deck := &models.Deck{ID: "deck-1", Name: "Untitled"}
	if err := repo.Insert(ctx, deck); err != nil {
		t.Fatalf("failed to insert deck: %v", err)
	}

	got, err := repo.GetByID(ctx, "deck-1")
	if err != nil {
		t.Fatalf("failed to get deck: %v", err)
	}
	if got.Description != nil {
		t.Errorf("expected nil description, got %v", *got.Description)
	}
	if got.Format != nil {
		t.Errorf("expected nil format, got %v", *got.Format)
	}
}

func TestDeckRepository_InsertRejectsInvalid(t *testing.T) {
	client := setupTestClient(t)
	repo := NewDeckRepository(client)
	ctx := context.Background()

	cases := []struct {
		name string
		deck *models.Deck
	}{
		{"missing id", &models.Deck{Name: "No ID"}},
		{"missing name", &models.Deck{ID: "deck-1"}},
		{"blank name", &models.Deck{ID: "deck-1", Name: "   "}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := repo.Insert(ctx, tc.deck); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDeckRepository_DuplicateIDIsConstraintViolation(t *testing.T) {
	client := setupTestClient(t)
	repo := NewDeckRepository(client)
	ctx := context.Background()

	deck := &models.Deck{ID: "deck-1", Name: "First"}
	if err := repo.Insert(ctx, deck); err != nil {
		t.Fatalf("failed to insert deck: %v", err)
	}

	dup := &models.Deck{ID: "deck-1", Name: "Second"}
	err := repo.Insert(ctx, dup)
	if err == nil {
		t.Fatal("expected duplicate insert to fail")
	}
	if !storage.IsConstraintViolation(err) {
		t.Errorf("expected constraint violation, got %v", err)
	}

	// The strict insert must not have replaced the original.
	got, err := repo.GetByID(ctx, "deck-1")
	if err != nil {
		t.Fatalf("failed to get deck: %v", err)
	}
	if got.Name != "First" {
		t.Errorf("expected original deck to survive, got %q", got.Name)
	}
}

func TestDeckRepository_Update(t *testing.T) {
	client := setupTestClient(t)
	repo := NewDeckRepository(client)
	ctx := context.Background()

	deck := &models.Deck{ID: "deck-1", Name: "Old Name"}
	if err := repo.Insert(ctx, deck); err != nil {
		t.Fatalf("failed to insert deck: %v", err)
	}

	format := "commander"
	deck.Name = "New Name"
	deck.Format = &format
	if err := repo.Update(ctx, deck); err != nil {
		t.Fatalf("failed to update deck: %v", err)
	}

	got, err := repo.GetByID(ctx, "deck-1")
	if err != nil {
		t.Fatalf("failed to get deck: %v", err)
	}
	if got.Name != "New Name" {
		t.Errorf("expected updated name, got %q", got.Name)
	}
	if got.Format == nil || *got.Format != "commander" {
		t.Errorf("expected format 'commander', got %v", got.Format)
	}
}

func TestDeckRepository_UpdateMissingDeck(t *testing.T) {
	client := setupTestClient(t)
	repo := NewDeckRepository(client)

	deck := &models.Deck{ID: "ghost", Name: "Ghost"}
	if err := repo.Update(context.Background(), deck); err == nil {
		t.Error("expected update of missing deck to fail")
	}
}

func TestDeckRepository_GetByIDMissing(t *testing.T) {
	client := setupTestClient(t)
	repo := NewDeckRepository(client)

	got, err := repo.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing deck, got %+v", got)
	}
}

func TestDeckRepository_DeleteCascades(t *testing.T) {
	client := setupTestClient(t)
	decks := NewDeckRepository(client)
	cards := NewCardRepository(client)
	deckCards := NewDeckCardRepository(client)
	ctx := context.Background()

	if err := cards.Insert(ctx, minimalCard("card-1", "Island")); err != nil {
		t.Fatalf("failed to insert card: %v", err)
	}
	if err := decks.Insert(ctx, &models.Deck{ID: "deck-1", Name: "Islands"}); err != nil {
		t.Fatalf("failed to insert deck: %v", err)
	}
	if err := deckCards.Insert(ctx, &models.DeckCard{
		ID:       "dc-1",
		DeckID:   "deck-1",
		CardID:   "card-1",
		Quantity: 24,
	}); err != nil {
		t.Fatalf("failed to insert deck card: %v", err)
	}

	if err := decks.Delete(ctx, "deck-1"); err != nil {
		t.Fatalf("failed to delete deck: %v", err)
	}

	links, err := deckCards.GetByDeckID(ctx, "deck-1")
	if err != nil {
		t.Fatalf("failed to get deck cards: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("expected cascade to remove deck cards, got %d", len(links))
	}

	// The card itself is untouched.
	card, err := cards.GetByID(ctx, "card-1")
	if err != nil {
		t.Fatalf("failed to get card: %v", err)
	}
	if card == nil {
		t.Error("expected card to survive deck deletion")
	}
}