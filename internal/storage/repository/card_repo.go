// Package repository translates between the nested record shapes in models
// and the flat rows of the local database.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/JohnDonavon/magic-app/internal/storage"
	"github.com/JohnDonavon/magic-app/internal/storage/models"
)

// CardRepository handles database operations for catalog cards.
type CardRepository interface {
	// Insert upserts a card: re-inserting an existing id replaces the row
	// wholesale. Cards are re-fetched and re-scanned idempotently, so
	// replace-on-conflict is the intended write semantics here. Note that
	// the replace is a delete plus insert under the hood, so deck_cards
	// rows referencing the card cascade away with the old row.
	Insert(ctx context.Context, card *models.Card) error

	// InsertStatement builds the upsert statement for batched execution.
	// It assigns the card's timestamps as a side effect.
	InsertStatement(card *models.Card) (storage.Statement, error)

	// GetByID retrieves a fully deserialized card, or nil if absent.
	GetByID(ctx context.Context, id string) (*models.Card, error)

	// GetAll retrieves every card. Row order is unspecified; callers
	// needing an order sort client-side.
	GetAll(ctx context.Context) ([]*models.Card, error)
}

// cardRepository is the concrete implementation of CardRepository.
type cardRepository struct {
	client *storage.Client
}

// NewCardRepository creates a new card repository.
func NewCardRepository(client *storage.Client) CardRepository {
	return &cardRepository{client: client}
}

// cardColumns lists the cards table columns in the canonical order used by
// both the insert and select statements. "set" needs quoting: it is a SQL
// keyword.
const cardColumns = `id, oracle_id, multiverse_ids, mtgo_id, mtgo_foil_id, tcgplayer_id, cardmarket_id,
	name, lang, released_at, uri, scryfall_uri, layout, highres_image, image_status,
	image_uris, mana_cost, cmc, type_line, oracle_text, power, toughness, colors,
	color_identity, keywords, legalities, games, reserved, finishes,
	oversized, promo, reprint, variation, set_id, "set", set_name, set_type, set_uri,
	set_search_uri, scryfall_set_uri, rulings_uri, prints_search_uri, collector_number,
	digital, rarity, card_back_id, artist, artist_ids, illustration_id, border_color,
	frame, frame_effects, security_stamp, full_art, textless, booster, story_spotlight,
	edhrec_rank, penny_rank, prices, related_uris, purchase_uris, card_faces, all_parts,
	created_at, updated_at`

const cardColumnCount = 66

// Insert upserts a card by primary key.
func (r *cardRepository) Insert(ctx context.Context, card *models.Card) error {
	statement, err := r.InsertStatement(card)
	if err != nil {
		return err
	}
	if _, err := r.client.Execute(ctx, statement.SQL, statement.Args...); err != nil {
		return fmt.Errorf("failed to insert card: %w", err)
	}
	return nil
}

// InsertStatement builds the INSERT OR REPLACE statement for a card,
// serializing every nested field to JSON text. Absent fields become NULL,
// never a serialized empty collection, so absence survives a round trip.
func (r *cardRepository) InsertStatement(card *models.Card) (storage.Statement, error) {
	now := time.Now()
	card.CreatedAt = now
	card.UpdatedAt = now

	enc := &jsonEncoder{}
	args := []any{
		card.ID,
		card.OracleID,
		enc.encode(card.MultiverseIDs, card.MultiverseIDs == nil),
		card.MTGOID,
		card.MTGOFoilID,
		card.TCGPlayerID,
		card.CardmarketID,
		card.Name,
		card.Lang,
		card.ReleasedAt,
		card.URI,
		card.ScryfallURI,
		card.Layout,
		boolToInt(card.HighresImage),
		card.ImageStatus,
		enc.encode(card.ImageURIs, card.ImageURIs == nil),
		card.ManaCost,
		card.CMC,
		card.TypeLine,
		card.OracleText,
		card.Power,
		card.Toughness,
		enc.encode(card.Colors, card.Colors == nil),
		enc.encode(card.ColorIdentity, card.ColorIdentity == nil),
		enc.encode(card.Keywords, card.Keywords == nil),
		enc.encode(card.Legalities, card.Legalities == nil),
		enc.encode(card.Games, card.Games == nil),
		boolToInt(card.Reserved),
		enc.encode(card.Finishes, card.Finishes == nil),
		boolToInt(card.Oversized),
		boolToInt(card.Promo),
		boolToInt(card.Reprint),
		boolToInt(card.Variation),
		card.SetID,
		card.Set,
		card.SetName,
		card.SetType,
		card.SetURI,
		card.SetSearchURI,
		card.ScryfallSetURI,
		card.RulingsURI,
		card.PrintsSearchURI,
		card.CollectorNumber,
		boolToInt(card.Digital),
		card.Rarity,
		card.CardBackID,
		card.Artist,
		enc.encode(card.ArtistIDs, card.ArtistIDs == nil),
		card.IllustrationID,
		card.BorderColor,
		card.Frame,
		enc.encode(card.FrameEffects, card.FrameEffects == nil),
		card.SecurityStamp,
		boolToInt(card.FullArt),
		boolToInt(card.Textless),
		boolToInt(card.Booster),
		boolToInt(card.StorySpotlight),
		card.EDHRECRank,
		card.PennyRank,
		enc.encode(card.Prices, card.Prices == nil),
		enc.encode(card.RelatedURIs, card.RelatedURIs == nil),
		enc.encode(card.PurchaseURIs, card.PurchaseURIs == nil),
		enc.encode(card.CardFaces, card.CardFaces == nil),
		enc.encode(card.AllParts, card.AllParts == nil),
		now.UnixMilli(),
		now.UnixMilli(),
	}
	if enc.err != nil {
		return storage.Statement{}, fmt.Errorf("failed to serialize card %s: %w", card.ID, enc.err)
	}

	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO cards (%s) VALUES (%s)",
		cardColumns,
		placeholders(cardColumnCount),
	)
	return storage.Statement{SQL: query, Args: args}, nil
}

// GetByID retrieves a card by its Scryfall ID.
func (r *cardRepository) GetByID(ctx context.Context, id string) (*models.Card, error) {
	query := fmt.Sprintf("SELECT %s FROM cards WHERE id = ?", cardColumns)

	row, err := r.client.GetFirst(ctx, query, id)
	if err != nil {
		return nil, err
	}

	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card by id: %w", err)
	}
	return card, nil
}

// GetAll retrieves every card, fully deserialized.
func (r *cardRepository) GetAll(ctx context.Context) ([]*models.Card, error) {
	query := fmt.Sprintf("SELECT %s FROM cards", cardColumns)

	rows, err := r.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cards []*models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}

	return cards, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanCard maps one flat row back into the nested card shape. NULL columns
// map back to absent fields; non-NULL JSON text is parsed back into its
// collection or object shape. No untyped value escapes this function.
func scanCard(row rowScanner) (*models.Card, error) {
	var card models.Card
	var (
		multiverseIDs, imageURIs, colors, colorIdentity, keywords sql.NullString
		legalities, games, finishes, artistIDs, frameEffects      sql.NullString
		prices, relatedURIs, purchaseURIs, cardFaces, allParts    sql.NullString
		createdAt, updatedAt                                      int64
	)

	err := row.Scan(
		&card.ID,
		&card.OracleID,
		&multiverseIDs,
		&card.MTGOID,
		&card.MTGOFoilID,
		&card.TCGPlayerID,
		&card.CardmarketID,
		&card.Name,
		&card.Lang,
		&card.ReleasedAt,
		&card.URI,
		&card.ScryfallURI,
		&card.Layout,
		&card.HighresImage,
		&card.ImageStatus,
		&imageURIs,
		&card.ManaCost,
		&card.CMC,
		&card.TypeLine,
		&card.OracleText,
		&card.Power,
		&card.Toughness,
		&colors,
		&colorIdentity,
		&keywords,
		&legalities,
		&games,
		&card.Reserved,
		&finishes,
		&card.Oversized,
		&card.Promo,
		&card.Reprint,
		&card.Variation,
		&card.SetID,
		&card.Set,
		&card.SetName,
		&card.SetType,
		&card.SetURI,
		&card.SetSearchURI,
		&card.ScryfallSetURI,
		&card.RulingsURI,
		&card.PrintsSearchURI,
		&card.CollectorNumber,
		&card.Digital,
		&card.Rarity,
		&card.CardBackID,
		&card.Artist,
		&artistIDs,
		&card.IllustrationID,
		&card.BorderColor,
		&card.Frame,
		&frameEffects,
		&card.SecurityStamp,
		&card.FullArt,
		&card.Textless,
		&card.Booster,
		&card.StorySpotlight,
		&card.EDHRECRank,
		&card.PennyRank,
		&prices,
		&relatedURIs,
		&purchaseURIs,
		&cardFaces,
		&allParts,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	dec := &jsonDecoder{table: "cards", id: card.ID}
	dec.decode("multiverse_ids", multiverseIDs, &card.MultiverseIDs)
	dec.decode("image_uris", imageURIs, &card.ImageURIs)
	dec.decode("colors", colors, &card.Colors)
	dec.decode("color_identity", colorIdentity, &card.ColorIdentity)
	dec.decode("keywords", keywords, &card.Keywords)
	dec.decode("legalities", legalities, &card.Legalities)
	dec.decode("games", games, &card.Games)
	dec.decode("finishes", finishes, &card.Finishes)
	dec.decode("artist_ids", artistIDs, &card.ArtistIDs)
	dec.decode("frame_effects", frameEffects, &card.FrameEffects)
	dec.decode("prices", prices, &card.Prices)
	dec.decode("related_uris", relatedURIs, &card.RelatedURIs)
	dec.decode("purchase_uris", purchaseURIs, &card.PurchaseURIs)
	dec.decode("card_faces", cardFaces, &card.CardFaces)
	dec.decode("all_parts", allParts, &card.AllParts)
	if dec.err != nil {
		return nil, dec.err
	}

	card.CreatedAt = time.UnixMilli(createdAt)
	card.UpdatedAt = time.UnixMilli(updatedAt)

	return &card, nil
}

// placeholders builds "?, ?, ..., ?" with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
