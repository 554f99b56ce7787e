package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migration is one ordered schema-transformation step, applied inside the
// transaction Connect opens for the whole delta.
type Migration func(ctx context.Context, tx *sql.Tx) error

// SQLBatch builds a Migration from a batch of semicolon-separated SQL
// statements. Each statement is trimmed and run individually; empty
// statements are skipped. A later statement's failure rolls back earlier
// statements in the same step along with all prior steps in the same
// Connect call.
func SQLBatch(batch string) Migration {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, statement := range strings.Split(batch, ";") {
			statement = strings.TrimSpace(statement)
			if statement == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, statement); err != nil {
				return fmt.Errorf("failed to execute statement: %w", err)
			}
		}
		return nil
	}
}

// Migrations returns the registered migration chain.
//
// Be careful: only ever append to the end of this list. The stored schema
// version is a plain count of applied steps, so inserting, reordering, or
// removing entries breaks every existing install.
func Migrations() []Migration {
	return []Migration{
		SQLBatch(baselineSchema),
		SQLBatch(lookupIndexes),
	}
}

// baselineSchema is migration step 0: the full initial table set.
//
// Every list, map, or nested-object field of a card is stored as JSON text;
// an absent field is stored as NULL, never as a serialized empty collection.
// Timestamps are epoch milliseconds.
const baselineSchema = `
CREATE TABLE IF NOT EXISTS cards (
	id TEXT PRIMARY KEY,
	oracle_id TEXT,
	multiverse_ids TEXT,
	mtgo_id INTEGER,
	mtgo_foil_id INTEGER,
	tcgplayer_id INTEGER,
	cardmarket_id INTEGER,
	name TEXT NOT NULL,
	lang TEXT,
	released_at TEXT,
	uri TEXT,
	scryfall_uri TEXT,
	layout TEXT,
	highres_image INTEGER NOT NULL DEFAULT 0,
	image_status TEXT,
	image_uris TEXT,
	mana_cost TEXT,
	cmc REAL,
	type_line TEXT,
	oracle_text TEXT,
	power TEXT,
	toughness TEXT,
	colors TEXT,
	color_identity TEXT,
	keywords TEXT,
	legalities TEXT,
	games TEXT,
	reserved INTEGER NOT NULL DEFAULT 0,
	finishes TEXT,
	oversized INTEGER NOT NULL DEFAULT 0,
	promo INTEGER NOT NULL DEFAULT 0,
	reprint INTEGER NOT NULL DEFAULT 0,
	variation INTEGER NOT NULL DEFAULT 0,
	set_id TEXT,
	"set" TEXT,
	set_name TEXT,
	set_type TEXT,
	set_uri TEXT,
	set_search_uri TEXT,
	scryfall_set_uri TEXT,
	rulings_uri TEXT,
	prints_search_uri TEXT,
	collector_number TEXT,
	digital INTEGER NOT NULL DEFAULT 0,
	rarity TEXT,
	card_back_id TEXT,
	artist TEXT,
	artist_ids TEXT,
	illustration_id TEXT,
	border_color TEXT,
	frame TEXT,
	frame_effects TEXT,
	security_stamp TEXT,
	full_art INTEGER NOT NULL DEFAULT 0,
	textless INTEGER NOT NULL DEFAULT 0,
	booster INTEGER NOT NULL DEFAULT 0,
	story_spotlight INTEGER NOT NULL DEFAULT 0,
	edhrec_rank INTEGER,
	penny_rank INTEGER,
	prices TEXT,
	related_uris TEXT,
	purchase_uris TEXT,
	card_faces TEXT,
	all_parts TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS decks (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	format TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS deck_cards (
	id TEXT PRIMARY KEY,
	deck_id TEXT NOT NULL,
	card_id TEXT NOT NULL,
	quantity INTEGER NOT NULL DEFAULT 1,
	is_sideboard INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	FOREIGN KEY (deck_id) REFERENCES decks (id) ON DELETE CASCADE,
	FOREIGN KEY (card_id) REFERENCES cards (id) ON DELETE CASCADE
);
`

// lookupIndexes is migration step 1: indexes for the collection and deck
// list views.
const lookupIndexes = `
CREATE INDEX IF NOT EXISTS idx_cards_name ON cards (name);
CREATE INDEX IF NOT EXISTS idx_cards_set ON cards ("set");
CREATE INDEX IF NOT EXISTS idx_deck_cards_deck_id ON deck_cards (deck_id);
CREATE INDEX IF NOT EXISTS idx_deck_cards_card_id ON deck_cards (card_id);
`
