// Package scryfall provides a rate-limited client for the Scryfall API
// and the card record types it returns.
package scryfall

import (
	"errors"
	"fmt"
)

// Legality is the status of a card in a single play format.
type Legality string

// Legality values as reported by the API.
const (
	Legal      Legality = "legal"
	NotLegal   Legality = "not_legal"
	Restricted Legality = "restricted"
	Banned     Legality = "banned"
)

// Card represents a single printing of a Magic card from Scryfall.
//
// Optional fields are pointers, nil slices, or nil maps when the API did not
// supply them. That distinction is load-bearing: the repository layer persists
// absent fields as SQL NULL and must get the same absence back on read.
type Card struct {
	// Core identity
	ID            string  `json:"id"`
	OracleID      *string `json:"oracle_id,omitempty"`
	MultiverseIDs []int   `json:"multiverse_ids,omitempty"`
	MTGOID        *int    `json:"mtgo_id,omitempty"`
	MTGOFoilID    *int    `json:"mtgo_foil_id,omitempty"`
	TCGPlayerID   *int    `json:"tcgplayer_id,omitempty"`
	CardmarketID  *int    `json:"cardmarket_id,omitempty"`

	// Display
	Name         string  `json:"name"`
	Lang         *string `json:"lang,omitempty"`
	ReleasedAt   *string `json:"released_at,omitempty"`
	URI          *string `json:"uri,omitempty"`
	ScryfallURI  *string `json:"scryfall_uri,omitempty"`
	Layout       *string `json:"layout,omitempty"`
	HighresImage bool    `json:"highres_image,omitempty"`
	ImageStatus  *string `json:"image_status,omitempty"`

	ImageURIs  *ImageURIs `json:"image_uris,omitempty"`
	ManaCost   *string    `json:"mana_cost,omitempty"`
	CMC        *float64   `json:"cmc,omitempty"`
	TypeLine   *string    `json:"type_line,omitempty"`
	OracleText *string    `json:"oracle_text,omitempty"`
	Power      *string    `json:"power,omitempty"`
	Toughness  *string    `json:"toughness,omitempty"`

	// Classification
	Colors        []string            `json:"colors,omitempty"`
	ColorIdentity []string            `json:"color_identity,omitempty"`
	Keywords      []string            `json:"keywords,omitempty"`
	Legalities    map[string]Legality `json:"legalities,omitempty"`
	Games         []string            `json:"games,omitempty"`
	Reserved      bool                `json:"reserved,omitempty"`
	Finishes      []string            `json:"finishes,omitempty"`

	// Print metadata
	Oversized       bool     `json:"oversized,omitempty"`
	Promo           bool     `json:"promo,omitempty"`
	Reprint         bool     `json:"reprint,omitempty"`
	Variation       bool     `json:"variation,omitempty"`
	SetID           *string  `json:"set_id,omitempty"`
	Set             *string  `json:"set,omitempty"`
	SetName         *string  `json:"set_name,omitempty"`
	SetType         *string  `json:"set_type,omitempty"`
	SetURI          *string  `json:"set_uri,omitempty"`
	SetSearchURI    *string  `json:"set_search_uri,omitempty"`
	ScryfallSetURI  *string  `json:"scryfall_set_uri,omitempty"`
	RulingsURI      *string  `json:"rulings_uri,omitempty"`
	PrintsSearchURI *string  `json:"prints_search_uri,omitempty"`
	CollectorNumber *string  `json:"collector_number,omitempty"`
	Digital         bool     `json:"digital,omitempty"`
	Rarity          *string  `json:"rarity,omitempty"`
	CardBackID      *string  `json:"card_back_id,omitempty"`
	Artist          *string  `json:"artist,omitempty"`
	ArtistIDs       []string `json:"artist_ids,omitempty"`
	IllustrationID  *string  `json:"illustration_id,omitempty"`
	BorderColor     *string  `json:"border_color,omitempty"`
	Frame           *string  `json:"frame,omitempty"`
	FrameEffects    []string `json:"frame_effects,omitempty"`
	SecurityStamp   *string  `json:"security_stamp,omitempty"`
	FullArt         bool     `json:"full_art,omitempty"`
	Textless        bool     `json:"textless,omitempty"`
	Booster         bool     `json:"booster,omitempty"`
	StorySpotlight  bool     `json:"story_spotlight,omitempty"`
	EDHRECRank      *int     `json:"edhrec_rank,omitempty"`
	PennyRank       *int     `json:"penny_rank,omitempty"`

	// Prices are decimal strings keyed by currency/finish ("usd", "usd_foil",
	// "eur", "tix", ...). They stay strings end to end; this package never
	// parses them into floats.
	Prices       map[string]string `json:"prices,omitempty"`
	RelatedURIs  map[string]string `json:"related_uris,omitempty"`
	PurchaseURIs map[string]string `json:"purchase_uris,omitempty"`

	// CardFaces holds the face sub-records of transform/split/modal
	// double-faced cards, in printed order.
	CardFaces []CardFace `json:"card_faces,omitempty"`

	// AllParts holds related-card stubs (tokens, meld pieces, combo pieces).
	AllParts []RelatedCard `json:"all_parts,omitempty"`
}

// CardFace represents one printed side of a multi-faced card.
type CardFace struct {
	Name           string     `json:"name"`
	ManaCost       *string    `json:"mana_cost,omitempty"`
	TypeLine       *string    `json:"type_line,omitempty"`
	OracleText     *string    `json:"oracle_text,omitempty"`
	Colors         []string   `json:"colors,omitempty"`
	Power          *string    `json:"power,omitempty"`
	Toughness      *string    `json:"toughness,omitempty"`
	Loyalty        *string    `json:"loyalty,omitempty"`
	Artist         *string    `json:"artist,omitempty"`
	ArtistID       *string    `json:"artist_id,omitempty"`
	IllustrationID *string    `json:"illustration_id,omitempty"`
	FlavorText     *string    `json:"flavor_text,omitempty"`
	ImageURIs      *ImageURIs `json:"image_uris,omitempty"`
}

// RelatedCard is a stub pointing at a card related to this one, such as the
// token it creates or the other half of a meld pair.
type RelatedCard struct {
	ID        string `json:"id"`
	Component string `json:"component"` // token, meld_part, meld_result, combo_piece
	Name      string `json:"name"`
	TypeLine  string `json:"type_line"`
	URI       string `json:"uri"`
}

// ImageURIs contains URLs for card images in various sizes.
type ImageURIs struct {
	Small      string `json:"small,omitempty"`
	Normal     string `json:"normal,omitempty"`
	Large      string `json:"large,omitempty"`
	PNG        string `json:"png,omitempty"`
	ArtCrop    string `json:"art_crop,omitempty"`
	BorderCrop string `json:"border_crop,omitempty"`
}

// Ruling is an official ruling attached to a card's oracle text.
type Ruling struct {
	OracleID    string `json:"oracle_id"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
	Comment     string `json:"comment"`
}

// List is a paginated list envelope returned by search endpoints.
type List[T any] struct {
	Object     string `json:"object"`
	TotalCards int    `json:"total_cards,omitempty"`
	HasMore    bool   `json:"has_more"`
	NextPage   string `json:"next_page,omitempty"`
	Data       []T    `json:"data"`
}

// APIError represents an error response from the Scryfall API. Code is the
// machine-readable code ("not_found", "bad_request", ...), Details the human
// readable explanation.
type APIError struct {
	Object   string   `json:"object"`
	Code     string   `json:"code"`
	Status   int      `json:"status"`
	Details  string   `json:"details"`
	Type     string   `json:"type,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("scryfall API error (HTTP %d): %s", e.Status, e.Details)
	}
	return fmt.Sprintf("scryfall API error (HTTP %d): %s", e.Status, e.Code)
}

// NotFoundError represents a 404 response from the API.
type NotFoundError struct {
	URL string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URL)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
