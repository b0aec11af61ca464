package domain

import (
	"time"

	"github.com/google/uuid"
)

// StoredDeck — deck, сохранённый в БД.
type StoredDeck struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	// LatestVersion — номер последней версии (0, если версий нет).
	LatestVersion int `json:"latest_version"`
}

// DeckVersion — неизменяемая версия manifest и fixtures.
type DeckVersion struct {
	DeckID    uuid.UUID `json:"deck_id"`
	Version   int       `json:"version"`
	Manifest  Manifest  `json:"manifest"`
	Fixtures  Fixtures  `json:"fixtures,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
