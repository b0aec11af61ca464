package api

import (
	"context"
	"log/slog"

	"github.com/shaiso/Deck/internal/deck"
	"github.com/shaiso/Deck/internal/domain"
	"github.com/shaiso/Deck/internal/telemetry"
)

// Catalog — каталог шагов deck. Реализуется *engine.Registry.
type Catalog interface {
	Name() string
	Steps() []domain.StepDef
	Step(stepID string) (domain.StepDef, bool)
	Resolve(stepID string) (domain.EndpointConfig, error)
}

// DeckStore — хранилище decks. Реализуется *repo.DeckRepo.
type DeckStore interface {
	List(ctx context.Context) ([]domain.StoredDeck, error)
	GetLatest(ctx context.Context, name string) (*domain.DeckVersion, error)
	GetVersion(ctx context.Context, name string, version int) (*domain.DeckVersion, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	deck    deck.Deck
	catalog Catalog
	store   DeckStore
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// Config — конфигурация для создания Handler.
type Config struct {
	Deck    deck.Deck
	Catalog Catalog

	// Store — необязательное хранилище decks. nil — маршруты /decks отвечают 404.
	Store DeckStore

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		deck:    cfg.Deck,
		catalog: cfg.Catalog,
		store:   cfg.Store,
		logger:  logger,
		metrics: cfg.Metrics,
	}
}
