package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Deck/internal/domain"
	"github.com/shaiso/Deck/internal/engine"
)

// DeckRepo — репозиторий для decks и deck_versions.
//
// Хранит только входную конфигурацию (manifest и fixtures).
// Результаты выполнения шагов не сохраняются.
type DeckRepo struct {
	pool *pgxpool.Pool
}

// NewDeckRepo создаёт новый DeckRepo.
func NewDeckRepo(pool *pgxpool.Pool) *DeckRepo {
	return &DeckRepo{pool: pool}
}

// Save сохраняет новую версию deck. Deck создаётся при первом сохранении.
// Версия автоматически инкрементируется.
func (r *DeckRepo) Save(ctx context.Context, name string, m *domain.Manifest, fixtures domain.Fixtures) (*domain.DeckVersion, error) {
	manifestJSON, fixturesJSON, err := encodeVersion(m, fixtures)
	if err != nil {
		return nil, err
	}

	var version domain.DeckVersion
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var deckID uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO decks (id, name, created_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, uuid.New(), name).Scan(&deckID)
		if err != nil {
			return fmt.Errorf("upsert deck: %w", err)
		}

		// Номера версий выдаются под блокировкой строки deck
		if _, err := tx.Exec(ctx, `SELECT id FROM decks WHERE id = $1 FOR UPDATE`, deckID); err != nil {
			return fmt.Errorf("lock deck: %w", err)
		}

		var nextVersion int
		err = tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(version), 0) + 1
			FROM deck_versions
			WHERE deck_id = $1
		`, deckID).Scan(&nextVersion)
		if err != nil {
			return fmt.Errorf("get next version: %w", err)
		}

		var storedManifest, storedFixtures []byte
		err = tx.QueryRow(ctx, `
			INSERT INTO deck_versions (deck_id, version, manifest, fixtures, created_at)
			VALUES ($1, $2, $3, $4, NOW())
			RETURNING deck_id, version, manifest, fixtures, created_at
		`, deckID, nextVersion, manifestJSON, fixturesJSON).Scan(
			&version.DeckID,
			&version.Version,
			&storedManifest,
			&storedFixtures,
			&version.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert deck version: %w", err)
		}

		return decodeVersion(&version, storedManifest, storedFixtures)
	})
	if err != nil {
		return nil, err
	}

	return &version, nil
}

// GetLatest возвращает последнюю версию deck по имени.
func (r *DeckRepo) GetLatest(ctx context.Context, name string) (*domain.DeckVersion, error) {
	query := `
		SELECT v.deck_id, v.version, v.manifest, v.fixtures, v.created_at
		FROM deck_versions v
		JOIN decks d ON d.id = v.deck_id
		WHERE d.name = $1
		ORDER BY v.version DESC
		LIMIT 1
	`
	return r.getVersion(ctx, query, name)
}

// GetVersion возвращает конкретную версию deck.
func (r *DeckRepo) GetVersion(ctx context.Context, name string, version int) (*domain.DeckVersion, error) {
	query := `
		SELECT v.deck_id, v.version, v.manifest, v.fixtures, v.created_at
		FROM deck_versions v
		JOIN decks d ON d.id = v.deck_id
		WHERE d.name = $1 AND v.version = $2
	`
	return r.getVersion(ctx, query, name, version)
}

func (r *DeckRepo) getVersion(ctx context.Context, query string, args ...any) (*domain.DeckVersion, error) {
	var dv domain.DeckVersion
	var manifestJSON, fixturesJSON []byte
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&dv.DeckID,
		&dv.Version,
		&manifestJSON,
		&fixturesJSON,
		&dv.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get deck version: %w", err)
	}

	if err := decodeVersion(&dv, manifestJSON, fixturesJSON); err != nil {
		return nil, err
	}
	return &dv, nil
}

// List возвращает все decks с номером последней версии.
func (r *DeckRepo) List(ctx context.Context) ([]domain.StoredDeck, error) {
	query := `
		SELECT d.id, d.name, d.created_at, COALESCE(MAX(v.version), 0)
		FROM decks d
		LEFT JOIN deck_versions v ON v.deck_id = d.id
		GROUP BY d.id, d.name, d.created_at
		ORDER BY d.name
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	defer rows.Close()

	var decks []domain.StoredDeck
	for rows.Next() {
		var d domain.StoredDeck
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt, &d.LatestVersion); err != nil {
			return nil, fmt.Errorf("scan deck: %w", err)
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// Delete удаляет deck (каскадно удалит versions).
func (r *DeckRepo) Delete(ctx context.Context, name string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM decks WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete deck: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// encodeVersion сериализует manifest и fixtures для JSONB колонок.
func encodeVersion(m *domain.Manifest, fixtures domain.Fixtures) ([]byte, []byte, error) {
	if m == nil {
		return nil, nil, fmt.Errorf("%w: manifest is nil", ErrInvalidManifest)
	}
	if fixtures == nil {
		fixtures = make(domain.Fixtures)
	}

	manifestJSON, err := json.Marshal(m)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal manifest: %w", err)
	}
	fixturesJSON, err := json.Marshal(fixtures)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal fixtures: %w", err)
	}
	return manifestJSON, fixturesJSON, nil
}

// decodeVersion десериализует JSONB колонки и валидирует manifest.
func decodeVersion(dv *domain.DeckVersion, manifestJSON, fixturesJSON []byte) error {
	m, err := engine.ParseManifest(manifestJSON, engine.FormatJSON)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	dv.Manifest = *m

	fixtures, err := engine.ParseFixtures(fixturesJSON, engine.FormatJSON)
	if err != nil {
		return fmt.Errorf("unmarshal fixtures: %w", err)
	}
	dv.Fixtures = fixtures
	return nil
}
