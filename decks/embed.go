// Package decks содержит встроенные deck'и.
//
// api2pdf — headless-chrome-pdf-generator: конвертация URL и HTML в PDF
// и объединение PDF через api2pdf.com. Используется, когда путь к manifest
// не задан.
package decks

import (
	_ "embed"
	"fmt"

	"github.com/shaiso/Deck/internal/domain"
	"github.com/shaiso/Deck/internal/engine"
)

var (
	//go:embed api2pdf/deck.json
	api2pdfManifest []byte

	//go:embed api2pdf/api-mocks.json
	api2pdfFixtures []byte
)

// API2PDF разбирает встроенный deck api2pdf.
func API2PDF() (*domain.Manifest, domain.Fixtures, error) {
	m, err := engine.ParseManifest(api2pdfManifest, engine.FormatJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("api2pdf manifest: %w", err)
	}

	fixtures, err := engine.ParseFixtures(api2pdfFixtures, engine.FormatJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("api2pdf fixtures: %w", err)
	}

	return m, fixtures, nil
}
