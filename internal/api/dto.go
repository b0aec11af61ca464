package api

import (
	"time"

	"github.com/shaiso/Deck/internal/domain"
)

// ============================================================================
// Step DTOs
// ============================================================================

// StepResponse — ответ с данными шага.
type StepResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Endpoint    *EndpointResponse `json:"endpoint,omitempty"`
	UI          map[string]any    `json:"ui,omitempty"`
}

// EndpointResponse — публичное описание endpoint'а шага.
type EndpointResponse struct {
	Ref                string               `json:"ref"`
	Method             domain.Method        `json:"method"`
	URL                string               `json:"url"`
	AuthPlacement      domain.AuthPlacement `json:"auth_placement"`
	RequiresCredential bool                 `json:"requires_credential"`
	BodyInput          string               `json:"body_input,omitempty"`
	TimeoutSec         int                  `json:"timeout_sec,omitempty"`
}

// StepFromDomain конвертирует domain.StepDef в StepResponse.
func StepFromDomain(step domain.StepDef, ep *domain.EndpointConfig) StepResponse {
	resp := StepResponse{
		ID:          step.ID,
		Title:       step.Title,
		Description: step.Description,
		UI:          step.UI,
	}
	if ep != nil {
		resp.Endpoint = &EndpointResponse{
			Ref:                ep.Ref,
			Method:             ep.Method,
			URL:                ep.URL,
			AuthPlacement:      ep.Auth.Placement,
			RequiresCredential: ep.RequiresCredential(),
			BodyInput:          ep.BodyInput,
			TimeoutSec:         ep.TimeoutSec,
		}
	}
	return resp
}

// RunStepRequest — запрос на запуск шага.
type RunStepRequest struct {
	Inputs domain.Inputs `json:"inputs"`

	// Wait — дождаться терминального состояния этого запуска.
	Wait bool `json:"wait,omitempty"`
}

// RunAcceptedResponse — ответ на асинхронный запуск.
type RunAcceptedResponse struct {
	Seq   uint64       `json:"seq"`
	State domain.State `json:"state"`
}

// RunResultResponse — ответ на синхронный запуск.
type RunResultResponse struct {
	Seq   uint64       `json:"seq"`
	State domain.State `json:"state"`

	// Stale — результат этого запуска был перекрыт более новым.
	Stale bool `json:"stale"`
}

// ============================================================================
// Deck DTOs
// ============================================================================

// DeckResponse — ответ с данными сохранённого deck.
type DeckResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	LatestVersion int       `json:"latest_version"`
	CreatedAt     time.Time `json:"created_at"`
}

// DeckFromDomain конвертирует domain.StoredDeck в DeckResponse.
func DeckFromDomain(d domain.StoredDeck) DeckResponse {
	return DeckResponse{
		ID:            d.ID.String(),
		Name:          d.Name,
		LatestVersion: d.LatestVersion,
		CreatedAt:     d.CreatedAt,
	}
}

// DeckVersionResponse — ответ с версией deck.
type DeckVersionResponse struct {
	Name      string           `json:"name"`
	Version   int              `json:"version"`
	Manifest  domain.Manifest  `json:"manifest"`
	Fixtures  int              `json:"fixtures"`
	CreatedAt time.Time        `json:"created_at"`
}

// DeckVersionFromDomain конвертирует domain.DeckVersion в DeckVersionResponse.
func DeckVersionFromDomain(name string, v *domain.DeckVersion) DeckVersionResponse {
	return DeckVersionResponse{
		Name:      name,
		Version:   v.Version,
		Manifest:  v.Manifest,
		Fixtures:  len(v.Fixtures),
		CreatedAt: v.CreatedAt,
	}
}
