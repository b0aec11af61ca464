package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shaiso/Deck/internal/domain"
)

// MockResolver ищет fixture по mock-ключу endpoint'а.
type MockResolver struct {
	fixtures domain.Fixtures
}

// NewMockResolver создаёт резолвер поверх набора fixtures.
func NewMockResolver(fixtures domain.Fixtures) *MockResolver {
	if fixtures == nil {
		fixtures = make(domain.Fixtures)
	}
	return &MockResolver{fixtures: fixtures}
}

// ResolveMock возвращает тело fixture и эмулируемый статус.
//
// Fixture без тела (или с null) считается отсутствующей.
func (r *MockResolver) ResolveMock(key string) (domain.Body, int, error) {
	f, ok := r.fixtures[key]
	if !ok || isNull(f.Success) {
		return domain.Body{}, 0, fmt.Errorf("%w: %q", ErrMockNotFound, key)
	}

	status := f.Status
	if status == 0 {
		status = http.StatusOK
	}
	return domain.DecodeBody(f.Success), status, nil
}

// Len возвращает количество fixtures.
func (r *MockResolver) Len() int {
	return len(r.fixtures)
}

func isNull(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// MockSource — Source поверх fixtures.
type MockSource struct {
	resolver *MockResolver
	latency  time.Duration
}

// NewMockSource создаёт mock-источник.
// latency — искусственная задержка, 0 — без задержки.
func NewMockSource(resolver *MockResolver, latency time.Duration) *MockSource {
	return &MockSource{resolver: resolver, latency: latency}
}

// Resolve отдаёт fixture для cfg.MockKey.
func (s *MockSource) Resolve(ctx context.Context, cfg domain.EndpointConfig, _ domain.Inputs) (*domain.Response, error) {
	key := cfg.MockKey
	if key == "" {
		key = cfg.Ref
	}

	body, status, err := s.resolver.ResolveMock(key)
	if err != nil {
		return nil, &Failure{Kind: domain.ErrorKindMockNotFound, Message: err.Error(), Err: err}
	}

	if err := s.wait(ctx); err != nil {
		return nil, &Failure{
			Kind:    domain.ErrorKindTransport,
			Message: err.Error(),
			Err:     fmt.Errorf("%w: %v", ErrTransport, err),
		}
	}

	// fixture с success=false ведёт себя как отказ живого API
	if ok, known := body.Succeeded(); known && !ok {
		return nil, rejection(status, body, fmt.Sprintf("HTTP %d", status))
	}

	return &domain.Response{Status: status, Body: body}, nil
}

// wait выдерживает задержку с учётом отмены контекста.
func (s *MockSource) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return nil
	}

	timer := time.NewTimer(s.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
