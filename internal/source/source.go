package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shaiso/Deck/internal/domain"
)

// Source — источник ответа для endpoint'а.
//
// Resolve возвращает ответ или *Failure. Реализации не паникуют намеренно,
// но runtime всё равно перехватывает panic.
type Source interface {
	Resolve(ctx context.Context, cfg domain.EndpointConfig, inputs domain.Inputs) (*domain.Response, error)
}

// Mode — режим источника.
type Mode string

const (
	// ModeMock — ответы из fixtures.
	ModeMock Mode = "mock"

	// ModeLive — реальные HTTP-запросы.
	ModeLive Mode = "live"
)

// ParseMode разбирает строку режима.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeMock, "":
		return ModeMock, nil
	case ModeLive:
		return ModeLive, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Options — параметры создания источника.
type Options struct {
	// Fixtures — fixtures для mock-режима.
	Fixtures domain.Fixtures

	// MockLatency — искусственная задержка mock-ответа.
	MockLatency time.Duration

	// HTTPTimeout — общий таймаут HTTP-клиента. 0 — без таймаута.
	HTTPTimeout time.Duration

	// Env — переменные, доступные в URL-шаблонах как .Env.
	Env map[string]string
}

// New создаёт источник для указанного режима.
func New(mode Mode, opts Options) (Source, error) {
	switch mode {
	case ModeMock:
		return NewMockSource(NewMockResolver(opts.Fixtures), opts.MockLatency), nil
	case ModeLive:
		return NewHTTPSource(HTTPOptions{Timeout: opts.HTTPTimeout, Env: opts.Env}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
