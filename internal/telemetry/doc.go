// Package telemetry обеспечивает наблюдаемость deck.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики runtime и API
//
// deck-api экспортирует метрики на /metrics endpoint.
package telemetry
