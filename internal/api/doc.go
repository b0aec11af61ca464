// Package api содержит HTTP API сервер deck.
//
// Структура:
//   - handler.go       — Handler с DI (runtime, каталог шагов, хранилище, logger)
//   - routes.go        — регистрация маршрутов
//   - middleware.go    — middleware (logging, recovery, metrics)
//   - response.go      — унифицированные JSON-ответы и обработка ошибок
//   - dto.go           — Data Transfer Objects (request/response)
//   - step_handler.go  — обработчики для /steps
//   - state_handler.go — текущее состояние и websocket-поток переходов
//   - deck_handler.go  — сохранённые в Postgres decks
//
// API — тонкий транспорт над deck.Runtime: один runtime на процесс,
// все клиенты видят одно и то же состояние.
package api
