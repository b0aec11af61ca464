// Package mq публикует переходы состояния deck в RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchange и очередей подписчиков
//   - publisher.go  — публикация событий
//   - consumer.go   — потребление событий (deck events)
//   - bridge.go     — подписчик runtime, пересылающий переходы в publisher
//
// Типы сообщений:
//   - deck.state.changed — зафиксирован новый State
//
// Exchanges:
//   - deck.state (fanout) — каждый подписчик получает свою эксклюзивную очередь
package mq
