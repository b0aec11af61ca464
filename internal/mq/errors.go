package mq

import "errors"

// Ошибки mq.
var (
	// ErrNoChannel — канал ещё не открыт или соединение потеряно.
	ErrNoChannel = errors.New("no channel available")

	// ErrBridgeOverflow — буфер StateBridge переполнен, событие отброшено.
	ErrBridgeOverflow = errors.New("state bridge buffer overflow")
)
