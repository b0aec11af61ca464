package source

import (
	"errors"
	"fmt"

	"github.com/shaiso/Deck/internal/domain"
	"github.com/shaiso/Deck/internal/engine"
)

// Ошибки источников.
var (
	// ErrMockNotFound — для mock-ключа нет fixture.
	ErrMockNotFound = errors.New("mock fixture not found")

	// ErrTransport — запрос не дошёл или ответ не прочитан.
	ErrTransport = errors.New("transport failed")

	// ErrRemoteRejection — удалённый API отказал.
	ErrRemoteRejection = errors.New("remote rejection")

	// ErrMissingCredential — нет ключа API.
	ErrMissingCredential = errors.New("missing credential")

	// ErrInternal — непредвиденная ошибка (в т.ч. panic).
	ErrInternal = errors.New("internal error")

	// ErrUnknownMode — неизвестный режим источника.
	ErrUnknownMode = errors.New("unknown source mode")
)

// MissingCredentialMessage — сообщение для запуска без ключа API.
const MissingCredentialMessage = "missing or invalid API key"

// Failure — нормализованная ошибка источника.
type Failure struct {
	Kind    domain.ErrorKind
	Status  int
	Body    domain.Body
	Message string
	Err     error
}

// Error реализует интерфейс error.
func (f *Failure) Error() string {
	if f.Err != nil && f.Message == "" {
		return f.Err.Error()
	}
	return f.Message
}

// Unwrap возвращает базовую ошибку.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Info конвертирует Failure в domain.ErrorInfo.
func (f *Failure) Info() *domain.ErrorInfo {
	msg := f.Message
	if msg == "" {
		msg = string(f.Kind)
	}
	return &domain.ErrorInfo{
		Kind:    f.Kind,
		Status:  f.Status,
		Body:    f.Body,
		Message: msg,
	}
}

// MissingCredential возвращает Failure для запуска без ключа API.
func MissingCredential() *Failure {
	return &Failure{
		Kind:    domain.ErrorKindMissingCredential,
		Status:  401,
		Body:    domain.RejectionBody(MissingCredentialMessage),
		Message: MissingCredentialMessage,
		Err:     ErrMissingCredential,
	}
}

// AsFailure приводит любую ошибку к *Failure.
//
// Ошибки конфигурации (engine.ErrConfiguration, ошибки шаблонов) получают
// категорию configuration, всё неизвестное — internal.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}

	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	switch {
	case errors.Is(err, engine.ErrConfiguration), errors.Is(err, engine.ErrTemplateRender):
		return &Failure{Kind: domain.ErrorKindConfiguration, Message: err.Error(), Err: err}
	case errors.Is(err, ErrMockNotFound):
		return &Failure{Kind: domain.ErrorKindMockNotFound, Message: err.Error(), Err: err}
	case errors.Is(err, ErrTransport):
		return &Failure{Kind: domain.ErrorKindTransport, Message: err.Error(), Err: err}
	case errors.Is(err, ErrMissingCredential):
		return MissingCredential()
	default:
		return &Failure{Kind: domain.ErrorKindInternal, Message: err.Error(), Err: fmt.Errorf("%w: %v", ErrInternal, err)}
	}
}

// rejection строит Failure по телу отказа удалённого API.
func rejection(status int, body domain.Body, fallback string) *Failure {
	msg := body.Reason()
	if msg == "" {
		msg = fallback
	}
	return &Failure{
		Kind:    domain.ErrorKindRemoteRejection,
		Status:  status,
		Body:    body,
		Message: msg,
		Err:     ErrRemoteRejection,
	}
}
