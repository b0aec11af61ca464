package domain

import "time"

// Phase — фаза выполнения шага.
//
// Жизненный цикл:
//
//	IDLE → LOADING → SUCCEEDED
//	               ↘ FAILED
//	(любая фаза) → LOADING при следующем запуске шага
//
// Финальной фазы нет: каждый запуск начинает цикл заново с LOADING.
type Phase string

const (
	// PhaseIdle — шаг ещё ни разу не запускался.
	PhaseIdle Phase = "IDLE"

	// PhaseLoading — шаг выполняется.
	PhaseLoading Phase = "LOADING"

	// PhaseSucceeded — шаг завершился успешно, Response заполнен.
	PhaseSucceeded Phase = "SUCCEEDED"

	// PhaseFailed — шаг завершился ошибкой, Error заполнен.
	PhaseFailed Phase = "FAILED"
)

// IsTerminal возвращает true для SUCCEEDED и FAILED.
func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseSucceeded, PhaseFailed:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление Phase.
func (p Phase) String() string {
	return string(p)
}

// ErrorKind — категория ошибки выполнения шага.
type ErrorKind string

const (
	ErrorKindConfiguration     ErrorKind = "configuration"
	ErrorKindMissingCredential ErrorKind = "missing_credential"
	ErrorKindMockNotFound      ErrorKind = "mock_not_found"
	ErrorKindTransport         ErrorKind = "transport"
	ErrorKindRemoteRejection   ErrorKind = "remote_rejection"
	ErrorKindInternal          ErrorKind = "internal"
)

// Response — нормализованный успешный результат.
type Response struct {
	Status  int               `json:"status"`
	Body    Body              `json:"body"`
	Headers map[string]string `json:"headers,omitempty"`
}

// ErrorInfo — нормализованная ошибка.
//
// Message всегда непустой: UI не должен показывать пустую ошибку.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Status  int       `json:"status,omitempty"`
	Body    Body      `json:"body"`
	Message string    `json:"message"`
}

// State — состояние выполнения, общее для всех подписчиков.
//
// State заменяется целиком при каждом переходе, частичных обновлений нет.
// Вне IDLE/LOADING заполнено ровно одно из Response/Error.
type State struct {
	Phase Phase `json:"phase"`

	// Seq — номер запуска, выдавший это состояние. 0 для IDLE.
	Seq uint64 `json:"seq"`

	// InvocationID — идентификатор запуска для логов и событий.
	InvocationID string `json:"invocation_id,omitempty"`

	StepID   string     `json:"step_id,omitempty"`
	Response *Response  `json:"response"`
	Error    *ErrorInfo `json:"error"`

	UpdatedAt time.Time `json:"updated_at"`
}

// IdleState возвращает начальное состояние.
func IdleState() State {
	return State{Phase: PhaseIdle, UpdatedAt: time.Now()}
}

// Loading возвращает true, пока шаг выполняется.
// Совместимость с представлением {loading, error, response}.
func (s State) Loading() bool {
	return s.Phase == PhaseLoading
}
