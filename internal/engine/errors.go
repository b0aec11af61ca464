package engine

import (
	"errors"
	"fmt"
)

// ErrConfiguration — базовая ошибка конфигурации deck.
// Все ошибки manifest и реестра оборачивают её.
var ErrConfiguration = errors.New("configuration error")

// Ошибки валидации Manifest.
var (
	// ErrEmptySteps — manifest не содержит шагов.
	ErrEmptySteps = fmt.Errorf("%w: manifest has no steps", ErrConfiguration)

	// ErrEmptyStepID — шаг не имеет ID.
	ErrEmptyStepID = fmt.Errorf("%w: step has empty ID", ErrConfiguration)

	// ErrDuplicateStepID — несколько шагов с одинаковым ID.
	ErrDuplicateStepID = fmt.Errorf("%w: duplicate step ID", ErrConfiguration)

	// ErrMissingEndpoint — шаг ссылается на несуществующий endpoint.
	ErrMissingEndpoint = fmt.Errorf("%w: step references unknown endpoint", ErrConfiguration)

	// ErrInvalidMethod — неподдерживаемый HTTP-метод.
	ErrInvalidMethod = fmt.Errorf("%w: unsupported method", ErrConfiguration)

	// ErrInvalidAuthPlacement — неизвестное расположение credential.
	ErrInvalidAuthPlacement = fmt.Errorf("%w: unknown auth placement", ErrConfiguration)

	// ErrBodyInputMethod — bodyInput задан для метода без тела.
	ErrBodyInputMethod = fmt.Errorf("%w: bodyInput requires POST", ErrConfiguration)

	// ErrEmptyURL — endpoint без URL.
	ErrEmptyURL = fmt.Errorf("%w: endpoint has empty url", ErrConfiguration)

	// ErrUnknownFormat — неизвестный формат файла.
	ErrUnknownFormat = fmt.Errorf("%w: unknown manifest format", ErrConfiguration)
)

// Ошибки разрешения шагов.
var (
	// ErrStepNotFound — шаг не найден в manifest.
	ErrStepNotFound = fmt.Errorf("%w: step not found", ErrConfiguration)

	// ErrEndpointNotFound — endpoint шага не найден.
	ErrEndpointNotFound = fmt.Errorf("%w: endpoint not found", ErrConfiguration)
)

// Ошибки рендеринга шаблонов.
var (
	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render failed")

	// ErrTemplateParse — ошибка парсинга шаблона.
	ErrTemplateParse = fmt.Errorf("%w: template parse failed", ErrConfiguration)
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	StepID   string // ID шага, где произошла ошибка
	Endpoint string // endpointRef, где произошла ошибка
	Field    string // поле, вызвавшее ошибку
	Message  string // описание ошибки
	Err      error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	switch {
	case e.StepID != "":
		return "step " + e.StepID + ": " + e.Message
	case e.Endpoint != "":
		return "endpoint " + e.Endpoint + ": " + e.Message
	default:
		return e.Message
	}
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт ошибку валидации шага.
func NewValidationError(stepID, field, message string, err error) *ValidationError {
	return &ValidationError{
		StepID:  stepID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// NewEndpointError создаёт ошибку валидации endpoint'а.
func NewEndpointError(ref, field, message string, err error) *ValidationError {
	return &ValidationError{
		Endpoint: ref,
		Field:    field,
		Message:  message,
		Err:      err,
	}
}
