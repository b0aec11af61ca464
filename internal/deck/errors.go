package deck

import (
	"fmt"

	"github.com/shaiso/Deck/internal/engine"
)

// Ошибки конфигурации runtime.
var (
	// ErrEmptyStepID — запуск без ID шага.
	ErrEmptyStepID = fmt.Errorf("%w: step id is required", engine.ErrConfiguration)

	// ErrNoRegistry — runtime создан без реестра.
	ErrNoRegistry = fmt.Errorf("%w: endpoint registry is not configured", engine.ErrConfiguration)

	// ErrNoSource — runtime создан без источника ответов.
	ErrNoSource = fmt.Errorf("%w: response source is not configured", engine.ErrConfiguration)
)
