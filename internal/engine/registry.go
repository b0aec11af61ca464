package engine

import (
	"fmt"
	"sort"

	"github.com/shaiso/Deck/internal/domain"
)

// Registry — Endpoint Registry: отображение stepID → EndpointConfig.
//
// Строится один раз из валидного Manifest и дальше только читается,
// поэтому блокировки не нужны. Resolve — чистая функция.
type Registry struct {
	manifest  *domain.Manifest
	steps     map[string]domain.StepDef
	resolved  map[string]domain.EndpointConfig
	endpoints map[string]domain.EndpointConfig
	order     []string
}

// NewRegistry нормализует и валидирует manifest и заранее разрешает все шаги.
func NewRegistry(m *domain.Manifest) (*Registry, error) {
	if m == nil {
		return nil, ErrEmptySteps
	}

	Normalize(m)
	if err := Validate(m); err != nil {
		return nil, err
	}

	r := &Registry{
		manifest:  m,
		steps:     make(map[string]domain.StepDef, len(m.Steps)),
		resolved:  make(map[string]domain.EndpointConfig, len(m.Steps)),
		endpoints: make(map[string]domain.EndpointConfig, len(m.Endpoints)),
		order:     make([]string, 0, len(m.Steps)),
	}

	for ref, ep := range m.Endpoints {
		r.endpoints[ref] = ep
	}

	for _, step := range m.Steps {
		r.steps[step.ID] = step
		r.order = append(r.order, step.ID)
		r.resolved[step.ID] = r.endpoints[step.Action.EndpointRef]
	}

	return r, nil
}

// Resolve возвращает конфигурацию endpoint'а для шага.
//
// Возвращает ErrStepNotFound, если шага нет в manifest,
// и ErrEndpointNotFound, если endpoint шага не объявлен.
func (r *Registry) Resolve(stepID string) (domain.EndpointConfig, error) {
	step, ok := r.steps[stepID]
	if !ok {
		return domain.EndpointConfig{}, fmt.Errorf("%w: %q", ErrStepNotFound, stepID)
	}

	ep, ok := r.resolved[stepID]
	if !ok {
		return domain.EndpointConfig{}, fmt.Errorf("%w: step %q references %q",
			ErrEndpointNotFound, stepID, step.Action.EndpointRef)
	}

	return ep, nil
}

// Step возвращает определение шага.
func (r *Registry) Step(stepID string) (domain.StepDef, bool) {
	step, ok := r.steps[stepID]
	return step, ok
}

// Steps возвращает шаги в порядке manifest.
func (r *Registry) Steps() []domain.StepDef {
	steps := make([]domain.StepDef, 0, len(r.order))
	for _, id := range r.order {
		steps = append(steps, r.steps[id])
	}
	return steps
}

// Endpoints возвращает ключи endpoint'ов в отсортированном порядке.
func (r *Registry) Endpoints() []string {
	refs := make([]string, 0, len(r.endpoints))
	for ref := range r.endpoints {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Has проверяет, объявлен ли шаг.
func (r *Registry) Has(stepID string) bool {
	_, ok := r.steps[stepID]
	return ok
}

// Count возвращает количество шагов.
func (r *Registry) Count() int {
	return len(r.steps)
}

// Name возвращает имя deck.
func (r *Registry) Name() string {
	return r.manifest.Name
}
