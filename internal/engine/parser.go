package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/Deck/internal/domain"
)

// Format — формат файла manifest/fixtures.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath определяет формат по расширению файла.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// LoadManifest читает, нормализует и валидирует manifest из файла.
func LoadManifest(path string) (*domain.Manifest, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return ParseManifest(data, format)
}

// ParseManifest парсит manifest, проставляет значения по умолчанию и валидирует его.
func ParseManifest(data []byte, format Format) (*domain.Manifest, error) {
	var m domain.Manifest

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: decode manifest: %v", ErrConfiguration, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: decode manifest: %v", ErrConfiguration, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	Normalize(&m)

	if err := Validate(&m); err != nil {
		return nil, err
	}

	return &m, nil
}

// Normalize проставляет значения по умолчанию всем endpoint'ам.
func Normalize(m *domain.Manifest) {
	for ref, ep := range m.Endpoints {
		m.Endpoints[ref] = ep.Normalize(ref)
	}
}

// Validate выполняет полную валидацию Manifest.
//
// Проверяет:
// - Наличие шагов
// - Уникальность и непустоту ID шагов
// - Что каждый endpointRef существует
// - Метод, URL, шаблон URL и auth каждого endpoint'а
//
// Возвращает все найденные ошибки, а не только первую.
func Validate(m *domain.Manifest) error {
	if m == nil || len(m.Steps) == 0 {
		return ErrEmptySteps
	}

	var result *multierror.Error

	for ref, ep := range m.Endpoints {
		for _, err := range validateEndpoint(ref, ep) {
			result = multierror.Append(result, err)
		}
	}

	stepIDs := make(map[string]bool, len(m.Steps))
	for i := range m.Steps {
		if err := validateStep(&m.Steps[i], stepIDs, m.Endpoints); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// validateStep валидирует один шаг.
// stepIDs — уже встреченные ID шагов (для проверки уникальности).
func validateStep(step *domain.StepDef, stepIDs map[string]bool, endpoints map[string]domain.EndpointConfig) error {
	if step.ID == "" {
		return NewValidationError("", "id", "step has empty ID", ErrEmptyStepID)
	}

	if stepIDs[step.ID] {
		return NewValidationError(step.ID, "id",
			fmt.Sprintf("duplicate step ID: %s", step.ID), ErrDuplicateStepID)
	}
	stepIDs[step.ID] = true

	ref := step.Action.EndpointRef
	if _, ok := endpoints[ref]; !ok || ref == "" {
		return NewValidationError(step.ID, "action.endpointRef",
			fmt.Sprintf("references unknown endpoint: %q", ref), ErrMissingEndpoint)
	}

	return nil
}

// validateEndpoint возвращает все ошибки конфигурации endpoint'а.
func validateEndpoint(ref string, ep domain.EndpointConfig) []error {
	var errs []error

	if !ep.Method.IsValid() {
		errs = append(errs, NewEndpointError(ref, "method",
			fmt.Sprintf("unsupported method: %s", ep.Method), ErrInvalidMethod))
	}

	if strings.TrimSpace(ep.URL) == "" {
		errs = append(errs, NewEndpointError(ref, "url", "url is required", ErrEmptyURL))
	} else if err := ValidateTemplate(ep.URL); err != nil {
		errs = append(errs, NewEndpointError(ref, "url", err.Error(), ErrTemplateParse))
	}

	if !ep.Auth.Placement.IsValid() {
		errs = append(errs, NewEndpointError(ref, "auth.placement",
			fmt.Sprintf("unknown auth placement: %s", ep.Auth.Placement), ErrInvalidAuthPlacement))
	}

	if ep.BodyInput != "" && ep.Method != domain.MethodPost {
		errs = append(errs, NewEndpointError(ref, "bodyInput",
			fmt.Sprintf("bodyInput %q is only allowed for POST", ep.BodyInput), ErrBodyInputMethod))
	}

	return errs
}

// ValidateTemplate проверяет, что строка является корректным шаблоном.
func ValidateTemplate(tmpl string) error {
	if !strings.Contains(tmpl, "{{") {
		return nil
	}
	if _, err := template.New("").Funcs(templateFuncs).Parse(tmpl); err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}
	return nil
}

// yamlFixture — fixture в YAML: тело приходит как дерево, а не как JSON.
type yamlFixture struct {
	Success any `yaml:"success"`
	Status  int `yaml:"status"`
}

// LoadFixtures читает fixtures из файла.
func LoadFixtures(path string) (domain.Fixtures, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}

	return ParseFixtures(data, format)
}

// ParseFixtures парсит набор fixtures (формат api-mocks.json).
func ParseFixtures(data []byte, format Format) (domain.Fixtures, error) {
	switch format {
	case FormatJSON:
		var fixtures domain.Fixtures
		if err := json.Unmarshal(data, &fixtures); err != nil {
			return nil, fmt.Errorf("%w: decode fixtures: %v", ErrConfiguration, err)
		}
		if fixtures == nil {
			fixtures = make(domain.Fixtures)
		}
		return fixtures, nil

	case FormatYAML:
		var raw map[string]yamlFixture
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: decode fixtures: %v", ErrConfiguration, err)
		}

		fixtures := make(domain.Fixtures, len(raw))
		for key, f := range raw {
			body, err := json.Marshal(f.Success)
			if err != nil {
				return nil, fmt.Errorf("%w: fixture %s: %v", ErrConfiguration, key, err)
			}
			fixtures[key] = domain.Fixture{Success: body, Status: f.Status}
		}
		return fixtures, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}
