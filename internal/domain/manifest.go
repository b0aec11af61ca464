package domain

import (
	"encoding/json"
	"strings"
)

// Manifest — декларативное описание deck.
//
// Manifest — это "программа" для Deck Runtime: список шагов, которые может
// запускать UI, и набор endpoint'ов, в которые эти шаги разрешаются.
// Загружается один раз и дальше только читается.
type Manifest struct {
	// Name — имя deck (например, "headless-chrome-pdf-generator").
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description — описание назначения deck.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Endpoints — endpoint'ы, ключ — endpointRef.
	Endpoints map[string]EndpointConfig `json:"endpoints" yaml:"endpoints"`

	// Steps — шаги, доступные UI.
	Steps []StepDef `json:"steps" yaml:"steps"`
}

// StepDef — определение шага в manifest.
type StepDef struct {
	// ID — уникальный идентификатор шага в рамках deck.
	ID string `json:"id" yaml:"id"`

	// Title — заголовок карточки шага (для UI, ядром не используется).
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Description — описание шага (для UI).
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Action — действие, которое выполняет шаг.
	Action ActionDef `json:"action" yaml:"action"`

	// UI — произвольные метаданные для UI, ядро их игнорирует.
	UI map[string]any `json:"ui,omitempty" yaml:"ui,omitempty"`
}

// ActionDef — ссылка шага на endpoint.
type ActionDef struct {
	// EndpointRef — ключ endpoint'а в Manifest.Endpoints.
	EndpointRef string `json:"endpointRef" yaml:"endpointRef"`
}

// Method — HTTP-метод endpoint'а.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// IsValid возвращает true для поддерживаемых методов.
func (m Method) IsValid() bool {
	return m == MethodGet || m == MethodPost
}

// AuthPlacement — куда подставляется credential вызывающей стороны.
type AuthPlacement string

const (
	// AuthHeader — credential передаётся в заголовке (по умолчанию для POST).
	AuthHeader AuthPlacement = "header"

	// AuthQuery — credential передаётся query-параметром (по умолчанию для GET).
	AuthQuery AuthPlacement = "query"

	// AuthNone — endpoint не требует credential.
	AuthNone AuthPlacement = "none"

	// AuthQueryParam — синоним AuthQuery. Normalize приводит его к AuthQuery.
	AuthQueryParam AuthPlacement = "queryParam"
)

// IsValid возвращает true для известных значений (пустое значение допустимо).
func (p AuthPlacement) IsValid() bool {
	switch p {
	case "", AuthHeader, AuthQuery, AuthQueryParam, AuthNone:
		return true
	default:
		return false
	}
}

// Имена параметров авторизации по умолчанию (соглашение api2pdf).
const (
	DefaultAuthHeader = "Authorization"
	DefaultAuthQuery  = "apikey"
)

// AuthConfig — расположение credential в запросе.
type AuthConfig struct {
	Placement AuthPlacement `json:"placement,omitempty" yaml:"placement,omitempty"`

	// Name — имя заголовка или query-параметра.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// EndpointConfig — конфигурация конкретной удалённой операции.
//
// Неизменяема после загрузки. Значения по умолчанию проставляет Normalize.
type EndpointConfig struct {
	// Ref — ключ, под которым endpoint объявлен в manifest.
	Ref string `json:"ref,omitempty" yaml:"ref,omitempty"`

	// Method — GET или POST.
	Method Method `json:"method" yaml:"method"`

	// URL — базовый URL, может содержать шаблоны {{ .Inputs.name }}.
	URL string `json:"url" yaml:"url"`

	// Auth — где передавать credential.
	Auth AuthConfig `json:"auth,omitempty" yaml:"auth,omitempty"`

	// BodyInput — имя input'а, значение которого целиком становится телом
	// POST-запроса. Пусто — телом служит объект из всех параметров.
	BodyInput string `json:"bodyInput,omitempty" yaml:"bodyInput,omitempty"`

	// MockKey — ключ fixture для mock-режима. По умолчанию совпадает с Ref.
	MockKey string `json:"mockKey,omitempty" yaml:"mockKey,omitempty"`

	// TimeoutSec — таймаут транспорта для этого endpoint'а. 0 — без таймаута.
	TimeoutSec int `json:"timeout_sec,omitempty" yaml:"timeout_sec,omitempty"`
}

// Normalize возвращает копию конфигурации с проставленными значениями по умолчанию.
func (e EndpointConfig) Normalize(ref string) EndpointConfig {
	if e.Ref == "" {
		e.Ref = ref
	}
	e.Method = Method(strings.ToUpper(string(e.Method)))
	if e.Method == "" {
		e.Method = MethodGet
	}

	if e.Auth.Placement == AuthQueryParam {
		e.Auth.Placement = AuthQuery
	}
	if e.Auth.Placement == "" {
		if e.Method == MethodPost {
			e.Auth.Placement = AuthHeader
		} else {
			e.Auth.Placement = AuthQuery
		}
	}
	if e.Auth.Name == "" {
		switch e.Auth.Placement {
		case AuthHeader:
			e.Auth.Name = DefaultAuthHeader
		case AuthQuery:
			e.Auth.Name = DefaultAuthQuery
		}
	}

	if e.MockKey == "" {
		e.MockKey = e.Ref
	}
	return e
}

// RequiresCredential сообщает, нужен ли endpoint'у credential.
func (e EndpointConfig) RequiresCredential() bool {
	return e.Auth.Placement != AuthNone
}

// Fixture — заготовленный ответ для mock-режима.
//
// Формат совпадает с api-mocks.json: { "<key>": { "success": { ...body... } } }.
type Fixture struct {
	// Success — тело ответа, такое же как body живого успешного ответа.
	Success json.RawMessage `json:"success" yaml:"-"`

	// Status — HTTP-статус, который эмулирует fixture. По умолчанию 200.
	Status int `json:"status,omitempty" yaml:"status,omitempty"`
}

// Fixtures — набор fixtures по mock-ключу.
type Fixtures map[string]Fixture
