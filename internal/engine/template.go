package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"text/template"
)

// Context — контекст для рендеринга URL-шаблонов endpoint'ов.
//
// Используется в Go templates для доступа к данным:
//   - {{ .Inputs.param_name }}
//   - {{ .Env.VAR_NAME }}
type Context struct {
	// Inputs — параметры запуска шага (без credential).
	Inputs map[string]any `json:"inputs"`

	// Env — переменные окружения.
	Env map[string]string `json:"env"`
}

// NewContext создаёт новый контекст с входными параметрами.
func NewContext(inputs map[string]any) *Context {
	if inputs == nil {
		inputs = make(map[string]any)
	}
	return &Context{
		Inputs: inputs,
		Env:    make(map[string]string),
	}
}

// SetEnv устанавливает переменную окружения.
func (c *Context) SetEnv(key, value string) {
	c.Env[key] = value
}

// WithOSEnv копирует в контекст переменные окружения с указанным префиксом.
func (c *Context) WithOSEnv(prefix string) *Context {
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(key, prefix) {
			c.Env[key] = value
		}
	}
	return c
}

// templateFuncs — дополнительные функции для шаблонов.
var templateFuncs = template.FuncMap{
	// json — сериализует значение в JSON строку
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return string(b)
	},

	// default — возвращает значение по умолчанию, если первый аргумент пустой
	"default": func(def, val any) any {
		if val == nil {
			return def
		}
		if s, ok := val.(string); ok && s == "" {
			return def
		}
		return val
	},

	// coalesce — возвращает первое непустое значение
	"coalesce": func(values ...any) any {
		for _, v := range values {
			if v != nil {
				if s, ok := v.(string); ok && s == "" {
					continue
				}
				return v
			}
		}
		return nil
	},

	// query — экранирует значение для query string
	"query": func(v any) string {
		if v == nil {
			return ""
		}
		return url.QueryEscape(fmt.Sprint(v))
	},

	// path — экранирует значение для сегмента пути
	"path": func(v any) string {
		if v == nil {
			return ""
		}
		return url.PathEscape(fmt.Sprint(v))
	},

	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	"trim":  strings.TrimSpace,
}

// Render рендерит строковый шаблон с контекстом.
//
// Шаблон может содержать Go template выражения:
//
//	https://api.example.com/convert?url={{ query .Inputs.url }}
//	{{ .Env.DECK_API_BASE }}/chrome/url
func Render(tmpl string, ctx *Context) (string, error) {
	// Проверяем, содержит ли строка шаблонные выражения
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Funcs(templateFuncs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	return buf.String(), nil
}

// Placeholders возвращает имена inputs, на которые ссылается шаблон.
//
// Транспорт не дублирует такие inputs в query string: они уже подставлены в URL.
func Placeholders(tmpl string) []string {
	var names []string
	seen := make(map[string]bool)

	rest := tmpl
	for {
		i := strings.Index(rest, ".Inputs.")
		if i < 0 {
			break
		}
		rest = rest[i+len(".Inputs."):]

		end := 0
		for end < len(rest) && isIdentChar(rest[end]) {
			end++
		}
		name := rest[:end]
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		rest = rest[end:]
	}

	return names
}

func isIdentChar(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
