package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewContext(t *testing.T) {
	// С nil inputs
	ctx := NewContext(nil)
	if ctx.Inputs == nil {
		t.Error("Inputs should not be nil")
	}
	if ctx.Env == nil {
		t.Error("Env should not be nil")
	}

	// С inputs
	ctx = NewContext(map[string]any{"key": "value"})
	if ctx.Inputs["key"] != "value" {
		t.Error("Inputs should contain provided values")
	}
}

func TestRender(t *testing.T) {
	ctx := NewContext(map[string]any{
		"url":   "https://www.google.com/?q=a b",
		"name":  "report",
		"empty": "",
	})
	ctx.SetEnv("DECK_API_BASE", "https://v2018.api2pdf.com")

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"no template", "https://v2018.api2pdf.com/chrome/url", "https://v2018.api2pdf.com/chrome/url"},
		{"query escaping", "https://x/convert?url={{ query .Inputs.url }}", "https://x/convert?url=https%3A%2F%2Fwww.google.com%2F%3Fq%3Da+b"},
		{"path escaping", "https://x/files/{{ path .Inputs.name }}.pdf", "https://x/files/report.pdf"},
		{"env", "{{ .Env.DECK_API_BASE }}/chrome/url", "https://v2018.api2pdf.com/chrome/url"},
		{"default", `{{ default "doc" .Inputs.empty }}`, "doc"},
		{"upper", "{{ upper .Inputs.name }}", "REPORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_Errors(t *testing.T) {
	ctx := NewContext(nil)

	_, err := Render("{{ .Inputs.url ", ctx)
	if !errors.Is(err, ErrTemplateParse) {
		t.Errorf("expected ErrTemplateParse, got %v", err)
	}

	// Отсутствующий input — ошибка, а не "<no value>" в URL
	_, err = Render("https://x?url={{ .Inputs.url }}", ctx)
	if !errors.Is(err, ErrTemplateRender) {
		t.Errorf("expected ErrTemplateRender, got %v", err)
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("https://x/{{ path .Inputs.id }}?url={{ query .Inputs.url }}&again={{ .Inputs.url }}")
	want := []string{"id", "url"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected placeholders (-want +got):\n%s", diff)
	}

	if len(Placeholders("https://x/static")) != 0 {
		t.Error("static url should have no placeholders")
	}
}
