package domain

import (
	"bytes"
	"encoding/json"
)

// BodyKind — вариант тела ответа.
type BodyKind string

const (
	// BodyPDF — успешный ответ со ссылкой на PDF.
	BodyPDF BodyKind = "pdf"

	// BodyRejection — ответ с success=false и reason.
	BodyRejection BodyKind = "rejection"

	// BodyOpaque — нераспознанный JSON, хранится как есть.
	BodyOpaque BodyKind = "opaque"

	// BodyEmpty — тела нет.
	BodyEmpty BodyKind = "empty"
)

// PDFResult — успешный результат конвертации.
type PDFResult struct {
	Success    bool    `json:"success"`
	PDF        string  `json:"pdf"`
	MbIn       float64 `json:"mbIn,omitempty"`
	MbOut      float64 `json:"mbOut,omitempty"`
	Cost       float64 `json:"cost,omitempty"`
	ResponseID string  `json:"responseId,omitempty"`
}

// Rejection — отказ удалённого API.
type Rejection struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
}

// Body — тело ответа или ошибки.
//
// Tagged union по известным формам ответа API. Raw всегда содержит
// исходный JSON, поэтому неизвестные ответы не теряются.
type Body struct {
	Kind      BodyKind
	PDF       *PDFResult
	Rejection *Rejection
	Raw       json.RawMessage
}

// envelope — минимальная форма для классификации ответа.
type envelope struct {
	Success *bool   `json:"success"`
	PDF     *string `json:"pdf"`
	Reason  *string `json:"reason"`
}

// DecodeBody классифицирует JSON-документ.
// Невалидный JSON превращается в BodyOpaque со строкой в Raw.
func DecodeBody(data []byte) Body {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Body{Kind: BodyEmpty}
	}

	if !json.Valid(data) {
		raw, _ := json.Marshal(string(data))
		return Body{Kind: BodyOpaque, Raw: raw}
	}

	raw := json.RawMessage(append([]byte(nil), data...))

	var p envelope
	if err := json.Unmarshal(data, &p); err != nil || p.Success == nil {
		return Body{Kind: BodyOpaque, Raw: raw}
	}

	if !*p.Success {
		r := &Rejection{}
		if p.Reason != nil {
			r.Reason = *p.Reason
		}
		return Body{Kind: BodyRejection, Rejection: r, Raw: raw}
	}

	if p.PDF != nil {
		var pdf PDFResult
		if err := json.Unmarshal(data, &pdf); err == nil {
			return Body{Kind: BodyPDF, PDF: &pdf, Raw: raw}
		}
	}

	return Body{Kind: BodyOpaque, Raw: raw}
}

// RejectionBody строит тело отказа с указанной причиной.
func RejectionBody(reason string) Body {
	r := &Rejection{Success: false, Reason: reason}
	raw, _ := json.Marshal(r)
	return Body{Kind: BodyRejection, Rejection: r, Raw: raw}
}

// Succeeded возвращает значение флага success из тела.
// known=false, если флаг в теле отсутствует.
func (b Body) Succeeded() (ok bool, known bool) {
	switch b.Kind {
	case BodyPDF:
		return true, true
	case BodyRejection:
		return false, true
	}

	var p envelope
	if len(b.Raw) == 0 || json.Unmarshal(b.Raw, &p) != nil || p.Success == nil {
		return false, false
	}
	return *p.Success, true
}

// Reason возвращает причину отказа, если она есть.
func (b Body) Reason() string {
	if b.Rejection != nil {
		return b.Rejection.Reason
	}
	return ""
}

// IsZero возвращает true для пустого тела.
func (b Body) IsZero() bool {
	return b.Kind == "" || b.Kind == BodyEmpty
}

// MarshalJSON сериализует исходный JSON.
func (b Body) MarshalJSON() ([]byte, error) {
	if len(b.Raw) == 0 {
		return []byte("null"), nil
	}
	return b.Raw, nil
}

// UnmarshalJSON классифицирует JSON через DecodeBody.
func (b *Body) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = Body{Kind: BodyEmpty}
		return nil
	}
	*b = DecodeBody(data)
	return nil
}
