package source

import (
	"errors"
	"testing"

	"github.com/shaiso/Deck/internal/domain"
	"github.com/shaiso/Deck/internal/engine"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"mock", ModeMock, false},
		{"", ModeMock, false},
		{" LIVE ", ModeLive, false},
		{"replay", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q): unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestNew(t *testing.T) {
	s, err := New(ModeMock, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*MockSource); !ok {
		t.Errorf("expected *MockSource, got %T", s)
	}

	s, err = New(ModeLive, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*HTTPSource); !ok {
		t.Errorf("expected *HTTPSource, got %T", s)
	}

	if _, err := New("replay", Options{}); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestAsFailure(t *testing.T) {
	if AsFailure(nil) != nil {
		t.Error("nil error should stay nil")
	}

	if f := AsFailure(engine.ErrStepNotFound); f.Kind != domain.ErrorKindConfiguration {
		t.Errorf("expected configuration, got %s", f.Kind)
	}

	f := AsFailure(errors.New("boom"))
	if f.Kind != domain.ErrorKindInternal || f.Message != "boom" {
		t.Errorf("unexpected failure: %+v", f)
	}

	mc := MissingCredential()
	if mc.Status != 401 || mc.Message != MissingCredentialMessage {
		t.Errorf("unexpected missing credential failure: %+v", mc)
	}
	if mc.Body.Reason() != MissingCredentialMessage {
		t.Errorf("unexpected body reason: %q", mc.Body.Reason())
	}

	info := mc.Info()
	if info.Kind != domain.ErrorKindMissingCredential || info.Message == "" {
		t.Errorf("unexpected info: %+v", info)
	}
}
