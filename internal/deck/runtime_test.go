package deck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shaiso/Deck/internal/domain"
	"github.com/shaiso/Deck/internal/engine"
	"github.com/shaiso/Deck/internal/source"
)

// Test doubles

type fakeResolver struct {
	endpoints map[string]domain.EndpointConfig
	calls     atomic.Int32
}

func (f *fakeResolver) Resolve(stepID string) (domain.EndpointConfig, error) {
	f.calls.Add(1)
	ep, ok := f.endpoints[stepID]
	if !ok {
		return domain.EndpointConfig{}, engine.ErrStepNotFound
	}
	return ep, nil
}

type fakeSource struct {
	calls   atomic.Int32
	resolve func(ctx context.Context, cfg domain.EndpointConfig, inputs domain.Inputs) (*domain.Response, error)
}

func (f *fakeSource) Resolve(ctx context.Context, cfg domain.EndpointConfig, inputs domain.Inputs) (*domain.Response, error) {
	f.calls.Add(1)
	return f.resolve(ctx, cfg, inputs)
}

func pdfResponse(url string) *domain.Response {
	data, _ := json.Marshal(map[string]any{"success": true, "pdf": url})
	return &domain.Response{Status: 200, Body: domain.DecodeBody(data)}
}

func okSource() *fakeSource {
	return &fakeSource{resolve: func(context.Context, domain.EndpointConfig, domain.Inputs) (*domain.Response, error) {
		return pdfResponse("https://example/x.pdf"), nil
	}}
}

func testResolver() *fakeResolver {
	return &fakeResolver{endpoints: map[string]domain.EndpointConfig{
		"A":    domain.EndpointConfig{Method: domain.MethodGet, URL: "https://x/a"}.Normalize("a"),
		"B":    domain.EndpointConfig{Method: domain.MethodGet, URL: "https://x/b"}.Normalize("b"),
		"open": domain.EndpointConfig{Method: domain.MethodGet, URL: "https://x/open", Auth: domain.AuthConfig{Placement: domain.AuthNone}}.Normalize("open"),
	}}
}

func testManifest(t *testing.T) *engine.Registry {
	t.Helper()

	m := &domain.Manifest{
		Name: "headless-chrome-pdf-generator",
		Endpoints: map[string]domain.EndpointConfig{
			"chrome-url-get": {Method: domain.MethodGet, URL: "https://v2018.api2pdf.com/chrome/url"},
		},
		Steps: []domain.StepDef{
			{ID: "url-to-pdf-get", Action: domain.ActionDef{EndpointRef: "chrome-url-get"}},
		},
	}
	reg, err := engine.NewRegistry(m)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return reg
}

func assertSettled(t *testing.T, st domain.State) {
	t.Helper()

	switch st.Phase {
	case domain.PhaseSucceeded:
		if st.Response == nil || st.Error != nil {
			t.Errorf("SUCCEEDED must carry only response: %+v", st)
		}
	case domain.PhaseFailed:
		if st.Error == nil || st.Response != nil {
			t.Errorf("FAILED must carry only error: %+v", st)
		}
		if st.Error != nil && st.Error.Message == "" {
			t.Error("failure message must not be empty")
		}
	default:
		t.Errorf("expected terminal phase, got %s", st.Phase)
	}
}

// RunStep

func TestRunStep_MockSuccess(t *testing.T) {
	fixtures := domain.Fixtures{
		"chrome-url-get": {Success: json.RawMessage(`{"success": true, "pdf": "https://example/x.pdf", "cost": 0.01}`)},
	}
	rt := New(Config{
		Registry: testManifest(t),
		Source:   source.NewMockSource(source.NewMockResolver(fixtures), 0),
	})

	st := rt.RunStep(context.Background(), "url-to-pdf-get", domain.Inputs{"apiKey": "k"})

	assertSettled(t, st)
	if st.Phase != domain.PhaseSucceeded {
		t.Fatalf("expected SUCCEEDED, got %s (%+v)", st.Phase, st.Error)
	}
	if st.Response.Body.PDF == nil || st.Response.Body.PDF.PDF != "https://example/x.pdf" {
		t.Errorf("unexpected body: %+v", st.Response.Body)
	}
	if rt.State().Seq != st.Seq || rt.State().Phase != domain.PhaseSucceeded {
		t.Errorf("terminal state should be visible: %+v", rt.State())
	}
}

func TestRunStep_MissingCredential(t *testing.T) {
	src := okSource()
	rt := New(Config{Registry: testResolver(), Source: src})

	for _, inputs := range []domain.Inputs{nil, {}, {"apiKey": ""}, {"apiKey": "  "}, {"apiKey": 42}} {
		st := rt.RunStep(context.Background(), "A", inputs)

		assertSettled(t, st)
		if st.Phase != domain.PhaseFailed {
			t.Fatalf("expected FAILED, got %s", st.Phase)
		}
		if st.Error.Status != 401 {
			t.Errorf("expected status 401, got %d", st.Error.Status)
		}
		if st.Error.Kind != domain.ErrorKindMissingCredential {
			t.Errorf("expected missing_credential, got %s", st.Error.Kind)
		}
	}

	if src.calls.Load() != 0 {
		t.Errorf("source must not be called without credential, got %d calls", src.calls.Load())
	}

	// endpoint без auth не требует credential
	st := rt.RunStep(context.Background(), "open", nil)
	if st.Phase != domain.PhaseSucceeded {
		t.Errorf("expected SUCCEEDED for auth none, got %s", st.Phase)
	}
}

func TestRunStep_RemoteRejectionWith200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success": false, "reason": "bad url"}`))
	}))
	defer server.Close()

	reg := &fakeResolver{endpoints: map[string]domain.EndpointConfig{
		"url-to-pdf-get": domain.EndpointConfig{Method: domain.MethodGet, URL: server.URL}.Normalize("chrome-url-get"),
	}}
	rt := New(Config{Registry: reg, Source: source.NewHTTPSource(source.HTTPOptions{})})

	st := rt.RunStep(context.Background(), "url-to-pdf-get", domain.Inputs{"apiKey": "k", "url": "not a url"})

	assertSettled(t, st)
	if st.Phase != domain.PhaseFailed {
		t.Fatalf("expected FAILED, got %s", st.Phase)
	}
	if st.Error.Message != "bad url" {
		t.Errorf("expected message 'bad url', got %q", st.Error.Message)
	}
	if st.Error.Status != 200 || st.Error.Kind != domain.ErrorKindRemoteRejection {
		t.Errorf("unexpected error: %+v", st.Error)
	}
}

func TestRunStep_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		stepID string
	}{
		{"unknown step", "missing"},
		{"empty step id", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := okSource()
			reg := testResolver()
			rt := New(Config{Registry: reg, Source: src})

			st := rt.RunStep(context.Background(), tt.stepID, domain.Inputs{"apiKey": "k"})

			assertSettled(t, st)
			if st.Error.Kind != domain.ErrorKindConfiguration {
				t.Errorf("expected configuration error, got %s", st.Error.Kind)
			}
			if !strings.Contains(st.Error.Message, "configuration error") {
				t.Errorf("expected configuration message, got %q", st.Error.Message)
			}
			if src.calls.Load() != 0 {
				t.Errorf("source must not be called, got %d calls", src.calls.Load())
			}
		})
	}

	// Runtime без зависимостей тоже не паникует
	st := New(Config{}).RunStep(context.Background(), "A", nil)
	if st.Phase != domain.PhaseFailed || st.Error.Kind != domain.ErrorKindConfiguration {
		t.Errorf("expected configuration failure, got %+v", st)
	}
}

func TestRunStep_SourceFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind domain.ErrorKind
	}{
		{"mock not found", &source.Failure{Kind: domain.ErrorKindMockNotFound, Message: "mock fixture not found: \"a\"", Err: source.ErrMockNotFound}, domain.ErrorKindMockNotFound},
		{"transport", &source.Failure{Kind: domain.ErrorKindTransport, Message: "connection refused", Err: source.ErrTransport}, domain.ErrorKindTransport},
		{"plain error", errors.New("boom"), domain.ErrorKindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{resolve: func(context.Context, domain.EndpointConfig, domain.Inputs) (*domain.Response, error) {
				return nil, tt.err
			}}
			rt := New(Config{Registry: testResolver(), Source: src})

			st := rt.RunStep(context.Background(), "A", domain.Inputs{"apiKey": "k"})

			assertSettled(t, st)
			if st.Error.Kind != tt.kind {
				t.Errorf("expected %s, got %s", tt.kind, st.Error.Kind)
			}
		})
	}
}

func TestRunStep_SourcePanic(t *testing.T) {
	src := &fakeSource{resolve: func(context.Context, domain.EndpointConfig, domain.Inputs) (*domain.Response, error) {
		panic("unexpected")
	}}
	rt := New(Config{Registry: testResolver(), Source: src})

	st := rt.RunStep(context.Background(), "A", domain.Inputs{"apiKey": "k"})

	assertSettled(t, st)
	if st.Error.Kind != domain.ErrorKindInternal {
		t.Errorf("expected internal error, got %s", st.Error.Kind)
	}

	// nil ответ без ошибки
	src.resolve = func(context.Context, domain.EndpointConfig, domain.Inputs) (*domain.Response, error) {
		return nil, nil
	}
	st = rt.RunStep(context.Background(), "A", domain.Inputs{"apiKey": "k"})
	if st.Phase != domain.PhaseFailed || st.Error.Kind != domain.ErrorKindInternal {
		t.Errorf("expected internal failure for nil response, got %+v", st)
	}
}

func TestStart_LoadingVisibleBeforeWork(t *testing.T) {
	release := make(chan struct{})

	var rt *Runtime
	var seenInSource domain.Phase
	src := &fakeSource{resolve: func(context.Context, domain.EndpointConfig, domain.Inputs) (*domain.Response, error) {
		seenInSource = rt.State().Phase
		<-release
		return pdfResponse("p"), nil
	}}
	rt = New(Config{Registry: testResolver(), Source: src})

	var phases []domain.Phase
	rt.Subscribe(func(st domain.State) {
		phases = append(phases, st.Phase)
	})

	if rt.State().Phase != domain.PhaseIdle {
		t.Fatalf("expected IDLE, got %s", rt.State().Phase)
	}

	seq, done := rt.Start(context.Background(), "A", domain.Inputs{"apiKey": "k"})

	// LOADING зафиксирован и доставлен до возврата Start
	st := rt.State()
	if st.Phase != domain.PhaseLoading || st.Seq != seq {
		t.Errorf("expected LOADING with seq %d, got %s/%d", seq, st.Phase, st.Seq)
	}
	if st.Response != nil || st.Error != nil {
		t.Error("LOADING must clear response and error")
	}
	if diff := cmp.Diff([]domain.Phase{domain.PhaseLoading}, phases); diff != "" {
		t.Errorf("unexpected notifications (-want +got):\n%s", diff)
	}

	close(release)
	final := <-done

	if seenInSource != domain.PhaseLoading {
		t.Errorf("source should observe LOADING, got %s", seenInSource)
	}
	if final.Phase != domain.PhaseSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", final.Phase)
	}
	if diff := cmp.Diff([]domain.Phase{domain.PhaseLoading, domain.PhaseSucceeded}, phases); diff != "" {
		t.Errorf("unexpected notifications (-want +got):\n%s", diff)
	}
}

func TestStart_StaleCommitDiscarded(t *testing.T) {
	for _, order := range []string{"newer settles first", "older settles first"} {
		t.Run(order, func(t *testing.T) {
			gates := map[string]chan struct{}{
				"https://x/a": make(chan struct{}),
				"https://x/b": make(chan struct{}),
			}
			src := &fakeSource{resolve: func(_ context.Context, cfg domain.EndpointConfig, _ domain.Inputs) (*domain.Response, error) {
				<-gates[cfg.URL]
				return pdfResponse(cfg.URL + ".pdf"), nil
			}}
			rt := New(Config{Registry: testResolver(), Source: src})

			var mu sync.Mutex
			var committed []string
			rt.Subscribe(func(st domain.State) {
				if st.Phase.IsTerminal() {
					mu.Lock()
					committed = append(committed, st.StepID)
					mu.Unlock()
				}
			})

			seqA, doneA := rt.Start(context.Background(), "A", domain.Inputs{"apiKey": "k"})
			seqB, doneB := rt.Start(context.Background(), "B", domain.Inputs{"apiKey": "k"})
			if seqB <= seqA {
				t.Fatalf("sequence must grow: %d then %d", seqA, seqB)
			}

			var stA, stB domain.State
			if order == "newer settles first" {
				close(gates["https://x/b"])
				stB = <-doneB
				close(gates["https://x/a"])
				stA = <-doneA
			} else {
				close(gates["https://x/a"])
				stA = <-doneA
				close(gates["https://x/b"])
				stB = <-doneB
			}

			if stA.Seq != seqA || stB.Seq != seqB {
				t.Errorf("done channels should carry their own seq: %d/%d", stA.Seq, stB.Seq)
			}

			final := rt.State()
			if final.Seq != seqB || final.StepID != "B" {
				t.Errorf("expected B (seq %d) to win, got %s (seq %d)", seqB, final.StepID, final.Seq)
			}
			if final.Response.Body.PDF.PDF != "https://x/b.pdf" {
				t.Errorf("unexpected visible response: %+v", final.Response.Body)
			}

			mu.Lock()
			defer mu.Unlock()
			if diff := cmp.Diff([]string{"B"}, committed); diff != "" {
				t.Errorf("only the newest invocation may commit (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunStep_Reentry(t *testing.T) {
	rt := New(Config{Registry: testResolver(), Source: okSource()})

	first := rt.RunStep(context.Background(), "A", domain.Inputs{"apiKey": "k"})
	second := rt.RunStep(context.Background(), "missing", domain.Inputs{"apiKey": "k"})

	if first.Phase != domain.PhaseSucceeded || second.Phase != domain.PhaseFailed {
		t.Errorf("unexpected phases: %s, %s", first.Phase, second.Phase)
	}
	if second.Seq != first.Seq+1 {
		t.Errorf("expected consecutive seq, got %d then %d", first.Seq, second.Seq)
	}
	// после FAILED снова можно получить SUCCEEDED
	third := rt.RunStep(context.Background(), "A", domain.Inputs{"apiKey": "k"})
	if third.Phase != domain.PhaseSucceeded || rt.State().Seq != third.Seq {
		t.Errorf("unexpected state after re-entry: %+v", rt.State())
	}

	rt.Wait()
}

func TestRunStep_ConcurrentCallers(t *testing.T) {
	rt := New(Config{Registry: testResolver(), Source: okSource()})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := rt.RunStep(context.Background(), "A", domain.Inputs{"apiKey": "k"})
			assertSettled(t, st)
		}()
	}
	wg.Wait()
	rt.Wait()

	st := rt.State()
	if st.Seq != 20 {
		t.Errorf("expected last seq 20, got %d", st.Seq)
	}
	// последний запуск всегда фиксирует своё терминальное состояние
	assertSettled(t, st)
}
