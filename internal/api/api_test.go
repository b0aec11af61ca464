package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shaiso/Deck/decks"
	"github.com/shaiso/Deck/internal/deck"
	"github.com/shaiso/Deck/internal/domain"
	"github.com/shaiso/Deck/internal/engine"
	"github.com/shaiso/Deck/internal/repo"
	"github.com/shaiso/Deck/internal/source"
	"github.com/shaiso/Deck/internal/telemetry"
)

type fakeStore struct {
	decks    []domain.StoredDeck
	versions map[string]*domain.DeckVersion
	err      error
}

func (f *fakeStore) List(context.Context) ([]domain.StoredDeck, error) {
	return f.decks, f.err
}

func (f *fakeStore) GetLatest(_ context.Context, name string) (*domain.DeckVersion, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.versions[name]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) GetVersion(ctx context.Context, name string, version int) (*domain.DeckVersion, error) {
	v, err := f.GetLatest(ctx, name)
	if err != nil {
		return nil, err
	}
	if v.Version != version {
		return nil, repo.ErrNotFound
	}
	return v, nil
}

type testEnv struct {
	server  *httptest.Server
	runtime *deck.Runtime
	metrics *telemetry.Metrics
}

func newTestEnv(t *testing.T, latency time.Duration, store DeckStore) *testEnv {
	t.Helper()

	m, fixtures, err := decks.API2PDF()
	if err != nil {
		t.Fatalf("load deck: %v", err)
	}
	reg, err := engine.NewRegistry(m)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	src, err := source.New(source.ModeMock, source.Options{Fixtures: fixtures, MockLatency: latency})
	if err != nil {
		t.Fatalf("source: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())

	rt := deck.New(deck.Config{Registry: reg, Source: src, Logger: logger, Metrics: metrics})

	h := NewHandler(Config{
		Deck:    rt,
		Catalog: reg,
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		rt.Wait()
	})

	return &testEnv{server: srv, runtime: rt, metrics: metrics}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func decodeData[T any](t *testing.T, data []byte) T {
	t.Helper()
	var wrapper struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return wrapper.Data
}

func decodeErrorCode(t *testing.T, data []byte) ErrorCode {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode error %s: %v", data, err)
	}
	return resp.Error.Code
}

func TestListSteps(t *testing.T) {
	env := newTestEnv(t, 0, nil)

	resp, data := env.do(t, http.MethodGet, "/api/v1/steps", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	steps := decodeData[[]StepResponse](t, data)
	if len(steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(steps))
	}
	// Порядок manifest сохраняется
	if steps[0].ID != "url-to-pdf-get" {
		t.Errorf("expected first step url-to-pdf-get, got %s", steps[0].ID)
	}
	if steps[0].Endpoint == nil || steps[0].Endpoint.AuthPlacement != domain.AuthQuery {
		t.Errorf("unexpected endpoint: %+v", steps[0].Endpoint)
	}
	if !steps[0].Endpoint.RequiresCredential {
		t.Error("expected credential to be required")
	}
}

func TestGetStep(t *testing.T) {
	env := newTestEnv(t, 0, nil)

	resp, data := env.do(t, http.MethodGet, "/api/v1/steps/merge-pdfs", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	step := decodeData[StepResponse](t, data)
	if step.Endpoint == nil || step.Endpoint.Method != domain.MethodPost || step.Endpoint.BodyInput != "urls" {
		t.Errorf("unexpected endpoint: %+v", step.Endpoint)
	}

	resp, data = env.do(t, http.MethodGet, "/api/v1/steps/unknown", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	if code := decodeErrorCode(t, data); code != ErrCodeStepNotFound {
		t.Errorf("expected %s, got %s", ErrCodeStepNotFound, code)
	}
}

func TestRunStep_Wait(t *testing.T) {
	env := newTestEnv(t, 0, nil)

	resp, data := env.do(t, http.MethodPost, "/api/v1/steps/url-to-pdf-get/run", RunStepRequest{
		Inputs: domain.Inputs{"apiKey": "k", "url": "https://example.com"},
		Wait:   true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
	}

	result := decodeData[RunResultResponse](t, data)
	if result.State.Phase != domain.PhaseSucceeded {
		t.Fatalf("expected SUCCEEDED, got %s", result.State.Phase)
	}
	if result.Stale {
		t.Error("single run must not be stale")
	}
	if result.State.Response == nil || result.State.Response.Body.Kind != domain.BodyPDF {
		t.Errorf("expected pdf body, got %+v", result.State.Response)
	}

	// GET /state отдаёт то же состояние
	_, data = env.do(t, http.MethodGet, "/api/v1/state", nil)
	st := decodeData[domain.State](t, data)
	if st.Seq != result.Seq || st.Phase != domain.PhaseSucceeded {
		t.Errorf("unexpected state: seq=%d phase=%s", st.Seq, st.Phase)
	}
}

func TestRunStep_MissingCredential(t *testing.T) {
	env := newTestEnv(t, 0, nil)

	resp, data := env.do(t, http.MethodPost, "/api/v1/steps/html-to-pdf/run", RunStepRequest{
		Inputs: domain.Inputs{"html": "<p>hi</p>"},
		Wait:   true,
	})
	// Ошибка шага — состояние, а не HTTP-ошибка
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	result := decodeData[RunResultResponse](t, data)
	if result.State.Phase != domain.PhaseFailed || result.State.Error == nil {
		t.Fatalf("expected FAILED, got %+v", result.State)
	}
	if result.State.Error.Kind != domain.ErrorKindMissingCredential || result.State.Error.Status != 401 {
		t.Errorf("unexpected error: %+v", result.State.Error)
	}
}

func TestRunStep_Async(t *testing.T) {
	env := newTestEnv(t, 50*time.Millisecond, nil)

	resp, data := env.do(t, http.MethodPost, "/api/v1/steps/url-to-pdf-post/run", RunStepRequest{
		Inputs: domain.Inputs{"apiKey": "k", "url": "https://example.com"},
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	accepted := decodeData[RunAcceptedResponse](t, data)
	if accepted.Seq == 0 {
		t.Error("expected non-zero seq")
	}
	if accepted.State.Seq != accepted.Seq {
		t.Errorf("expected state of this run, got seq %d", accepted.State.Seq)
	}

	env.runtime.Wait()
	if st := env.runtime.State(); st.Phase != domain.PhaseSucceeded {
		t.Errorf("expected SUCCEEDED after wait, got %s", st.Phase)
	}
}

func TestRunStep_UnknownStep(t *testing.T) {
	env := newTestEnv(t, 0, nil)

	_, data := env.do(t, http.MethodPost, "/api/v1/steps/nope/run", RunStepRequest{Wait: true})
	result := decodeData[RunResultResponse](t, data)
	if result.State.Error == nil || result.State.Error.Kind != domain.ErrorKindConfiguration {
		t.Errorf("expected configuration failure, got %+v", result.State.Error)
	}
}

func TestRunStep_InvalidBody(t *testing.T) {
	env := newTestEnv(t, 0, nil)

	req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/steps/merge-pdfs/run", strings.NewReader("{not json"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	if env.runtime.State().Phase != domain.PhaseIdle {
		t.Error("invalid body must not start a run")
	}
}

func TestStreamState(t *testing.T) {
	env := newTestEnv(t, 0, nil)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/v1/state/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var initial domain.State
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if initial.Phase != domain.PhaseIdle {
		t.Errorf("expected IDLE first, got %s", initial.Phase)
	}

	env.runtime.Start(context.Background(), "url-to-pdf-get", domain.Inputs{"apiKey": "k", "url": "https://example.com"})

	var phases []domain.Phase
	for len(phases) < 2 {
		var st domain.State
		if err := conn.ReadJSON(&st); err != nil {
			t.Fatalf("read: %v", err)
		}
		phases = append(phases, st.Phase)
	}

	if phases[0] != domain.PhaseLoading || phases[1] != domain.PhaseSucceeded {
		t.Errorf("expected LOADING then SUCCEEDED, got %v", phases)
	}
}

func TestDecks(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{
		decks: []domain.StoredDeck{{ID: id, Name: "api2pdf", LatestVersion: 2}},
		versions: map[string]*domain.DeckVersion{
			"api2pdf": {DeckID: id, Version: 2, Manifest: domain.Manifest{Name: "api2pdf"}},
		},
	}
	env := newTestEnv(t, 0, store)

	_, data := env.do(t, http.MethodGet, "/api/v1/decks", nil)
	list := decodeData[[]DeckResponse](t, data)
	if len(list) != 1 || list[0].ID != id.String() || list[0].LatestVersion != 2 {
		t.Errorf("unexpected list: %+v", list)
	}

	resp, data := env.do(t, http.MethodGet, "/api/v1/decks/api2pdf", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if v := decodeData[DeckVersionResponse](t, data); v.Version != 2 {
		t.Errorf("expected version 2, got %d", v.Version)
	}

	tests := []struct {
		path   string
		status int
		code   ErrorCode
	}{
		{"/api/v1/decks/missing", http.StatusNotFound, ErrCodeDeckNotFound},
		{"/api/v1/decks/api2pdf?version=1", http.StatusNotFound, ErrCodeVersionNotFound},
		{"/api/v1/decks/api2pdf?version=x", http.StatusBadRequest, ErrCodeInvalidVersion},
		{"/api/v1/decks/api2pdf?version=2", http.StatusOK, ""},
	}
	for _, tt := range tests {
		resp, data := env.do(t, http.MethodGet, tt.path, nil)
		if resp.StatusCode != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.status, resp.StatusCode)
		}
		if tt.code != "" {
			if code := decodeErrorCode(t, data); code != tt.code {
				t.Errorf("%s: expected %s, got %s", tt.path, tt.code, code)
			}
		}
	}

	// Испорченный manifest в хранилище — отдельный код, не общий 500
	store.err = fmt.Errorf("%w: bad json", repo.ErrInvalidManifest)
	resp, data = env.do(t, http.MethodGet, "/api/v1/decks/api2pdf", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
	if code := decodeErrorCode(t, data); code != ErrCodeCorruptDeck {
		t.Errorf("expected %s, got %s", ErrCodeCorruptDeck, code)
	}

	store.err = errors.New("db down")
	resp, data = env.do(t, http.MethodGet, "/api/v1/decks", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
	if code := decodeErrorCode(t, data); code != ErrCodeInternalError {
		t.Errorf("expected %s, got %s", ErrCodeInternalError, code)
	}
}

func TestDecks_NoStore(t *testing.T) {
	env := newTestEnv(t, 0, nil)

	resp, data := env.do(t, http.MethodGet, "/api/v1/decks", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
	if code := decodeErrorCode(t, data); code != ErrCodeStoreDisabled {
		t.Errorf("expected %s, got %s", ErrCodeStoreDisabled, code)
	}
}

func TestMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mark("a"), mark("b"), Recovery(logger), Metrics(metrics))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/panic" {
			panic("boom")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rec.Code)
	}
	if strings.Join(order, ",") != "a,b" {
		t.Errorf("unexpected middleware order: %v", order)
	}
	expected := `
# HELP deck_api_http_requests_total Total HTTP requests handled by deck-api
# TYPE deck_api_http_requests_total counter
deck_api_http_requests_total{method="GET",status="418"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "deck_api_http_requests_total"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}

	// Паника превращается в 500
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
