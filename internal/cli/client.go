package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-cleanhttp"

	"github.com/shaiso/Deck/internal/domain"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// StepResponse — шаг из API.
type StepResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Endpoint    *EndpointResponse `json:"endpoint,omitempty"`
}

// EndpointResponse — endpoint шага из API.
type EndpointResponse struct {
	Ref                string `json:"ref"`
	Method             string `json:"method"`
	URL                string `json:"url"`
	AuthPlacement      string `json:"auth_placement"`
	RequiresCredential bool   `json:"requires_credential"`
	TimeoutSec         int    `json:"timeout_sec,omitempty"`
}

// RunResponse — результат запуска шага.
type RunResponse struct {
	Seq   uint64       `json:"seq"`
	State domain.State `json:"state"`
	Stale bool         `json:"stale"`
}

// DeckResponse — сохранённый deck из API.
type DeckResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	LatestVersion int    `json:"latest_version"`
	CreatedAt     string `json:"created_at"`
}

// DeckVersionResponse — версия deck из API.
type DeckVersionResponse struct {
	Name      string          `json:"name"`
	Version   int             `json:"version"`
	Manifest  domain.Manifest `json:"manifest"`
	Fixtures  int             `json:"fixtures"`
	CreatedAt string          `json:"created_at"`
}

// --- Request types ---

// RunStepRequest — запуск шага.
type RunStepRequest struct {
	Inputs domain.Inputs `json:"inputs,omitempty"`
	Wait   bool          `json:"wait,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для deck API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	httpClient := cleanhttp.DefaultClient()
	httpClient.Timeout = 2 * time.Minute

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// --- Steps ---

// ListSteps возвращает шаги deck.
func (c *Client) ListSteps() ([]StepResponse, error) {
	var steps []StepResponse
	err := c.list("/api/v1/steps", nil, &steps)
	return steps, err
}

// GetStep возвращает шаг по ID.
func (c *Client) GetStep(id string) (*StepResponse, error) {
	var step StepResponse
	err := c.get("/api/v1/steps/"+url.PathEscape(id), &step)
	return &step, err
}

// RunStep запускает шаг.
func (c *Client) RunStep(id string, req RunStepRequest) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/steps/"+url.PathEscape(id)+"/run", req, &run)
	return &run, err
}

// --- State ---

// GetState возвращает текущее состояние runtime.
func (c *Client) GetState() (*domain.State, error) {
	var st domain.State
	err := c.get("/api/v1/state", &st)
	return &st, err
}

// WatchState читает поток состояний, пока fn не вернёт false или не отменится ctx.
func (c *Client) WatchState(ctx context.Context, fn func(domain.State) bool) error {
	u, err := url.Parse(c.baseURL + "/api/v1/state/stream")
	if err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to state stream: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var st domain.State
		if err := conn.ReadJSON(&st); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("state stream: %w", err)
		}
		if !fn(st) {
			return nil
		}
	}
}

// --- Decks ---

// ListDecks возвращает сохранённые decks.
func (c *Client) ListDecks() ([]DeckResponse, error) {
	var decks []DeckResponse
	err := c.list("/api/v1/decks", nil, &decks)
	return decks, err
}

// GetDeck возвращает версию deck. version=0 — последняя.
func (c *Client) GetDeck(name string, version int) (*DeckVersionResponse, error) {
	path := "/api/v1/decks/" + url.PathEscape(name)
	if version > 0 {
		path += "?version=" + strconv.Itoa(version)
	}

	var dv DeckVersionResponse
	err := c.get(path, &dv)
	return &dv, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
