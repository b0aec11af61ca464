package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/shaiso/Deck/internal/domain"
	"github.com/shaiso/Deck/internal/engine"
)

const (
	maxResponseBody = 10 * 1024 * 1024 // 10 MB
	maxErrorSnippet = 512
)

// HTTPOptions — параметры HTTPSource.
type HTTPOptions struct {
	// Timeout — таймаут клиента. 0 — без таймаута.
	Timeout time.Duration

	// Env — переменные для URL-шаблонов.
	Env map[string]string

	// Client — готовый HTTP-клиент (для тестов).
	Client *http.Client
}

// HTTPSource — Source, выполняющий реальные HTTP-запросы.
//
// Каждый вызов Resolve — ровно один запрос, без повторов.
//
//	GET:  credential и inputs уходят в query string
//	POST: credential уходит в заголовок, inputs — JSON body
//
// Расположение credential можно переопределить через EndpointConfig.Auth.
type HTTPSource struct {
	client *http.Client
	env    map[string]string
}

// NewHTTPSource создаёт HTTP-источник.
func NewHTTPSource(opts HTTPOptions) *HTTPSource {
	client := opts.Client
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
		client.Timeout = opts.Timeout
	}
	return &HTTPSource{client: client, env: opts.Env}
}

// Resolve выполняет запрос к endpoint'у.
func (s *HTTPSource) Resolve(ctx context.Context, cfg domain.EndpointConfig, inputs domain.Inputs) (*domain.Response, error) {
	if cfg.TimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutSec)*time.Second)
		defer cancel()
	}

	req, err := s.buildRequest(ctx, cfg, inputs)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, transportFailure(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return nil, transportFailure(fmt.Errorf("read response body: %w", err))
	}
	if len(data) > maxResponseBody {
		return nil, transportFailure(fmt.Errorf("response body exceeds %d bytes", maxResponseBody))
	}

	return classify(resp, data)
}

// buildRequest собирает запрос: рендерит URL и подставляет credential.
func (s *HTTPSource) buildRequest(ctx context.Context, cfg domain.EndpointConfig, inputs domain.Inputs) (*http.Request, error) {
	params := inputs.Params()

	tctx := engine.NewContext(params)
	for k, v := range s.env {
		tctx.SetEnv(k, v)
	}

	rawURL, err := engine.Render(cfg.URL, tctx)
	if err != nil {
		return nil, &Failure{Kind: domain.ErrorKindConfiguration, Message: err.Error(), Err: err}
	}

	// inputs, уже подставленные в URL, не дублируются
	for _, name := range engine.Placeholders(cfg.URL) {
		delete(params, name)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		err = fmt.Errorf("%w: invalid url %q: %v", engine.ErrConfiguration, rawURL, err)
		return nil, &Failure{Kind: domain.ErrorKindConfiguration, Message: err.Error(), Err: err}
	}

	credential, hasCredential := inputs.Credential()

	var body io.Reader
	query := u.Query()

	switch cfg.Method {
	case domain.MethodPost:
		var value any = params
		if cfg.BodyInput != "" {
			v, ok := params[cfg.BodyInput]
			if !ok {
				err := fmt.Errorf("%w: missing body input %q", engine.ErrConfiguration, cfg.BodyInput)
				return nil, &Failure{Kind: domain.ErrorKindConfiguration, Message: err.Error(), Err: err}
			}
			value = v
		}

		payload, err := json.Marshal(value)
		if err != nil {
			return nil, &Failure{
				Kind:    domain.ErrorKindConfiguration,
				Message: fmt.Sprintf("encode request body: %v", err),
				Err:     fmt.Errorf("%w: encode request body: %v", engine.ErrConfiguration, err),
			}
		}
		body = bytes.NewReader(payload)
	default:
		for k, v := range params {
			query.Set(k, queryValue(v))
		}
	}

	if hasCredential && cfg.Auth.Placement == domain.AuthQuery {
		query.Set(authName(cfg.Auth), credential)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, string(cfg.Method), u.String(), body)
	if err != nil {
		return nil, &Failure{Kind: domain.ErrorKindConfiguration, Message: err.Error(), Err: err}
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if hasCredential && cfg.Auth.Placement == domain.AuthHeader {
		req.Header.Set(authName(cfg.Auth), credential)
	}

	return req, nil
}

// classify превращает HTTP-ответ в Response или Failure.
//
// Решает флаг success в теле, а не HTTP-статус: success=false — отказ
// даже при 2xx. Без флага успехом считается только 2xx. Битый JSON
// в 2xx-ответе — сбой транспорта, а не успех.
func classify(resp *http.Response, data []byte) (*domain.Response, error) {
	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if success && len(bytes.TrimSpace(data)) > 0 && !json.Valid(data) {
		return nil, transportFailure(fmt.Errorf("decode response body: invalid JSON (HTTP %d)", resp.StatusCode))
	}

	body := domain.DecodeBody(data)

	ok, known := body.Succeeded()
	switch {
	case known && !ok:
		return nil, rejection(resp.StatusCode, body, fmt.Sprintf("HTTP %d", resp.StatusCode))
	case known && ok:
		return newResponse(resp, body), nil
	case success:
		return newResponse(resp, body), nil
	default:
		return nil, &Failure{
			Kind:    domain.ErrorKindRemoteRejection,
			Status:  resp.StatusCode,
			Body:    body,
			Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(data), maxErrorSnippet)),
			Err:     ErrRemoteRejection,
		}
	}
}

func newResponse(resp *http.Response, body domain.Body) *domain.Response {
	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return &domain.Response{Status: resp.StatusCode, Body: body, Headers: headers}
}

func transportFailure(err error) *Failure {
	return &Failure{
		Kind:    domain.ErrorKindTransport,
		Message: err.Error(),
		Err:     fmt.Errorf("%w: %w", ErrTransport, err),
	}
}

func authName(auth domain.AuthConfig) string {
	if auth.Name != "" {
		return auth.Name
	}
	if auth.Placement == domain.AuthHeader {
		return domain.DefaultAuthHeader
	}
	return domain.DefaultAuthQuery
}

// queryValue приводит значение input к строке для query string.
func queryValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case bool, int, int64, float64, json.Number:
		return fmt.Sprint(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
