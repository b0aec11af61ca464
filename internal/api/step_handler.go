package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// ListSteps возвращает шаги deck в порядке manifest.
// GET /api/v1/steps
func (h *Handler) ListSteps(w http.ResponseWriter, r *http.Request) {
	steps := h.catalog.Steps()

	resp := make([]StepResponse, 0, len(steps))
	for _, step := range steps {
		ep, err := h.catalog.Resolve(step.ID)
		if err != nil {
			resp = append(resp, StepFromDomain(step, nil))
			continue
		}
		resp = append(resp, StepFromDomain(step, &ep))
	}

	List(w, resp, len(resp))
}

// GetStep возвращает шаг по ID.
// GET /api/v1/steps/{id}
func (h *Handler) GetStep(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	step, ok := h.catalog.Step(id)
	if !ok {
		StepNotFound(w, id)
		return
	}

	ep, err := h.catalog.Resolve(id)
	if err != nil {
		Success(w, StepFromDomain(step, nil))
		return
	}

	Success(w, StepFromDomain(step, &ep))
}

// RunStep запускает шаг.
// POST /api/v1/steps/{id}/run
//
// Без wait отвечает 202 сразу после перехода в LOADING.
// С wait ждёт терминального состояния запуска и отвечает 200.
// Ошибка выполнения шага — это состояние FAILED, а не ошибка HTTP.
func (h *Handler) RunStep(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req RunStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		InvalidRequest(w, "invalid request body")
		return
	}

	// Неизвестный шаг — тоже запуск: runtime зафиксирует FAILED(configuration)
	// и все подписчики его увидят.

	// Запуск переживает отключение клиента
	ctx := context.WithoutCancel(r.Context())
	seq, done := h.deck.Start(ctx, id, req.Inputs)

	if !req.Wait {
		Accepted(w, RunAcceptedResponse{Seq: seq, State: h.deck.State()})
		return
	}

	select {
	case st := <-done:
		Success(w, RunResultResponse{
			Seq:   seq,
			State: st,
			Stale: h.deck.State().Seq != seq,
		})
	case <-r.Context().Done():
		h.logger.Debug("client gone before step finished", "step_id", id, "seq", seq)
	}
}
