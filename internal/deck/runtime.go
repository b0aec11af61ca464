package deck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Deck/internal/domain"
	"github.com/shaiso/Deck/internal/source"
	"github.com/shaiso/Deck/internal/telemetry"
)

// Resolver разрешает шаг в конфигурацию endpoint'а.
// Реализуется *engine.Registry.
type Resolver interface {
	Resolve(stepID string) (domain.EndpointConfig, error)
}

// Observer — представление runtime только для чтения.
type Observer interface {
	State() domain.State
	Subscribe(fn func(domain.State)) (unsubscribe func())
	Watch(ctx context.Context) <-chan domain.State
}

// Deck — полный доступ к runtime: чтение состояния и запуск шагов.
type Deck interface {
	Observer
	Start(ctx context.Context, stepID string, inputs domain.Inputs) (uint64, <-chan domain.State)
	RunStep(ctx context.Context, stepID string, inputs domain.Inputs) domain.State
}

// Config — зависимости Runtime.
type Config struct {
	// Registry — реестр endpoint'ов.
	Registry Resolver

	// Source — источник ответов (mock или live), выбирается при создании.
	Source source.Source

	// Logger
	Logger *slog.Logger

	// Metrics — необязательные метрики.
	Metrics *telemetry.Metrics
}

// Runtime — Deck Runtime.
//
// Все методы безопасны для конкурентного вызова.
type Runtime struct {
	registry Resolver
	source   source.Source
	logger   *slog.Logger
	metrics  *telemetry.Metrics

	// mu защищает seq, state, подписчиков и очередь уведомлений
	mu    sync.Mutex
	seq   uint64
	state domain.State

	subs      []subscription
	nextSubID uint64

	pending     []domain.State
	dispatching bool

	wg sync.WaitGroup
}

var (
	_ Deck     = (*Runtime)(nil)
	_ Observer = (*Runtime)(nil)
)

// New создаёт Runtime в состоянии IDLE.
func New(cfg Config) *Runtime {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runtime{
		registry: cfg.Registry,
		source:   cfg.Source,
		logger:   logger,
		metrics:  cfg.Metrics,
		state:    domain.IdleState(),
	}
}

// State возвращает текущее состояние.
func (r *Runtime) State() domain.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start запускает шаг.
//
// До возврата Start фиксирует LOADING (response и error очищены) и уведомляет
// подписчиков; остальная работа идёт в отдельной горутине. Канал done получает
// терминальное состояние этого запуска и закрывается. Состояние могло быть
// отброшено как устаревшее: сравните его Seq с State().Seq.
func (r *Runtime) Start(ctx context.Context, stepID string, inputs domain.Inputs) (uint64, <-chan domain.State) {
	invocationID := uuid.NewString()
	started := time.Now()

	r.mu.Lock()
	r.seq++
	seq := r.seq
	loading := domain.State{
		Phase:        domain.PhaseLoading,
		Seq:          seq,
		InvocationID: invocationID,
		StepID:       stepID,
		UpdatedAt:    started,
	}
	r.state = loading
	r.pending = append(r.pending, loading)
	r.mu.Unlock()

	logger := telemetry.WithInvocationID(telemetry.WithSeq(telemetry.WithStepID(r.logger, stepID), seq), invocationID)
	logger.Info("step started")

	r.dispatch()

	done := make(chan domain.State, 1)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(done)

		final := r.execute(ctx, logger, stepID, inputs)
		final.Seq = seq
		final.InvocationID = invocationID
		final.StepID = stepID
		final.UpdatedAt = time.Now()

		r.finish(logger, final, time.Since(started))
		done <- final
	}()

	return seq, done
}

// RunStep запускает шаг и ждёт терминального состояния.
//
// Никогда не паникует и не возвращает ошибку: любая ошибка становится
// состоянием FAILED. Runtime не отменяет запуск сам; ctx передаётся источнику.
func (r *Runtime) RunStep(ctx context.Context, stepID string, inputs domain.Inputs) domain.State {
	_, done := r.Start(ctx, stepID, inputs)
	return <-done
}

// Wait ждёт завершения всех запущенных шагов.
func (r *Runtime) Wait() {
	r.wg.Wait()
}

// execute выполняет шаг и возвращает терминальное состояние.
func (r *Runtime) execute(ctx context.Context, logger *slog.Logger, stepID string, inputs domain.Inputs) (st domain.State) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("step panicked", "panic", p)
			st = failed(&source.Failure{
				Kind:    domain.ErrorKindInternal,
				Message: fmt.Sprintf("internal error: %v", p),
				Err:     source.ErrInternal,
			})
		}
	}()

	if stepID == "" {
		return failed(source.AsFailure(ErrEmptyStepID))
	}
	if r.registry == nil {
		return failed(source.AsFailure(ErrNoRegistry))
	}

	endpoint, err := r.registry.Resolve(stepID)
	if err != nil {
		return failed(source.AsFailure(err))
	}

	if endpoint.RequiresCredential() {
		if _, ok := inputs.Credential(); !ok {
			return failed(source.MissingCredential())
		}
	}

	if r.source == nil {
		return failed(source.AsFailure(ErrNoSource))
	}

	resp, err := r.source.Resolve(ctx, endpoint, inputs)
	if err != nil {
		return failed(source.AsFailure(err))
	}
	if resp == nil {
		return failed(source.AsFailure(errors.New("source returned no response")))
	}

	return domain.State{Phase: domain.PhaseSucceeded, Response: resp}
}

func failed(f *source.Failure) domain.State {
	return domain.State{Phase: domain.PhaseFailed, Error: f.Info()}
}

// finish фиксирует терминальное состояние, если запуск ещё актуален.
func (r *Runtime) finish(logger *slog.Logger, st domain.State, elapsed time.Duration) {
	outcome := string(domain.PhaseSucceeded)
	if st.Error != nil {
		outcome = string(st.Error.Kind)
	}
	r.metrics.StepFinished(st.StepID, outcome, elapsed)

	if !r.commit(st) {
		r.metrics.StaleCommit()
		logger.Debug("stale commit discarded", "phase", st.Phase)
		return
	}

	switch st.Phase {
	case domain.PhaseSucceeded:
		logger.Info("step succeeded",
			"status", st.Response.Status,
			"duration", elapsed,
		)
	case domain.PhaseFailed:
		logger.Warn("step failed",
			"kind", st.Error.Kind,
			"status", st.Error.Status,
			"error", st.Error.Message,
			"duration", elapsed,
		)
	}
}

// commit заменяет состояние целиком, если st.Seq — последний выданный номер.
func (r *Runtime) commit(st domain.State) bool {
	r.mu.Lock()
	if st.Seq != r.seq {
		r.mu.Unlock()
		return false
	}
	r.state = st
	r.pending = append(r.pending, st)
	r.mu.Unlock()

	r.dispatch()
	return true
}
