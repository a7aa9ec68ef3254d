package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/amitray007/pare/internal/detect"
	"github.com/amitray007/pare/internal/gate"
	"github.com/amitray007/pare/internal/imaging"
	"github.com/amitray007/pare/internal/metrics"
	"github.com/amitray007/pare/internal/optimize"
)

// optimizePresetDefault is used when a payload is enqueued without an
// explicit preset, matching imaging.DefaultConfig's quality.
const optimizePresetDefault = imaging.PresetLow

const (
	// TypeOptimize is the task type for a background optimize call —
	// the async counterpart to the synchronous Registry.Dispatch contract,
	// for callers that accept upload now, compress later.
	TypeOptimize = "image:optimize"

	// DefaultMaxRetry is the default number of retry attempts.
	DefaultMaxRetry = 3

	// DefaultTimeout bounds a single optimize task, generous enough to
	// cover every per-format optimizer's candidate fan-out.
	DefaultTimeout = 5 * time.Minute
)

// OptimizePayload is the task payload: the object key the original bytes
// live under, the desired preset, and the key the result should be
// written back to. RequestID stays stable across retries so log lines
// correlate. Preset is carried rather
// than a full OptimizationConfig because the config's max-reduction
// unset/zero distinction lives in an unexported field that wouldn't
// survive a JSON round trip through the queue.
type OptimizePayload struct {
	RequestID  string    `json:"request_id"`
	SourceKey  string    `json:"source_key"`
	ResultKey  string    `json:"result_key"`
	Preset     string    `json:"preset"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// OptimizeHandler drives internal/optimize.Registry.Dispatch from a
// dequeued task: the job-queue invocation path that sits alongside the
// synchronous Optimize contract.
type OptimizeHandler struct {
	registry *optimize.Registry
	gate     *gate.Gate
	metrics  *metrics.Collector
	storage  Storage
	logger   zerolog.Logger
}

// NewOptimizeHandler builds a handler bound to a registry, gate,
// metrics collector, and storage backend.
func NewOptimizeHandler(registry *optimize.Registry, g *gate.Gate, m *metrics.Collector, storage Storage, logger zerolog.Logger) *OptimizeHandler {
	return &OptimizeHandler{registry: registry, gate: g, metrics: m, storage: storage, logger: logger}
}

// ProcessTask implements asynq.Handler. It fetches the source bytes,
// dispatches through the real optimizer pipeline (gated by the same
// compression gate a synchronous caller would go through), and stores the
// optimized bytes back. Every error kind the dispatch raises, Overloaded
// included, is returned as a task failure that asynq retries up to
// DefaultMaxRetry times; Overloaded differs only in being logged as a
// warning and counted as a gate rejection.
func (h *OptimizeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload OptimizePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal optimize payload: %w", err)
	}

	log := h.logger.With().Str("request_id", payload.RequestID).Str("source_key", payload.SourceKey).Logger()
	log.Info().Msg("starting optimize task")

	data, err := h.storage.Get(ctx, payload.SourceKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to retrieve source bytes")
		return fmt.Errorf("retrieve %s: %w", payload.SourceKey, err)
	}

	format, err := detect.Detect(data)
	if err != nil {
		log.Error().Err(err).Msg("unsupported format")
		return fmt.Errorf("detect format: %w", err)
	}

	presetName := payload.Preset
	if presetName == "" {
		presetName = string(optimizePresetDefault)
	}
	cfg, err := imaging.ResolvePreset(presetName)
	if err != nil {
		log.Error().Err(err).Str("preset", presetName).Msg("invalid preset")
		return fmt.Errorf("resolve preset %q: %w", presetName, err)
	}

	start := time.Now()
	result, err := h.registry.Dispatch(ctx, h.gate, data, cfg)
	elapsed := time.Since(start)

	if err != nil {
		if errorsIsOverloaded(err) {
			if h.metrics != nil {
				h.metrics.IncGateRejection()
			}
			log.Warn().Err(err).Msg("compression gate overloaded, will retry")
		} else {
			log.Error().Err(err).Msg("optimize dispatch failed")
		}
		return fmt.Errorf("optimize %s: %w", payload.SourceKey, err)
	}

	if h.metrics != nil {
		h.metrics.ObserveOptimize(format, result, elapsed.Seconds())
	}

	if err := h.storage.Put(ctx, payload.ResultKey, result.OptimizedBytes); err != nil {
		log.Error().Err(err).Msg("failed to store optimized result")
		return fmt.Errorf("store %s: %w", payload.ResultKey, err)
	}

	log.Info().
		Str("method", result.Method).
		Int("original_size", result.OriginalSize).
		Int("optimized_size", result.OptimizedSize).
		Float64("reduction_percent", result.ReductionPercent).
		Dur("duration", elapsed).
		Msg("optimize task completed")

	return nil
}

func errorsIsOverloaded(err error) bool {
	code, ok := imaging.CodeOf(err)
	return ok && code == imaging.CodeServiceUnavailable
}

// NewOptimizeTask builds an asynq.Task for OptimizePayload, generating a
// RequestID when the caller left one unset.
func NewOptimizeTask(payload OptimizePayload) (*asynq.Task, error) {
	if payload.RequestID == "" {
		payload.RequestID = uuid.NewString()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal optimize payload: %w", err)
	}

	return asynq.NewTask(
		TypeOptimize,
		payloadBytes,
		asynq.MaxRetry(DefaultMaxRetry),
		asynq.Timeout(DefaultTimeout),
		asynq.Queue("default"),
	), nil
}
