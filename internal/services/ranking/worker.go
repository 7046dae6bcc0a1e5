package ranking

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/blockbattle/internal/gateway"
	"github.com/mcoot/blockbattle/internal/messaging"
	"github.com/mcoot/blockbattle/internal/model"
)

// WorkerConfig holds result worker settings
type WorkerConfig struct {
	QueueSize      int
	PublishTimeout time.Duration
}

// DefaultWorkerConfig returns default worker settings
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		QueueSize:      64,
		PublishTimeout: 5 * time.Second,
	}
}

// Worker records finished matches off the gateway's hot path: every
// player's final score goes to the leaderboard and the result is
// published
type Worker struct {
	service   ServiceInterface
	publisher messaging.Publisher
	queue     chan model.GameResult
	timeout   time.Duration
	logger    *slog.Logger
	done      chan struct{}
}

// Ensure Worker can be handed to the gateway
var _ gateway.Recorder = (*Worker)(nil)

// NewWorker creates a Worker. A nil publisher publishes nothing.
func NewWorker(service ServiceInterface, publisher messaging.Publisher, logger *slog.Logger, cfg WorkerConfig) *Worker {
	defaults := DefaultWorkerConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaults.PublishTimeout
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &Worker{
		service:   service,
		publisher: publisher,
		queue:     make(chan model.GameResult, cfg.QueueSize),
		timeout:   cfg.PublishTimeout,
		logger:    logger.With(slog.String("component", "ranking-worker")),
		done:      make(chan struct{}),
	}
}

// Submit queues a result without blocking. When the queue is full the
// result is dropped and logged.
func (w *Worker) Submit(result model.GameResult) {
	select {
	case w.queue <- result:
	default:
		w.logger.Warn("result queue full, dropping game result",
			slog.String("room_id", string(result.RoomID)),
		)
	}
}

// Run processes results until ctx is cancelled, then drains what is
// already queued
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	w.logger.Info("ranking worker started")

	for {
		select {
		case result := <-w.queue:
			w.process(ctx, result)
		case <-ctx.Done():
			w.drain()
			w.logger.Info("ranking worker stopped")
			return
		}
	}
}

// Done is closed once Run has returned
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) drain() {
	for {
		select {
		case result := <-w.queue:
			ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
			w.process(ctx, result)
			cancel()
		default:
			return
		}
	}
}

func (w *Worker) process(ctx context.Context, result model.GameResult) {
	for _, entry := range result.Ranking {
		player := model.Player{ID: entry.PlayerID, Nickname: entry.Nickname}
		if _, err := w.service.Submit(ctx, player, entry.Score); err != nil {
			w.logger.Error("failed to record final score",
				slog.String("room_id", string(result.RoomID)),
				slog.String("player_id", string(entry.PlayerID)),
				slog.Any("error", err),
			)
		}
	}

	pubCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.publisher.PublishGameFinished(pubCtx, result); err != nil {
		w.logger.Warn("failed to publish game result",
			slog.String("room_id", string(result.RoomID)),
			slog.Any("error", err),
		)
		return
	}

	w.logger.Info("game result recorded",
		slog.String("room_id", string(result.RoomID)),
		slog.Int("players", len(result.Ranking)),
	)
}
