package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"venuebot/pkg/config"
	"venuebot/pkg/logger"
	"venuebot/pkg/metrics"
	"venuebot/pkg/queue"
	"venuebot/pkg/session"
)

const workerName = "worker"

// Worker is the single sequential consumer of the message queue.
type Worker struct {
	queue          queue.Queue
	router         *Router
	pollInterval   time.Duration
	messageTimeout time.Duration
	log            *slog.Logger
}

func NewWorker(q queue.Queue, router *Router, cfg config.WorkerConfig, log *slog.Logger) (*Worker, error) {
	if q == nil {
		return nil, errors.New("queue is required")
	}
	if router == nil {
		return nil, errors.New("router is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		queue:          q,
		router:         router,
		pollInterval:   cfg.PollInterval(),
		messageTimeout: cfg.MessageTimeout(),
		log:            log.With("component", "router.worker"),
	}, nil
}

// Name identifies the worker in status output.
func (w *Worker) Name() string {
	return workerName
}

// Run dequeues and handles messages one at a time until ctx is cancelled.
//
// Every side effect of one message completes before the next dequeue.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Worker started", "poll_interval", w.pollInterval, "message_timeout", w.messageTimeout)

	for {
		payload, err := queue.DequeueOrWait(ctx, w.queue, w.pollInterval, w.log)
		if err != nil {
			if ctx.Err() != nil {
				w.log.Info("Worker stopped")
				return nil
			}
			continue
		}

		queue.ObserveDepth(ctx, w.queue)
		w.process(ctx, payload)
	}
}

// Step handles at most one queued message without waiting.
func (w *Worker) Step(ctx context.Context) (bool, error) {
	payload, ok, err := w.queue.Pop(ctx)
	if err != nil || !ok {
		return false, err
	}

	queue.ObserveDepth(ctx, w.queue)
	w.process(ctx, payload)
	return true, nil
}

func (w *Worker) process(ctx context.Context, payload []byte) {
	log := w.log.With("request_id", uuid.NewString())

	msg, err := DecodeMessage(payload)
	if err != nil {
		outcome := "parse_error"
		if errors.Is(err, ErrEmptyMessage) {
			outcome = "empty"
		}
		metrics.MessagesHandled.WithLabelValues(KindUnrecognized.String(), outcome).Inc()
		log.Debug("Dropping queued message", "reason", outcome, "error", err)
		return
	}

	if w.messageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.messageTimeout)
		defer cancel()
	}

	startedAt := time.Now()
	cmd, err := w.handle(ctx, msg)
	metrics.MessageDuration.WithLabelValues(cmd.Kind.String()).Observe(time.Since(startedAt).Seconds())

	outcome := handleOutcome(err)
	metrics.MessagesHandled.WithLabelValues(cmd.Kind.String(), outcome).Inc()

	attrs := []any{
		"chat_id", msg.Chat.ID,
		"command", cmd.Kind.String(),
		"index", cmd.Index,
		"content", logger.Preview(msg.Text),
		"duration_ms", time.Since(startedAt).Milliseconds(),
	}
	switch outcome {
	case "ok":
		log.Info("Message handled", attrs...)
	case "miss":
		log.Info("Venue lookup missed", append(attrs, "error", err)...)
	default:
		log.Error("Message handling failed", append(attrs, "error", err)...)
	}
}

// handle keeps a panicking handler from taking down the loop. The command is
// classified first so a panic is still reported under its kind.
func (w *Worker) handle(ctx context.Context, msg InboundMessage) (cmd Command, err error) {
	cmd = Classify(msg)

	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("handler panic: %v", recovered)
		}
	}()

	return cmd, w.router.Dispatch(ctx, msg.Chat.ID, cmd)
}

func handleOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, session.ErrNotFound), errors.Is(err, ErrIndexOutOfRange):
		return "miss"
	default:
		return "error"
	}
}
