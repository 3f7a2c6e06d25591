package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/examapi"
	"github.com/stemsi/exstem-practice/internal/model"
)

// AnswerWriter persists one answer on the remote store.
type AnswerWriter interface {
	SubmitAnswer(ctx context.Context, attemptID, questionID string, choice *int) error
}

// AnswerOutboxWorker consumes the persist-answers queue and writes answers to the store,
// one at a time, in queue order.
type AnswerOutboxWorker struct {
	queue  AnswerQueue
	writer AnswerWriter
	retry  time.Duration
	log    zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewAnswerOutboxWorker creates a new AnswerOutboxWorker.
func NewAnswerOutboxWorker(queue AnswerQueue, writer AnswerWriter, retry time.Duration, log zerolog.Logger) *AnswerOutboxWorker {
	if retry <= 0 {
		retry = 5 * time.Second
	}
	return &AnswerOutboxWorker{
		queue:  queue,
		writer: writer,
		retry:  retry,
		log:    log.With().Str("component", "answer_outbox_worker").Logger(),
	}
}

// Run starts the worker loop in its own goroutine. Stop it with Shutdown.
func (w *AnswerOutboxWorker) Run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		w.Start(ctx)
	}()
}

// Shutdown stops the loop and waits for the queue drain until ctx is done.
// Writes the drain did not reach stay queued for the next start.
func (w *AnswerOutboxWorker) Shutdown(ctx context.Context) error {
	if w.done == nil {
		return nil
	}
	w.cancel()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *AnswerOutboxWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AnswerOutboxWorker) processNext(ctx context.Context) {
	raw, err := w.queue.BlockingPop(ctx, time.Second)
	if err != nil {
		if !errors.Is(err, ErrQueueEmpty) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	payload, ok := w.decode(raw)
	if !ok {
		return
	}

	// The write outlives shutdown of the loop; answer writes carry no deadline.
	if err := w.persist(context.WithoutCancel(ctx), payload); err != nil {
		if !examapi.Retryable(err) {
			w.reject(err, payload)
			return
		}
		w.log.Error().Err(err).
			Str("attempt_id", payload.AttemptID).
			Str("question_id", payload.QuestionID).
			Dur("retry_in", w.retry).
			Msg("Persist error, retrying")
		if err := w.queue.PushFront(context.WithoutCancel(ctx), raw); err != nil {
			w.log.Error().Err(err).Msg("Requeue failed, answer write lost")
		}
		select {
		case <-ctx.Done():
		case <-time.After(w.retry):
		}
	}
}

func (w *AnswerOutboxWorker) decode(raw string) (model.AnswerWrite, bool) {
	var payload model.AnswerWrite
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return payload, false
	}
	return payload, true
}

func (w *AnswerOutboxWorker) persist(ctx context.Context, p model.AnswerWrite) error {
	if err := w.writer.SubmitAnswer(ctx, p.AttemptID, p.QuestionID, p.Choice); err != nil {
		return err
	}
	w.log.Debug().
		Str("attempt_id", p.AttemptID).
		Str("question_id", p.QuestionID).
		Bool("cleared", p.Cleared()).
		Dur("lag", time.Since(p.QueuedAt)).
		Msg("Answer persisted")
	return nil
}

// reject drops a write the store refused, such as an answer to a finished attempt.
// It is logged and never requeued.
func (w *AnswerOutboxWorker) reject(err error, p model.AnswerWrite) {
	w.log.Error().Err(err).
		Str("attempt_id", p.AttemptID).
		Str("question_id", p.QuestionID).
		Msg("Answer rejected by store, dropping")
}

// drain processes all remaining items in the queue before shutdown.
func (w *AnswerOutboxWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.queue.Pop(ctx)
		if err != nil {
			if !errors.Is(err, ErrQueueEmpty) {
				w.log.Error().Err(err).Msg("Drain pop error")
			}
			break
		}

		payload, ok := w.decode(raw)
		if !ok {
			continue
		}

		if err := w.persist(ctx, payload); err != nil {
			if !examapi.Retryable(err) {
				w.reject(err, payload)
				continue
			}
			w.log.Error().Err(err).Msg("Drain persist error")
			_ = w.queue.PushFront(ctx, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
