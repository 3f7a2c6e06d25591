package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/model"
)

// AnswerChange is the local effect of a select or clear, to be applied by the session.
// A nil Choice means the question became unanswered.
type AnswerChange struct {
	QuestionID string                `json:"question_id"`
	Choice     *int                  `json:"choice"`
	Feedback   *model.FeedbackRecord `json:"feedback,omitempty"`
}

// Cleared reports whether the change removes the answer.
func (c AnswerChange) Cleared() bool {
	return c.Choice == nil
}

// AnswerDispatcher hands answer writes to the remote store without blocking the caller.
type AnswerDispatcher interface {
	Dispatch(w model.AnswerWrite)
	Close(ctx context.Context) error
}

// AnswerSynchronizer turns user answer actions into local changes plus fire-and-forget writes.
type AnswerSynchronizer struct {
	dispatcher AnswerDispatcher
	now        func() time.Time
}

// NewAnswerSynchronizer creates a new AnswerSynchronizer.
func NewAnswerSynchronizer(dispatcher AnswerDispatcher) *AnswerSynchronizer {
	return &AnswerSynchronizer{dispatcher: dispatcher, now: time.Now}
}

// SelectAnswer works out the change for choosing choice on q. Selecting the choice
// already held clears it instead. Feedback is computed here, before any write exists.
// Nothing is sent until the caller has applied the change and calls Persist.
func (s *AnswerSynchronizer) SelectAnswer(q model.Question, current *int, choice int, instantFeedback bool) (AnswerChange, error) {
	if !q.ValidChoice(choice) {
		return AnswerChange{}, ErrInvalidChoice
	}
	if current != nil && *current == choice {
		return s.ClearAnswer(q), nil
	}

	selected := choice
	change := AnswerChange{QuestionID: q.QuestionID, Choice: &selected}
	if instantFeedback {
		change.Feedback = ComputeFeedback(q, &selected)
	}
	return change, nil
}

// ClearAnswer is the change that removes the answer for q. It is produced even when q
// is already unanswered, so the "no selection" write still goes out.
func (s *AnswerSynchronizer) ClearAnswer(q model.Question) AnswerChange {
	return AnswerChange{QuestionID: q.QuestionID}
}

// Persist hands change to the dispatcher. It never waits for the store.
func (s *AnswerSynchronizer) Persist(attemptID string, change AnswerChange) {
	s.dispatcher.Dispatch(model.AnswerWrite{
		AttemptID:  attemptID,
		QuestionID: change.QuestionID,
		Choice:     change.Choice,
		QueuedAt:   s.now(),
	})
}

// DirectDispatcher writes each answer from its own goroutine. Writes to the same
// question are not ordered against each other and carry no timeout.
type DirectDispatcher struct {
	writer AnswerWriter
	log    zerolog.Logger
	wg     sync.WaitGroup
}

// NewDirectDispatcher creates a new DirectDispatcher.
func NewDirectDispatcher(writer AnswerWriter, log zerolog.Logger) *DirectDispatcher {
	return &DirectDispatcher{
		writer: writer,
		log:    log.With().Str("component", "answer_dispatch").Logger(),
	}
}

// Dispatch starts the write and returns immediately. Failures are logged only.
func (d *DirectDispatcher) Dispatch(w model.AnswerWrite) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		// Not tied to any request: navigating away must not cancel the write.
		if err := d.writer.SubmitAnswer(context.Background(), w.AttemptID, w.QuestionID, w.Choice); err != nil {
			logWrite(d.log.Error().Err(err), w).Msg("Answer persist failed")
			return
		}
		logWrite(d.log.Debug(), w).Msg("Answer persisted")
	}()
}

// Close waits for in-flight writes until ctx is done.
func (d *DirectDispatcher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AnswerQueue is a FIFO of answer writes shared with the outbox worker.
type AnswerQueue interface {
	Push(ctx context.Context, w model.AnswerWrite) error
}

const (
	outboxBuffer      = 1024
	outboxPushTimeout = 2 * time.Second
)

// OutboxDispatcher appends writes to a queue consumed by a single worker, so writes
// for one question reach the store in the order they were made.
//
// Dispatch only hands the write to a buffered channel; one goroutine pushes to the
// queue in dispatch order. Writes that cannot be queued go through the fallback.
type OutboxDispatcher struct {
	queue       AnswerQueue
	fallback    *DirectDispatcher
	log         zerolog.Logger
	pushTimeout time.Duration

	mu      sync.RWMutex
	closed  bool
	pending chan model.AnswerWrite
	done    chan struct{}
}

// NewOutboxDispatcher creates a new OutboxDispatcher and starts its pusher.
func NewOutboxDispatcher(queue AnswerQueue, fallback *DirectDispatcher, log zerolog.Logger) *OutboxDispatcher {
	d := &OutboxDispatcher{
		queue:       queue,
		fallback:    fallback,
		log:         log.With().Str("component", "answer_outbox").Logger(),
		pushTimeout: outboxPushTimeout,
		pending:     make(chan model.AnswerWrite, outboxBuffer),
		done:        make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch queues w without blocking.
func (d *OutboxDispatcher) Dispatch(w model.AnswerWrite) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.fallback.Dispatch(w)
		return
	}
	select {
	case d.pending <- w:
	default:
		logWrite(d.log.Warn(), w).Msg("Outbox buffer full, writing directly")
		d.fallback.Dispatch(w)
	}
}

func (d *OutboxDispatcher) run() {
	defer close(d.done)
	for w := range d.pending {
		ctx, cancel := context.WithTimeout(context.Background(), d.pushTimeout)
		err := d.queue.Push(ctx, w)
		cancel()
		if err != nil {
			logWrite(d.log.Warn().Err(err), w).Msg("Outbox push failed, writing directly")
			d.fallback.Dispatch(w)
		}
	}
}

// Close flushes buffered writes into the queue, then waits for fallback writes.
// The queue itself is drained by the worker.
func (d *OutboxDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.pending)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return d.fallback.Close(ctx)
}

func logWrite(e *zerolog.Event, w model.AnswerWrite) *zerolog.Event {
	e = e.Str("attempt_id", w.AttemptID).Str("question_id", w.QuestionID)
	if w.Choice == nil {
		return e.Bool("cleared", true)
	}
	return e.Int("choice", *w.Choice)
}
