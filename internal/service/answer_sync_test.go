package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-practice/internal/model"
)

// blockingWriter holds every write until release is closed.
type blockingWriter struct {
	mu      sync.Mutex
	release chan struct{}
	writes  []model.AnswerWrite
	err     error
}

func (w *blockingWriter) SubmitAnswer(_ context.Context, attemptID, questionID string, choice *int) error {
	<-w.release
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, model.AnswerWrite{AttemptID: attemptID, QuestionID: questionID, Choice: choice})
	return w.err
}

func (w *blockingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.writes)
}

func TestDirectDispatchDoesNotWaitForStore(t *testing.T) {
	writer := &blockingWriter{release: make(chan struct{})}
	d := NewDirectDispatcher(writer, nopLog)
	s := NewSession("att-1", NewAnswerSynchronizer(d))
	s.ready(threeQuestionExam(), nil)
	require.NoError(t, s.ToggleInstantFeedback(true))

	done := make(chan struct{})
	go func() {
		_, _ = s.SelectAnswer("q1", 1)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SelectAnswer blocked on the remote write")
	}
	fb, ok := s.Feedback("q1")
	require.True(t, ok, "feedback is available before the write lands")
	assert.Equal(t, model.FeedbackCorrect, fb.Status)
	assert.Zero(t, writer.count())

	close(writer.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, 1, writer.count())
}

func TestDirectDispatchSwallowsErrors(t *testing.T) {
	writer := &blockingWriter{release: make(chan struct{}), err: errors.New("store down")}
	close(writer.release)
	d := NewDirectDispatcher(writer, nopLog)
	s := NewSession("att-1", NewAnswerSynchronizer(d))
	s.ready(threeQuestionExam(), nil)

	_, err := s.SelectAnswer("q2", 0)
	require.NoError(t, err)
	require.NoError(t, d.Close(context.Background()))

	choice, ok := s.Answer("q2")
	require.True(t, ok, "local state keeps the answer after a failed write")
	assert.Equal(t, 0, choice)
}

func TestDirectDispatcherCloseHonoursContext(t *testing.T) {
	writer := &blockingWriter{release: make(chan struct{})}
	d := NewDirectDispatcher(writer, nopLog)
	d.Dispatch(model.AnswerWrite{AttemptID: "att-1", QuestionID: "q1"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
	close(writer.release)
}

type fakeQueue struct {
	mu    sync.Mutex
	items []model.AnswerWrite
	err   error
}

func (q *fakeQueue) Push(_ context.Context, w model.AnswerWrite) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.items = append(q.items, w)
	return nil
}

func TestOutboxDispatcherQueuesInOrder(t *testing.T) {
	queue := &fakeQueue{}
	store := &fakeStore{}
	d := NewOutboxDispatcher(queue, NewDirectDispatcher(store, nopLog), nopLog)
	s := NewSession("att-1", NewAnswerSynchronizer(d))
	s.ready(threeQuestionExam(), nil)

	_, _ = s.SelectAnswer("q1", 0)
	_, _ = s.SelectAnswer("q1", 2)
	_, _ = s.SelectAnswer("q1", 2)
	require.NoError(t, d.Close(context.Background()))

	require.Len(t, queue.items, 3)
	assert.Equal(t, 0, *queue.items[0].Choice)
	assert.Equal(t, 2, *queue.items[1].Choice)
	assert.True(t, queue.items[2].Cleared())
	assert.Empty(t, store.writes)
}

// slowQueue stalls every push until release is closed.
type slowQueue struct {
	fakeQueue
	release chan struct{}
}

func (q *slowQueue) Push(ctx context.Context, w model.AnswerWrite) error {
	select {
	case <-q.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return q.fakeQueue.Push(ctx, w)
}

func TestOutboxDispatchDoesNotHoldTheSession(t *testing.T) {
	queue := &slowQueue{release: make(chan struct{})}
	d := NewOutboxDispatcher(queue, NewDirectDispatcher(&fakeStore{}, nopLog), nopLog)
	s := NewSession("att-1", NewAnswerSynchronizer(d))
	s.ready(threeQuestionExam(), nil)

	done := make(chan struct{})
	go func() {
		_, _ = s.SelectAnswer("q1", 1)
		_ = s.ClearAnswer("q2")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("answer actions waited on the queue push")
	}
	choice, ok := s.Answer("q1")
	require.True(t, ok, "local state is updated before the push")
	assert.Equal(t, 1, choice)

	close(queue.release)
	require.NoError(t, d.Close(context.Background()))
	require.Len(t, queue.items, 2)
	assert.Equal(t, "q1", queue.items[0].QuestionID)
	assert.Equal(t, "q2", queue.items[1].QuestionID)
}

func TestOutboxPushIsBounded(t *testing.T) {
	queue := &slowQueue{release: make(chan struct{})}
	store := &fakeStore{}
	d := NewOutboxDispatcher(queue, NewDirectDispatcher(store, nopLog), nopLog)
	d.pushTimeout = 10 * time.Millisecond

	d.Dispatch(model.AnswerWrite{AttemptID: "att-1", QuestionID: "q1", Choice: intPtr(0)})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	assert.Empty(t, queue.items)
	require.Len(t, store.writes, 1, "a stalled push falls back to a direct write")
}

func TestOutboxDispatchAfterCloseWritesDirectly(t *testing.T) {
	queue := &fakeQueue{}
	store := &fakeStore{}
	d := NewOutboxDispatcher(queue, NewDirectDispatcher(store, nopLog), nopLog)
	require.NoError(t, d.Close(context.Background()))

	d.Dispatch(model.AnswerWrite{AttemptID: "att-1", QuestionID: "q2"})
	require.NoError(t, d.Close(context.Background()))

	assert.Empty(t, queue.items)
	assert.Len(t, store.writes, 1)
}

func TestOutboxDispatcherFallsBackToDirectWrite(t *testing.T) {
	queue := &fakeQueue{err: errors.New("redis down")}
	store := &fakeStore{}
	d := NewOutboxDispatcher(queue, NewDirectDispatcher(store, nopLog), nopLog)

	d.Dispatch(model.AnswerWrite{AttemptID: "att-1", QuestionID: "q3", Choice: intPtr(1)})
	require.NoError(t, d.Close(context.Background()))

	require.Len(t, store.writes, 1)
	assert.Equal(t, "q3", store.writes[0].QuestionID)
}
