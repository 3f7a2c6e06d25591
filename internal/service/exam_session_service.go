package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/model"
)

// ExamSessionService keeps the live sessions of this process, keyed by attempt id.
type ExamSessionService struct {
	store      AttemptStore
	answerSync *AnswerSynchronizer
	finalizer  *Finalizer
	log        zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	store AttemptStore,
	answerSync *AnswerSynchronizer,
	finalizer *Finalizer,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		store:      store,
		answerSync: answerSync,
		finalizer:  finalizer,
		log:        log.With().Str("component", "exam_session_service").Logger(),
		sessions:   make(map[string]*Session),
	}
}

// Adopt starts a READY session for a freshly generated exam and attempt.
func (s *ExamSessionService) Adopt(handle *AttemptHandle) (*Session, error) {
	if handle == nil || handle.Exam == nil || handle.Attempt == nil {
		return nil, fmt.Errorf("adopt session: incomplete attempt handle")
	}
	if len(handle.Exam.Questions) == 0 {
		return nil, ErrEmptyExam
	}

	sess := NewSession(handle.Attempt.ID, s.answerSync)
	sess.ready(handle.Exam, nil)

	s.mu.Lock()
	s.sessions[sess.AttemptID()] = sess
	s.mu.Unlock()

	s.log.Info().
		Str("attempt_id", sess.AttemptID()).
		Str("exam_id", handle.Exam.ID).
		Int("questions", len(handle.Exam.Questions)).
		Msg("Session adopted")
	return sess, nil
}

// Open resumes attemptID from the store, seeding answers from the remote mapping.
// A live session for the attempt is returned once its load has finished. On failure
// the returned session is in ERROR and is not kept.
func (s *ExamSessionService) Open(ctx context.Context, attemptID string) (*Session, error) {
	s.mu.Lock()
	if sess, ok := s.sessions[attemptID]; ok {
		s.mu.Unlock()
		if err := sess.awaitLoad(ctx); err != nil {
			return sess, err
		}
		return sess, nil
	}
	sess := NewSession(attemptID, s.answerSync)
	s.sessions[attemptID] = sess
	s.mu.Unlock()

	if err := s.load(ctx, sess); err != nil {
		sess.fail(err)
		s.forget(attemptID, sess)
		s.log.Warn().Err(err).Str("attempt_id", attemptID).Msg("Session failed to load")
		return sess, err
	}

	s.log.Info().
		Str("attempt_id", attemptID).
		Int("answered", sess.AnsweredCount()).
		Msg("Session resumed")
	return sess, nil
}

func (s *ExamSessionService) load(ctx context.Context, sess *Session) error {
	results, err := s.store.GetResults(ctx, sess.AttemptID())
	if err != nil {
		return err
	}
	if results.Finished() {
		return ErrAttemptFinished
	}

	exam, err := s.store.GetExam(ctx, results.ExamID)
	if err != nil {
		return err
	}
	if len(exam.Questions) == 0 {
		return ErrEmptyExam
	}

	sess.ready(exam, results.Answers)
	return nil
}

// Get returns the live session for attemptID.
func (s *ExamSessionService) Get(attemptID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[attemptID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Finish finalizes the attempt. The session is dropped once it is FINISHED or ERROR;
// the result is only returned to this caller.
func (s *ExamSessionService) Finish(ctx context.Context, attemptID string) (*model.FinishResult, error) {
	sess, err := s.Get(attemptID)
	if err != nil {
		return nil, err
	}
	return s.FinishSession(ctx, sess)
}

// FinishSession finalizes a session the caller already holds.
func (s *ExamSessionService) FinishSession(ctx context.Context, sess *Session) (*model.FinishResult, error) {
	result, err := s.finalizer.Finish(ctx, sess)
	if sess.State().Terminal() {
		s.forget(sess.AttemptID(), sess)
	}
	return result, err
}

// Active returns the number of live sessions.
func (s *ExamSessionService) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *ExamSessionService) forget(attemptID string, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[attemptID] == sess {
		delete(s.sessions, attemptID)
	}
}
