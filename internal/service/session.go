package service

import (
	"context"
	"sync"

	"github.com/stemsi/exstem-practice/internal/model"
)

// Session is the state machine of one exam attempt.
//
//	LOADING -> READY -> FINISHING -> FINISHED
//	LOADING -> ERROR, FINISHING -> ERROR
//
// Answers, feedback and the cursor are owned here; collaborators get values and
// return changes. All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	attemptID string
	exam      *model.Exam
	state     model.SessionState
	current   int
	answers   map[string]int
	feedback  map[string]model.FeedbackRecord
	instant   bool
	result    *model.FinishResult
	err       error
	loaded    chan struct{} // closed when LOADING ends

	answerSync *AnswerSynchronizer
}

// NewSession creates a session in LOADING for attemptID.
func NewSession(attemptID string, answerSync *AnswerSynchronizer) *Session {
	return &Session{
		attemptID:  attemptID,
		state:      model.SessionStateLoading,
		answers:    make(map[string]int),
		feedback:   make(map[string]model.FeedbackRecord),
		loaded:     make(chan struct{}),
		answerSync: answerSync,
	}
}

// AttemptID returns the remote attempt this session drives.
func (s *Session) AttemptID() string {
	return s.attemptID
}

// State returns the current lifecycle state.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ── Navigation ───────────────────────────────────────────────────────

// GoNext advances the cursor, staying on the last question at the end.
func (s *Session) GoNext() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != model.SessionStateReady {
		return ErrSessionNotReady
	}
	if s.current < len(s.exam.Questions)-1 {
		s.current++
	}
	return nil
}

// GoPrevious moves the cursor back, staying on the first question at the start.
func (s *Session) GoPrevious() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != model.SessionStateReady {
		return ErrSessionNotReady
	}
	if s.current > 0 {
		s.current--
	}
	return nil
}

// JumpTo moves the cursor to index, answered or not.
func (s *Session) JumpTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != model.SessionStateReady {
		return ErrSessionNotReady
	}
	if index < 0 || index >= len(s.exam.Questions) {
		return ErrIndexOutOfRange
	}
	s.current = index
	return nil
}

// CurrentIndex returns the zero-based cursor position.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Progress is (currentIndex+1)/N, or 0 before an exam is loaded.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress()
}

func (s *Session) progress() float64 {
	if s.exam == nil || len(s.exam.Questions) == 0 {
		return 0
	}
	return float64(s.current+1) / float64(len(s.exam.Questions))
}

// AnsweredCount is the number of answered questions.
func (s *Session) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// ── Answers & feedback ───────────────────────────────────────────────

// ToggleInstantFeedback rebuilds feedback for every answer when enabled and drops
// all feedback when disabled. Answers are left alone.
func (s *Session) ToggleInstantFeedback(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != model.SessionStateReady {
		return ErrSessionNotReady
	}
	s.instant = enabled
	if enabled {
		s.feedback = ComputeAllFeedback(s.exam, s.answers)
	} else {
		s.feedback = make(map[string]model.FeedbackRecord)
	}
	return nil
}

// SelectAnswer records choice for questionID, or clears it if it was already selected.
func (s *Session) SelectAnswer(questionID string, choice int) (AnswerChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.question(questionID)
	if err != nil {
		return AnswerChange{}, err
	}

	var current *int
	if held, ok := s.answers[questionID]; ok {
		current = &held
	}
	change, err := s.answerSync.SelectAnswer(q, current, choice, s.instant)
	if err != nil {
		return AnswerChange{}, err
	}
	s.apply(change)
	s.answerSync.Persist(s.attemptID, change)
	return change, nil
}

// ClearAnswer removes the answer for questionID. Clearing twice is a local no-op
// that still reaches the store.
func (s *Session) ClearAnswer(questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.question(questionID)
	if err != nil {
		return err
	}
	change := s.answerSync.ClearAnswer(q)
	s.apply(change)
	s.answerSync.Persist(s.attemptID, change)
	return nil
}

func (s *Session) question(questionID string) (model.Question, error) {
	if s.state != model.SessionStateReady {
		return model.Question{}, ErrSessionNotReady
	}
	idx := s.exam.QuestionIndex(questionID)
	if idx < 0 {
		return model.Question{}, ErrUnknownQuestion
	}
	return s.exam.Questions[idx], nil
}

func (s *Session) apply(change AnswerChange) {
	if change.Cleared() {
		delete(s.answers, change.QuestionID)
		delete(s.feedback, change.QuestionID)
		return
	}
	s.answers[change.QuestionID] = *change.Choice
	if change.Feedback != nil {
		s.feedback[change.QuestionID] = *change.Feedback
	} else {
		delete(s.feedback, change.QuestionID)
	}
}

// Answer returns the held choice for questionID.
func (s *Session) Answer(questionID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	choice, ok := s.answers[questionID]
	return choice, ok
}

// Feedback returns the feedback record for questionID, if instant feedback produced one.
func (s *Session) Feedback(questionID string) (model.FeedbackRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fb, ok := s.feedback[questionID]
	return fb, ok
}

// Snapshot returns a copy of the session safe to hand out.
func (s *Session) Snapshot() model.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := model.SessionSnapshot{
		AttemptID:              s.attemptID,
		State:                  s.state,
		CurrentIndex:           s.current,
		Answers:                make(map[string]int, len(s.answers)),
		Feedback:               make(map[string]model.FeedbackRecord, len(s.feedback)),
		InstantFeedbackEnabled: s.instant,
		Progress:               s.progress(),
		AnsweredCount:          len(s.answers),
		Result:                 s.result,
	}
	for k, v := range s.answers {
		snap.Answers[k] = v
	}
	for k, v := range s.feedback {
		snap.Feedback[k] = v
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	if s.exam != nil {
		snap.ExamID = s.exam.ID
		snap.ExamName = s.exam.Name
		snap.ExamType = s.exam.Type
		snap.QuestionCount = len(s.exam.Questions)
		if s.current < len(s.exam.Questions) {
			q := s.exam.Questions[s.current].ForStudent()
			snap.CurrentQuestion = &q
		}
		if s.instant {
			score := ScoreAnswers(s.exam, s.answers)
			snap.Provisional = &score
		}
	}
	return snap
}

// ── Lifecycle transitions ────────────────────────────────────────────

// ready installs the exam and any answers already stored remotely.
func (s *Session) ready(exam *model.Exam, answers map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != model.SessionStateLoading {
		return
	}
	s.exam = exam
	for qid, choice := range answers {
		idx := exam.QuestionIndex(qid)
		if idx < 0 || !exam.Questions[idx].ValidChoice(choice) {
			continue
		}
		s.answers[qid] = choice
	}
	s.current = 0
	s.state = model.SessionStateReady
	close(s.loaded)
}

// awaitLoad blocks until the session has left LOADING and returns the load error, if any.
func (s *Session) awaitLoad(ctx context.Context) error {
	select {
	case <-s.loaded:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == model.SessionStateError {
		return s.err
	}
	return nil
}

// fail moves a loading or finishing session to ERROR.
func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != model.SessionStateLoading && s.state != model.SessionStateFinishing {
		return
	}
	if s.state == model.SessionStateLoading {
		close(s.loaded)
	}
	s.err = err
	s.state = model.SessionStateError
}

// beginFinishing claims the session for a finish call.
func (s *Session) beginFinishing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case model.SessionStateReady:
		s.state = model.SessionStateFinishing
		return nil
	case model.SessionStateFinishing:
		return ErrFinishInProgress
	default:
		return ErrSessionNotReady
	}
}

// abortFinishing returns a session whose finish call failed to READY so it can be retried.
func (s *Session) abortFinishing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == model.SessionStateFinishing {
		s.state = model.SessionStateReady
	}
}

// finished stores the result and drops local answers and feedback.
func (s *Session) finished(result *model.FinishResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != model.SessionStateFinishing {
		return
	}
	s.result = result
	s.state = model.SessionStateFinished
	s.instant = false
	s.answers = make(map[string]int)
	s.feedback = make(map[string]model.FeedbackRecord)
}

// finishedResult returns the stored result once the session is FINISHED.
func (s *Session) finishedResult() (*model.FinishResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.state == model.SessionStateFinished
}
