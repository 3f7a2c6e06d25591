package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/examapi"
	"github.com/stemsi/exstem-practice/internal/model"
)

// fakeStore stands in for the remote exam store.
type fakeStore struct {
	mu sync.Mutex

	exam      *model.Exam
	results   *model.AttemptResults
	finish    *model.FinishResult
	themes    []model.Theme
	nextID    int
	generated []examapi.GenerateRequest
	started   []string
	finished  []string
	writes    []model.AnswerWrite

	generateErr error
	startErr    error
	resultsErr  error
	examErr     error
	finishErr   error
	themesErr   error
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.generated) + len(f.started)
}

func (f *fakeStore) GenerateExam(_ context.Context, req examapi.GenerateRequest) (*model.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, req)
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	if f.exam != nil {
		return f.exam, nil
	}
	return threeQuestionExam(), nil
}

func (f *fakeStore) StartAttempt(_ context.Context, examID string) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, examID)
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.nextID++
	return &model.Attempt{ID: fmt.Sprintf("att-%d", f.nextID), ExamID: examID}, nil
}

func (f *fakeStore) GetResults(_ context.Context, attemptID string) (*model.AttemptResults, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resultsErr != nil {
		return nil, f.resultsErr
	}
	if f.results != nil {
		return f.results, nil
	}
	return &model.AttemptResults{AttemptID: attemptID, ExamID: "exam-1", Answers: map[string]int{}}, nil
}

func (f *fakeStore) GetExam(_ context.Context, _ string) (*model.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.examErr != nil {
		return nil, f.examErr
	}
	if f.exam != nil {
		return f.exam, nil
	}
	return threeQuestionExam(), nil
}

func (f *fakeStore) FinishAttempt(_ context.Context, attemptID string) (*model.FinishResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, attemptID)
	if f.finishErr != nil {
		return nil, f.finishErr
	}
	if f.finish != nil {
		return f.finish, nil
	}
	return &model.FinishResult{AttemptID: attemptID, Score: 42.5}, nil
}

func (f *fakeStore) SubmitAnswer(_ context.Context, attemptID, questionID string, choice *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, model.AnswerWrite{AttemptID: attemptID, QuestionID: questionID, Choice: choice})
	return nil
}

func (f *fakeStore) ListThemes(_ context.Context) ([]model.Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.themesErr != nil {
		return nil, f.themesErr
	}
	return append([]model.Theme(nil), f.themes...), nil
}

// recordingDispatcher captures writes synchronously.
type recordingDispatcher struct {
	mu     sync.Mutex
	writes []model.AnswerWrite
}

func (d *recordingDispatcher) Dispatch(w model.AnswerWrite) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = append(d.writes, w)
}

func (d *recordingDispatcher) Close(context.Context) error { return nil }

func (d *recordingDispatcher) all() []model.AnswerWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.AnswerWrite(nil), d.writes...)
}

func (d *recordingDispatcher) last() model.AnswerWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes[len(d.writes)-1]
}

func threeQuestionExam() *model.Exam {
	return &model.Exam{
		ID:   "exam-1",
		Name: "Examen por Tema 01/03/2025 10:00",
		Type: model.ExamTypeTheoryTopic,
		Questions: []model.Question{
			{QuestionID: "q1", Text: "Uno", Choices: []string{"a", "b", "c", "d"}, CorrectAnswer: 1},
			{QuestionID: "q2", Text: "Dos", Choices: []string{"a", "b", "c", "d"}, CorrectAnswer: 0},
			{QuestionID: "q3", Text: "Tres", Choices: []string{"a", "b", "c", "d"}, CorrectAnswer: 3},
		},
	}
}

func readySession(t interface{ Helper() }, exam *model.Exam) (*Session, *recordingDispatcher) {
	t.Helper()
	d := &recordingDispatcher{}
	s := NewSession("att-1", NewAnswerSynchronizer(d))
	s.ready(exam, nil)
	return s, d
}

func fixedClock() time.Time {
	return time.Date(2025, time.March, 1, 9, 5, 0, 0, time.UTC)
}

var nopLog = zerolog.Nop()

func intPtr(i int) *int { return &i }
