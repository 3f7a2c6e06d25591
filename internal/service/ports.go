package service

import (
	"context"

	"github.com/stemsi/exstem-practice/internal/examapi"
	"github.com/stemsi/exstem-practice/internal/model"
)

// ExamGenerator creates exams and opens attempts on the remote store.
type ExamGenerator interface {
	GenerateExam(ctx context.Context, req examapi.GenerateRequest) (*model.Exam, error)
	StartAttempt(ctx context.Context, examID string) (*model.Attempt, error)
}

// AttemptStore reads and closes attempts on the remote store.
type AttemptStore interface {
	GetResults(ctx context.Context, attemptID string) (*model.AttemptResults, error)
	GetExam(ctx context.Context, examID string) (*model.Exam, error)
	FinishAttempt(ctx context.Context, attemptID string) (*model.FinishResult, error)
}

// AnswerWriter persists a single answer. A nil choice clears the stored answer.
type AnswerWriter interface {
	SubmitAnswer(ctx context.Context, attemptID, questionID string, choice *int) error
}

// ThemeDirectory lists the read-only theme catalogue.
type ThemeDirectory interface {
	ListThemes(ctx context.Context) ([]model.Theme, error)
}

var (
	_ ExamGenerator  = (*examapi.Client)(nil)
	_ AttemptStore   = (*examapi.Client)(nil)
	_ AnswerWriter   = (*examapi.Client)(nil)
	_ ThemeDirectory = (*examapi.Client)(nil)
)
