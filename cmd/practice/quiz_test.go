package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-practice/internal/examapi"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/service"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want command
	}{
		{"n", command{kind: cmdNext}},
		{"", command{kind: cmdNext}},
		{"P", command{kind: cmdPrevious}},
		{"j 3", command{kind: cmdJump, index: 2}},
		{"j", command{kind: cmdUnknown}},
		{"j x", command{kind: cmdUnknown}},
		{"b", command{kind: cmdSelect, index: 1}},
		{"D", command{kind: cmdSelect, index: 3}},
		{"e", command{kind: cmdUnknown}},
		{"c", command{kind: cmdClear}},
		{"f", command{kind: cmdFeedback}},
		{"q", command{kind: cmdFinish}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCommand(tt.line, 4))
		})
	}
}

func TestProgressBar(t *testing.T) {
	bar := progressBar(5, 10, 30)
	assert.Equal(t, "[###########------------] 5/10", bar)
	assert.Len(t, bar, 30)

	assert.Equal(t, "", progressBar(1, 0, 30))
	assert.Contains(t, progressBar(1, 1, 4), "[##########] 1/1")
}

type stubStore struct {
	generated []examapi.GenerateRequest
	finished  int
}

func (s *stubStore) GenerateExam(_ context.Context, req examapi.GenerateRequest) (*model.Exam, error) {
	s.generated = append(s.generated, req)
	return &model.Exam{
		ID:   "exam-1",
		Name: req.Name,
		Type: req.Type,
		Questions: []model.Question{
			{QuestionID: "q1", Text: "Uno", Choices: []string{"si", "no"}, CorrectAnswer: 0},
			{QuestionID: "q2", Text: "Dos", Choices: []string{"si", "no"}, CorrectAnswer: 1},
		},
	}, nil
}

func (s *stubStore) StartAttempt(context.Context, string) (*model.Attempt, error) {
	return &model.Attempt{ID: "att-1", ExamID: "exam-1"}, nil
}

func (s *stubStore) GetResults(context.Context, string) (*model.AttemptResults, error) {
	return nil, errors.New("not used")
}

func (s *stubStore) GetExam(context.Context, string) (*model.Exam, error) {
	return nil, errors.New("not used")
}

func (s *stubStore) FinishAttempt(_ context.Context, attemptID string) (*model.FinishResult, error) {
	s.finished++
	return &model.FinishResult{AttemptID: attemptID, Score: 35}, nil
}

func (s *stubStore) SubmitAnswer(context.Context, string, string, *int) error { return nil }

func (s *stubStore) ListThemes(context.Context) ([]model.Theme, error) {
	return []model.Theme{
		{ID: "t1", Code: "G1", Name: "Constitución", Part: model.ThemePartGeneral, Order: 1},
		{ID: "t2", Code: "E1", Name: "Tributos", Part: model.ThemePartSpecific, Order: 1},
	}, nil
}

func newServices(store *stubStore) (*service.SpecService, *service.ThemeService, *service.ExamSessionService) {
	log := zerolog.Nop()
	answerSync := service.NewAnswerSynchronizer(service.NewDirectDispatcher(store, log))
	sessions := service.NewExamSessionService(store, answerSync, service.NewFinalizer(store, log), log)
	themes := service.NewThemeService(store, nil, 0, log)
	return service.NewSpecService(store, themes, sessions, log), themes, sessions
}

func TestBuildAndSubmitPromptsUntilValid(t *testing.T) {
	store := &stubStore{}
	specs, themes, _ := newServices(store)

	// Type 1 (topic), no themes, count 3, then theme 2 and a valid count.
	in := bufio.NewReader(strings.NewReader("1\n\n3\n2\n8\n"))
	var out bytes.Buffer
	sess, err := buildAndSubmit(context.Background(), in, &out, specs, themes, presets{})
	require.NoError(t, err)
	assert.Equal(t, "att-1", sess.AttemptID())

	require.Len(t, store.generated, 1)
	assert.Equal(t, []string{"t2"}, store.generated[0].ThemeIDs)
	assert.Equal(t, 8, store.generated[0].QuestionCount)
	assert.Contains(t, out.String(), "select at least one theme")
}

func TestBuildAndSubmitUsesPresets(t *testing.T) {
	store := &stubStore{}
	specs, themes, _ := newServices(store)

	in := bufio.NewReader(strings.NewReader(""))
	pre := presets{examType: model.ExamTypeTheoryMixed, count: 12, part: model.ThemePartGeneral}
	_, err := buildAndSubmit(context.Background(), in, io.Discard, specs, themes, pre)
	require.NoError(t, err)

	require.Len(t, store.generated, 1)
	assert.Equal(t, model.ExamTypeTheoryMixed, store.generated[0].Type)
	assert.Equal(t, []string{"t1"}, store.generated[0].ThemeIDs)
	assert.Equal(t, 12, store.generated[0].QuestionCount)
}

func TestQuizLoopAnswersAndFinishes(t *testing.T) {
	store := &stubStore{}
	specs, themes, sessions := newServices(store)
	sess, err := buildAndSubmit(context.Background(), bufio.NewReader(strings.NewReader("")), io.Discard, specs, themes,
		presets{examType: model.ExamTypeSimulacro})
	require.NoError(t, err)

	// Answer q1, feedback on, answer q2 wrong, decline then confirm finish.
	script := "a\nf\nn\na\nq\nn\nq\ny\n"
	var out bytes.Buffer
	q := &quiz{session: sess, sessions: sessions, in: bufio.NewReader(strings.NewReader(script)), out: &out, width: 40}
	require.NoError(t, q.run(context.Background()))

	assert.Equal(t, 1, store.finished)
	assert.Equal(t, model.SessionStateFinished, sess.State())
	assert.Contains(t, out.String(), "Wrong. Correct answer was B. no")
	assert.Contains(t, out.String(), "Final score: 35.00")
}
