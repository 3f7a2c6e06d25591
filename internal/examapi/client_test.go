package examapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-practice/internal/model"
)

func TestGenerateExamSendsSpecification(t *testing.T) {
	var got GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/exams/generate", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(model.Exam{
			ID:   "exam-1",
			Name: got.Name,
			Type: got.Type,
			Questions: []model.Question{
				{QuestionID: "q1", Text: "¿?", Choices: []string{"a", "b"}, CorrectAnswer: 1},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithToken("secret"))
	exam, err := c.GenerateExam(context.Background(), GenerateRequest{
		Name:          "Simulacro",
		Type:          model.ExamTypeSimulacro,
		QuestionCount: 40,
	})
	require.NoError(t, err)

	assert.Equal(t, "exam-1", exam.ID)
	assert.Len(t, exam.Questions, 1)
	assert.Equal(t, []string{}, got.ThemeIDs, "nil theme set must be sent as an empty list")
	assert.Equal(t, 40, got.QuestionCount)
}

func TestSubmitAnswerEncodesClearAsNull(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/attempts/att-1/answers", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"Answer recorded"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.SubmitAnswer(context.Background(), "att-1", "q2", nil))

	value, present := raw["selected_answer"]
	assert.True(t, present, "selected_answer must be sent")
	assert.Nil(t, value)
	assert.Equal(t, "q2", raw["question_id"])
}

func TestGetResultsDropsNullAnswers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"att-1","exam_id":"exam-1","answers":{"q1":2,"q2":null,"q3":0}}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).GetResults(context.Background(), "att-1")
	require.NoError(t, err)

	assert.Equal(t, "exam-1", res.ExamID)
	assert.Equal(t, map[string]int{"q1": 2, "q3": 0}, res.Answers)
	assert.False(t, res.Finished())
}

func TestRemoteErrorCarriesDetailAndOperation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Not enough questions available. Found 3, requested 10"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GenerateExam(context.Background(), GenerateRequest{Type: model.ExamTypeTheoryTopic})
	require.Error(t, err)

	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "generate exam", remoteErr.Op)
	assert.Equal(t, http.StatusBadRequest, remoteErr.StatusCode)
	assert.Contains(t, err.Error(), "Not enough questions")
}

func TestTransportFailureIsServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).FinishAttempt(context.Background(), "att-1")
	require.Error(t, err)

	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "finish attempt", remoteErr.Op)
	assert.True(t, errors.Is(err, ErrServiceUnavailable))
}

func TestStartAttemptFillsExamID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/exams/exam-9/attempts", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"att-9"}`))
	}))
	defer srv.Close()

	attempt, err := NewClient(srv.URL).StartAttempt(context.Background(), "exam-9")
	require.NoError(t, err)
	assert.Equal(t, "att-9", attempt.ID)
	assert.Equal(t, "exam-9", attempt.ExamID)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", &RemoteError{Op: "submit answer", Err: ErrServiceUnavailable}, true},
		{"server error", &RemoteError{StatusCode: http.StatusInternalServerError}, true},
		{"timeout", &RemoteError{StatusCode: http.StatusRequestTimeout}, true},
		{"throttled", &RemoteError{StatusCode: http.StatusTooManyRequests}, true},
		{"finished attempt", &RemoteError{StatusCode: http.StatusBadRequest, Message: "Attempt already finished"}, false},
		{"unknown attempt", &RemoteError{StatusCode: http.StatusNotFound}, false},
		{"wrapped rejection", fmt.Errorf("persist: %w", &RemoteError{StatusCode: http.StatusConflict}), false},
		{"plain error", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}
