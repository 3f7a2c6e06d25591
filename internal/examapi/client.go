package examapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stemsi/exstem-practice/internal/model"
)

// ErrServiceUnavailable wraps transport-level failures (connection refused, timeouts).
var ErrServiceUnavailable = errors.New("exam service unavailable")

// RemoteError is any failure of a call to the remote exam store.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	msg := strings.TrimSpace(e.Message)
	switch {
	case msg != "":
	case e.Err != nil:
		msg = e.Err.Error()
	case e.StatusCode != 0:
		msg = fmt.Sprintf("request failed with status %d", e.StatusCode)
	default:
		msg = "request failed"
	}
	return e.Op + ": " + msg
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the store answered 404.
func (e *RemoteError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Rejected reports a 4xx the store will keep giving for the same request.
// 408 and 429 are load signals, not rejections.
func (e *RemoteError) Rejected() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return false
	default:
		return e.StatusCode >= 400 && e.StatusCode < 500
	}
}

// Retryable reports whether repeating the call might succeed: transport failures,
// 5xx, 408 and 429 are, rejections are not.
func Retryable(err error) bool {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return !remoteErr.Rejected()
	}
	return err != nil
}

// GenerateRequest is the body of the generation call.
type GenerateRequest struct {
	Name          string         `json:"name"`
	Type          model.ExamType `json:"type"`
	ThemeIDs      []string       `json:"theme_ids"`
	QuestionCount int            `json:"question_count"`
}

// Client talks JSON over HTTP to the remote exam store.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithTimeout bounds every call except SubmitAnswer.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8001"
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type answerRequest struct {
	QuestionID     string `json:"question_id"`
	SelectedAnswer *int   `json:"selected_answer"`
}

type resultsResponse struct {
	ID         string          `json:"id"`
	ExamID     string          `json:"exam_id"`
	Answers    map[string]*int `json:"answers"`
	FinishedAt *time.Time      `json:"finished_at"`
	Score      *float64        `json:"score"`
}

type errorResponse struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// GenerateExam asks the store to build an exam for the given specification.
func (c *Client) GenerateExam(ctx context.Context, req GenerateRequest) (*model.Exam, error) {
	if req.ThemeIDs == nil {
		req.ThemeIDs = []string{}
	}
	var exam model.Exam
	if err := c.call(ctx, "generate exam", http.MethodPost, "/api/exams/generate", req, &exam, true); err != nil {
		return nil, err
	}
	return &exam, nil
}

// GetExam fetches a previously generated exam.
func (c *Client) GetExam(ctx context.Context, examID string) (*model.Exam, error) {
	var exam model.Exam
	if err := c.call(ctx, "get exam", http.MethodGet, "/api/exams/"+url.PathEscape(examID), nil, &exam, true); err != nil {
		return nil, err
	}
	return &exam, nil
}

// StartAttempt opens a new attempt for examID.
func (c *Client) StartAttempt(ctx context.Context, examID string) (*model.Attempt, error) {
	var attempt model.Attempt
	path := "/api/exams/" + url.PathEscape(examID) + "/attempts"
	if err := c.call(ctx, "start attempt", http.MethodPost, path, nil, &attempt, true); err != nil {
		return nil, err
	}
	if attempt.ExamID == "" {
		attempt.ExamID = examID
	}
	return &attempt, nil
}

// SubmitAnswer stores choice for questionID. A nil choice stores the explicit "no selection" value.
// No client-side timeout is applied; the caller's context is the only bound.
func (c *Client) SubmitAnswer(ctx context.Context, attemptID, questionID string, choice *int) error {
	body := answerRequest{QuestionID: questionID, SelectedAnswer: choice}
	path := "/api/attempts/" + url.PathEscape(attemptID) + "/answers"
	return c.call(ctx, "submit answer", http.MethodPost, path, body, nil, false)
}

// GetResults returns the store's answer mapping for an attempt.
func (c *Client) GetResults(ctx context.Context, attemptID string) (*model.AttemptResults, error) {
	var payload resultsResponse
	path := "/api/attempts/" + url.PathEscape(attemptID) + "/results"
	if err := c.call(ctx, "get results", http.MethodGet, path, nil, &payload, true); err != nil {
		return nil, err
	}

	answers := make(map[string]int, len(payload.Answers))
	for qid, choice := range payload.Answers {
		if choice != nil {
			answers[qid] = *choice
		}
	}
	id := payload.ID
	if id == "" {
		id = attemptID
	}
	return &model.AttemptResults{
		AttemptID:  id,
		ExamID:     payload.ExamID,
		Answers:    answers,
		FinishedAt: payload.FinishedAt,
		Score:      payload.Score,
	}, nil
}

// FinishAttempt closes the attempt and returns its score.
func (c *Client) FinishAttempt(ctx context.Context, attemptID string) (*model.FinishResult, error) {
	var result model.FinishResult
	path := "/api/attempts/" + url.PathEscape(attemptID) + "/finish"
	if err := c.call(ctx, "finish attempt", http.MethodPost, path, nil, &result, true); err != nil {
		return nil, err
	}
	if result.AttemptID == "" {
		result.AttemptID = attemptID
	}
	return &result, nil
}

// ListThemes returns the read-only theme directory.
func (c *Client) ListThemes(ctx context.Context) ([]model.Theme, error) {
	var themes []model.Theme
	if err := c.call(ctx, "list themes", http.MethodGet, "/api/themes", nil, &themes, true); err != nil {
		return nil, err
	}
	return themes, nil
}

func (c *Client) call(ctx context.Context, op, method, path string, requestBody, responseBody any, bounded bool) error {
	if bounded && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.doJSON(ctx, method, path, requestBody, responseBody); err != nil {
		var remoteErr *RemoteError
		if errors.As(err, &remoteErr) {
			remoteErr.Op = op
			return remoteErr
		}
		return &RemoteError{Op: op, Err: err}
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	fullURL := c.baseURL + path

	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		remoteErr := RemoteError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil {
			remoteErr.Message = strings.TrimSpace(payload.Detail)
			if remoteErr.Message == "" {
				remoteErr.Message = strings.TrimSpace(payload.Error)
			}
		}
		if remoteErr.Message == "" {
			remoteErr.Message = response.Status
		}
		return &remoteErr
	}

	if responseBody == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	return json.NewDecoder(response.Body).Decode(responseBody)
}
