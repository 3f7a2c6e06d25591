package service

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-practice/internal/model"
)

func TestNavigationClampsAtBounds(t *testing.T) {
	s, _ := readySession(t, threeQuestionExam())

	require.NoError(t, s.GoPrevious())
	assert.Equal(t, 0, s.CurrentIndex())

	for i := 0; i < 5; i++ {
		require.NoError(t, s.GoNext())
	}
	assert.Equal(t, 2, s.CurrentIndex())
	assert.InDelta(t, 1.0, s.Progress(), 1e-9)

	require.NoError(t, s.GoPrevious())
	assert.Equal(t, 1, s.CurrentIndex())
	assert.InDelta(t, 2.0/3.0, s.Progress(), 1e-9)
}

func TestJumpTo(t *testing.T) {
	s, _ := readySession(t, threeQuestionExam())

	require.NoError(t, s.JumpTo(2))
	assert.Equal(t, 2, s.CurrentIndex(), "unanswered targets are allowed")

	assert.ErrorIs(t, s.JumpTo(3), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.JumpTo(-1), ErrIndexOutOfRange)
	assert.Equal(t, 2, s.CurrentIndex())
}

func TestOperationsRequireReady(t *testing.T) {
	s := NewSession("att-1", NewAnswerSynchronizer(&recordingDispatcher{}))

	assert.Equal(t, model.SessionStateLoading, s.State())
	assert.ErrorIs(t, s.GoNext(), ErrSessionNotReady)
	assert.ErrorIs(t, s.JumpTo(0), ErrSessionNotReady)
	assert.ErrorIs(t, s.ToggleInstantFeedback(true), ErrSessionNotReady)
	_, err := s.SelectAnswer("q1", 0)
	assert.ErrorIs(t, err, ErrSessionNotReady)
	assert.Zero(t, s.Progress())
}

func TestSelectAnswerIsOptimisticAndDispatched(t *testing.T) {
	s, d := readySession(t, threeQuestionExam())

	change, err := s.SelectAnswer("q1", 2)
	require.NoError(t, err)
	assert.False(t, change.Cleared())
	assert.Nil(t, change.Feedback, "no feedback while instant feedback is off")

	choice, ok := s.Answer("q1")
	require.True(t, ok)
	assert.Equal(t, 2, choice)

	w := d.last()
	assert.Equal(t, "att-1", w.AttemptID)
	assert.Equal(t, "q1", w.QuestionID)
	require.NotNil(t, w.Choice)
	assert.Equal(t, 2, *w.Choice)
}

func TestReselectingSameChoiceClearsIt(t *testing.T) {
	s, d := readySession(t, threeQuestionExam())

	_, err := s.SelectAnswer("q2", 2)
	require.NoError(t, err)
	change, err := s.SelectAnswer("q2", 2)
	require.NoError(t, err)

	assert.True(t, change.Cleared())
	_, ok := s.Answer("q2")
	assert.False(t, ok)
	assert.Zero(t, s.AnsweredCount())

	writes := d.all()
	require.Len(t, writes, 2)
	assert.True(t, writes[1].Cleared(), "second write is a remote clear")
	assert.Equal(t, "q2", writes[1].QuestionID)
}

func TestSelectAnswerRejectsBadInput(t *testing.T) {
	s, d := readySession(t, threeQuestionExam())

	_, err := s.SelectAnswer("nope", 0)
	assert.ErrorIs(t, err, ErrUnknownQuestion)
	_, err = s.SelectAnswer("q1", 4)
	assert.ErrorIs(t, err, ErrInvalidChoice)
	_, err = s.SelectAnswer("q1", -1)
	assert.ErrorIs(t, err, ErrInvalidChoice)
	assert.Empty(t, d.all())
}

func TestClearAnswerIsIdempotentLocallyButAlwaysDispatches(t *testing.T) {
	s, d := readySession(t, threeQuestionExam())
	require.NoError(t, s.ToggleInstantFeedback(true))
	_, err := s.SelectAnswer("q3", 3)
	require.NoError(t, err)

	require.NoError(t, s.ClearAnswer("q3"))
	require.NoError(t, s.ClearAnswer("q3"))

	_, ok := s.Answer("q3")
	assert.False(t, ok)
	_, ok = s.Feedback("q3")
	assert.False(t, ok)

	writes := d.all()
	require.Len(t, writes, 3)
	assert.True(t, writes[1].Cleared())
	assert.True(t, writes[2].Cleared())
}

func TestAnsweredCountTracksDistinctKeys(t *testing.T) {
	s, _ := readySession(t, threeQuestionExam())
	rng := rand.New(rand.NewSource(7))
	ids := []string{"q1", "q2", "q3"}
	want := map[string]int{}

	for i := 0; i < 200; i++ {
		qid := ids[rng.Intn(len(ids))]
		if rng.Intn(4) == 0 {
			require.NoError(t, s.ClearAnswer(qid))
			delete(want, qid)
			continue
		}
		choice := rng.Intn(4)
		_, err := s.SelectAnswer(qid, choice)
		require.NoError(t, err)
		if held, ok := want[qid]; ok && held == choice {
			delete(want, qid)
		} else {
			want[qid] = choice
		}
		require.Equal(t, len(want), s.AnsweredCount(), "step %d", i)
	}
	assert.Equal(t, want, s.Snapshot().Answers)
}

func TestInstantFeedbackScenario(t *testing.T) {
	s, _ := readySession(t, threeQuestionExam())
	require.NoError(t, s.ToggleInstantFeedback(true))

	change, err := s.SelectAnswer("q1", 1)
	require.NoError(t, err)
	require.NotNil(t, change.Feedback)

	fb, ok := s.Feedback("q1")
	require.True(t, ok)
	assert.Equal(t, model.FeedbackCorrect, fb.Status)
	assert.Equal(t, 1, fb.CorrectIndex)
	assert.Equal(t, "b", fb.CorrectText)

	_, err = s.SelectAnswer("q2", 3)
	require.NoError(t, err)
	fb, _ = s.Feedback("q2")
	assert.Equal(t, model.FeedbackIncorrect, fb.Status)
	assert.Equal(t, 3, fb.SelectedIndex)

	require.NoError(t, s.ToggleInstantFeedback(false))
	snap := s.Snapshot()
	assert.Empty(t, snap.Feedback)
	assert.Equal(t, map[string]int{"q1": 1, "q2": 3}, snap.Answers)
	assert.Nil(t, snap.Provisional)
}

func TestEnablingFeedbackRecomputesAllAnswers(t *testing.T) {
	s, _ := readySession(t, threeQuestionExam())
	_, _ = s.SelectAnswer("q1", 0)
	_, _ = s.SelectAnswer("q3", 3)
	_, ok := s.Feedback("q1")
	require.False(t, ok)

	require.NoError(t, s.ToggleInstantFeedback(true))
	snap := s.Snapshot()
	require.Len(t, snap.Feedback, 2)
	assert.Equal(t, model.FeedbackIncorrect, snap.Feedback["q1"].Status)
	assert.Equal(t, model.FeedbackCorrect, snap.Feedback["q3"].Status)

	require.NotNil(t, snap.Provisional)
	assert.Equal(t, 1, snap.Provisional.Correct)
	assert.Equal(t, 1, snap.Provisional.Incorrect)
	assert.Equal(t, 1, snap.Provisional.Unanswered)
}

func TestSnapshotHidesAnswerKey(t *testing.T) {
	s, _ := readySession(t, threeQuestionExam())
	require.NoError(t, s.GoNext())

	snap := s.Snapshot()
	assert.Equal(t, model.SessionStateReady, snap.State)
	assert.Equal(t, "exam-1", snap.ExamID)
	assert.Equal(t, 3, snap.QuestionCount)
	require.NotNil(t, snap.CurrentQuestion)
	assert.Equal(t, "q2", snap.CurrentQuestion.QuestionID)

	snap.Answers["q1"] = 0
	_, ok := s.Answer("q1")
	assert.False(t, ok, "snapshot maps are copies")
}

func TestReadySeedsOnlyValidRemoteAnswers(t *testing.T) {
	s := NewSession("att-1", NewAnswerSynchronizer(&recordingDispatcher{}))
	s.ready(threeQuestionExam(), map[string]int{"q1": 2, "q9": 0, "q3": 7})

	assert.Equal(t, model.SessionStateReady, s.State())
	assert.Equal(t, 1, s.AnsweredCount())
	choice, _ := s.Answer("q1")
	assert.Equal(t, 2, choice)
}

func TestFinishingLifecycle(t *testing.T) {
	s, _ := readySession(t, threeQuestionExam())

	require.NoError(t, s.beginFinishing())
	assert.ErrorIs(t, s.beginFinishing(), ErrFinishInProgress)
	_, err := s.SelectAnswer("q1", 1)
	assert.ErrorIs(t, err, ErrSessionNotReady)

	s.abortFinishing()
	assert.Equal(t, model.SessionStateReady, s.State())

	require.NoError(t, s.beginFinishing())
	s.finished(&model.FinishResult{AttemptID: "att-1", Score: 10})
	assert.Equal(t, model.SessionStateFinished, s.State())
	assert.True(t, s.State().Terminal())
	assert.ErrorIs(t, s.beginFinishing(), ErrSessionNotReady)

	s.fail(assert.AnError)
	assert.Equal(t, model.SessionStateFinished, s.State(), "FINISHED is terminal")
}
