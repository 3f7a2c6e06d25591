package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/examapi"
	"github.com/stemsi/exstem-practice/internal/model"
)

// Finalizer closes attempts on the remote store and moves their sessions to FINISHED.
type Finalizer struct {
	store AttemptStore
	log   zerolog.Logger
}

// NewFinalizer creates a new Finalizer.
func NewFinalizer(store AttemptStore, log zerolog.Logger) *Finalizer {
	return &Finalizer{
		store: store,
		log:   log.With().Str("component", "finalizer").Logger(),
	}
}

// Finish ends the attempt behind s. Confirmation is the caller's concern.
//
// On failure the session goes back to READY so the call can be retried, except when the
// store no longer knows the attempt, which is terminal. A session that is already
// FINISHED returns its stored result without calling the store.
func (f *Finalizer) Finish(ctx context.Context, s *Session) (*model.FinishResult, error) {
	if result, done := s.finishedResult(); done {
		return result, nil
	}
	if err := s.beginFinishing(); err != nil {
		return nil, err
	}

	result, err := f.store.FinishAttempt(ctx, s.AttemptID())
	if err != nil {
		if recovered := f.recoverFinished(ctx, s.AttemptID(), err); recovered != nil {
			result, err = recovered, nil
		}
	}
	if err != nil {
		var remoteErr *examapi.RemoteError
		if errors.As(err, &remoteErr) && remoteErr.NotFound() {
			f.log.Error().Err(err).Str("attempt_id", s.AttemptID()).Msg("Attempt vanished while finishing")
			s.fail(err)
			return nil, err
		}
		f.log.Warn().Err(err).Str("attempt_id", s.AttemptID()).Msg("Finish failed, session kept open")
		s.abortFinishing()
		return nil, err
	}

	s.finished(result)
	f.log.Info().
		Str("attempt_id", s.AttemptID()).
		Float64("score", result.Score).
		Msg("Attempt finished")
	return result, nil
}

// recoverFinished handles a retry after a finish whose reply was lost: the store rejects
// the second call, but the attempt is already closed and carries its score.
func (f *Finalizer) recoverFinished(ctx context.Context, attemptID string, finishErr error) *model.FinishResult {
	var remoteErr *examapi.RemoteError
	if !errors.As(finishErr, &remoteErr) || remoteErr.StatusCode != http.StatusBadRequest {
		return nil
	}
	results, err := f.store.GetResults(ctx, attemptID)
	if err != nil || !results.Finished() {
		return nil
	}

	result := &model.FinishResult{AttemptID: attemptID}
	if results.Score != nil {
		result.Score = *results.Score
	}
	return result
}
