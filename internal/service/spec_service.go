package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/examapi"
	"github.com/stemsi/exstem-practice/internal/model"
)

// SpecService holds exam specifications under construction, one builder per draft id.
type SpecService struct {
	generator ExamGenerator
	themes    *ThemeService
	sessions  *ExamSessionService
	now       func() time.Time
	log       zerolog.Logger

	mu     sync.Mutex
	drafts map[string]*draftEntry
}

type draftEntry struct {
	mu      sync.Mutex
	builder *SpecBuilder
}

// NewSpecService creates a new SpecService.
func NewSpecService(generator ExamGenerator, themes *ThemeService, sessions *ExamSessionService, log zerolog.Logger) *SpecService {
	return &SpecService{
		generator: generator,
		themes:    themes,
		sessions:  sessions,
		now:       time.Now,
		log:       log.With().Str("component", "spec_service").Logger(),
		drafts:    make(map[string]*draftEntry),
	}
}

// Create starts a new draft. An empty type keeps the THEORY_TOPIC default.
func (s *SpecService) Create(examType model.ExamType) (*model.ExamDraft, error) {
	b := NewSpecBuilder(s.now)
	if examType != "" {
		if err := b.SetType(examType); err != nil {
			return nil, err
		}
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.drafts[id] = &draftEntry{builder: b}
	s.mu.Unlock()

	return draftView(id, b), nil
}

// Get returns the current state of a draft.
func (s *SpecService) Get(id string) (*model.ExamDraft, error) {
	return s.mutate(id, func(*SpecBuilder) error { return nil })
}

// SetType switches the draft's exam type.
func (s *SpecService) SetType(id string, t model.ExamType) (*model.ExamDraft, error) {
	return s.mutate(id, func(b *SpecBuilder) error { return b.SetType(t) })
}

// Update applies the non-nil fields of req.
func (s *SpecService) Update(id string, req model.UpdateDraftRequest) (*model.ExamDraft, error) {
	return s.mutate(id, func(b *SpecBuilder) error {
		if req.Name != nil {
			if err := b.SetName(*req.Name); err != nil {
				return err
			}
		}
		if req.QuestionCount != nil {
			if err := b.SetQuestionCount(*req.QuestionCount); err != nil {
				return err
			}
		}
		return nil
	})
}

// ToggleTheme flips one theme in the draft's selection.
func (s *SpecService) ToggleTheme(id, themeID string) (*model.ExamDraft, error) {
	return s.mutate(id, func(b *SpecBuilder) error { return b.ToggleTheme(themeID) })
}

// SelectPart replaces the draft's selection with every theme of part.
func (s *SpecService) SelectPart(ctx context.Context, id string, part model.ThemePart) (*model.ExamDraft, error) {
	catalogue, err := s.themes.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.mutate(id, func(b *SpecBuilder) error { return b.SelectAllByPart(part, catalogue) })
}

// Validate checks the draft without submitting it.
func (s *SpecService) Validate(id string) error {
	_, err := s.mutate(id, func(b *SpecBuilder) error { return b.Validate() })
	return err
}

// Discard drops a draft.
func (s *SpecService) Discard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[id]; !ok {
		return ErrDraftNotFound
	}
	delete(s.drafts, id)
	return nil
}

// Submit generates the exam, starts the attempt and hands it to a new session.
// The draft is gone afterwards; on failure it stays editable.
func (s *SpecService) Submit(ctx context.Context, id string) (*Session, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	handle, err := entry.builder.Submit(ctx, s.generator)
	spec := entry.builder.Spec()
	entry.mu.Unlock()
	if err != nil {
		s.log.Warn().Err(err).Str("draft_id", id).Str("type", string(spec.Type)).Msg("Submit failed")
		// The store rejects unknown theme ids with 400; the cached catalogue may be stale.
		var remoteErr *examapi.RemoteError
		if errors.As(err, &remoteErr) && remoteErr.StatusCode == http.StatusBadRequest && len(spec.ThemeIDs) > 0 {
			if err := s.themes.Invalidate(ctx); err != nil {
				s.log.Warn().Err(err).Msg("Theme cache invalidation failed")
			}
		}
		return nil, err
	}

	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()

	s.log.Info().
		Str("draft_id", id).
		Str("type", string(spec.Type)).
		Int("question_count", spec.QuestionCount).
		Str("attempt_id", handle.Attempt.ID).
		Msg("Exam generated")
	return s.sessions.Adopt(handle)
}

func (s *SpecService) entry(id string) (*draftEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return entry, nil
}

func (s *SpecService) mutate(id string, fn func(*SpecBuilder) error) (*model.ExamDraft, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := fn(entry.builder); err != nil {
		return nil, err
	}
	return draftView(id, entry.builder), nil
}

func draftView(id string, b *SpecBuilder) *model.ExamDraft {
	spec := b.Spec()
	_, fixed := spec.Type.FixedQuestionCount()
	return &model.ExamDraft{
		ID:                    id,
		Spec:                  spec,
		ThemeSelectionVisible: spec.Type.ThemeSelectionVisible(),
		QuestionCountEditable: !fixed,
	}
}
