package model

import "sort"

// ExamSpecification is the one-shot request that seeds a generated exam.
// ThemeIDs is kept sorted and free of duplicates; it behaves as a set.
type ExamSpecification struct {
	Type          ExamType `json:"type" validate:"required"`
	Name          string   `json:"name"`
	ThemeIDs      []string `json:"theme_ids"`
	QuestionCount int      `json:"question_count"`
}

// HasTheme reports whether id is in the selected theme set.
func (s *ExamSpecification) HasTheme(id string) bool {
	i := sort.SearchStrings(s.ThemeIDs, id)
	return i < len(s.ThemeIDs) && s.ThemeIDs[i] == id
}

// ThemeSet returns a copy of the selected theme ids.
func (s *ExamSpecification) ThemeSet() []string {
	out := make([]string, len(s.ThemeIDs))
	copy(out, s.ThemeIDs)
	return out
}

// NormalizeThemeIDs returns ids sorted with duplicates and blanks removed.
func NormalizeThemeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ExamDraft is a specification under construction, addressed by an opaque id.
type ExamDraft struct {
	ID                    string            `json:"id"`
	Spec                  ExamSpecification `json:"spec"`
	ThemeSelectionVisible bool              `json:"theme_selection_visible"`
	QuestionCountEditable bool              `json:"question_count_editable"`
}

// CreateDraftRequest is the payload for starting a new exam draft.
type CreateDraftRequest struct {
	Type ExamType `json:"type" binding:"omitempty,exam_type"`
}

// SetExamTypeRequest is the payload for switching a draft's exam type.
type SetExamTypeRequest struct {
	Type ExamType `json:"type" binding:"required,exam_type"`
}

// UpdateDraftRequest edits the free-form fields of a draft.
// Count bounds are enforced by validate/submit, not here, so the user can pass through
// out-of-range values while editing.
type UpdateDraftRequest struct {
	Name          *string `json:"name" binding:"omitempty,max=255"`
	QuestionCount *int    `json:"question_count" binding:"omitempty"`
}

// SelectThemePartRequest replaces the theme selection with every theme of one part.
type SelectThemePartRequest struct {
	Part ThemePart `json:"part" binding:"required,theme_part"`
}
