package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	govalidator "github.com/go-playground/validator/v10"

	"github.com/stemsi/exstem-practice/internal/examapi"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/validator"
)

// autoNameLayout renders dates the way es-ES does: dd/mm/yyyy HH:MM.
const autoNameLayout = "02/01/2006 15:04"

var specValidate = newSpecValidator()

func newSpecValidator() *govalidator.Validate {
	v := govalidator.New()
	v.RegisterTagNameFunc(validator.JSONTagName)
	v.RegisterStructValidation(validateSpecification, model.ExamSpecification{})
	return v
}

// validateSpecification enforces the per-type rules of an exam specification.
func validateSpecification(sl govalidator.StructLevel) {
	spec := sl.Current().Interface().(model.ExamSpecification)

	if !spec.Type.Valid() {
		sl.ReportError(spec.Type, "type", "Type", string(CodeInvalidType), "")
		return
	}
	if spec.Type.RequiresThemes() && len(spec.ThemeIDs) == 0 {
		sl.ReportError(spec.ThemeIDs, "theme_ids", "ThemeIDs", string(CodeNoThemeSelected), "")
	}
	if _, fixed := spec.Type.FixedQuestionCount(); !fixed {
		if spec.QuestionCount < model.MinQuestionCount || spec.QuestionCount > model.MaxQuestionCount {
			sl.ReportError(spec.QuestionCount, "question_count", "QuestionCount", string(CodeInvalidCount), "")
		}
	}
}

// AttemptHandle is what a successful submission hands to the session controller.
type AttemptHandle struct {
	Exam    *model.Exam    `json:"exam"`
	Attempt *model.Attempt `json:"attempt"`
}

// SpecBuilder builds one exam specification and submits it exactly once.
// It is not safe for concurrent use.
type SpecBuilder struct {
	spec     model.ExamSpecification
	autoName string
	consumed bool
	now      func() time.Time
}

// NewSpecBuilder starts a THEORY_TOPIC specification with the default count.
func NewSpecBuilder(now func() time.Time) *SpecBuilder {
	if now == nil {
		now = time.Now
	}
	b := &SpecBuilder{now: now}
	b.applyType(model.ExamTypeTheoryTopic)
	return b
}

// Spec returns a copy of the current specification.
func (b *SpecBuilder) Spec() model.ExamSpecification {
	out := b.spec
	out.ThemeIDs = b.spec.ThemeSet()
	return out
}

// Consumed reports whether the specification has already been submitted.
func (b *SpecBuilder) Consumed() bool {
	return b.consumed
}

// SetType switches the exam type, clearing the theme selection, resetting the count
// and regenerating the default name.
func (b *SpecBuilder) SetType(t model.ExamType) error {
	if b.consumed {
		return ErrSpecConsumed
	}
	if !t.Valid() {
		return &ValidationError{Code: CodeInvalidType, Field: "type"}
	}
	b.applyType(t)
	return nil
}

func (b *SpecBuilder) applyType(t model.ExamType) {
	b.autoName = fmt.Sprintf("%s %s", t.NamePrefix(), b.now().Format(autoNameLayout))
	b.spec = model.ExamSpecification{
		Type:          t,
		Name:          b.autoName,
		ThemeIDs:      []string{},
		QuestionCount: t.DefaultQuestionCount(),
	}
}

// SetName replaces the exam name. A blank name falls back to the auto name on submit.
func (b *SpecBuilder) SetName(name string) error {
	if b.consumed {
		return ErrSpecConsumed
	}
	b.spec.Name = strings.TrimSpace(name)
	return nil
}

// SetQuestionCount stores n as given; bounds are checked by Validate.
// Types with a fixed count ignore the call.
func (b *SpecBuilder) SetQuestionCount(n int) error {
	if b.consumed {
		return ErrSpecConsumed
	}
	if _, fixed := b.spec.Type.FixedQuestionCount(); fixed {
		return nil
	}
	b.spec.QuestionCount = n
	return nil
}

// ToggleTheme flips membership of id in the selected theme set.
func (b *SpecBuilder) ToggleTheme(id string) error {
	if b.consumed {
		return ErrSpecConsumed
	}
	if !b.spec.Type.ThemeSelectionVisible() {
		return ErrThemeSelectionDisabled
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}

	next := make([]string, 0, len(b.spec.ThemeIDs)+1)
	if b.spec.HasTheme(id) {
		for _, existing := range b.spec.ThemeIDs {
			if existing != id {
				next = append(next, existing)
			}
		}
	} else {
		next = append(append(next, b.spec.ThemeIDs...), id)
	}
	b.spec.ThemeIDs = model.NormalizeThemeIDs(next)
	return nil
}

// SelectAllByPart replaces the selection with every theme of the given part.
func (b *SpecBuilder) SelectAllByPart(part model.ThemePart, catalogue []model.Theme) error {
	if b.consumed {
		return ErrSpecConsumed
	}
	if !b.spec.Type.ThemeSelectionVisible() {
		return ErrThemeSelectionDisabled
	}

	ids := make([]string, 0, len(catalogue))
	for _, t := range catalogue {
		if t.Part == part {
			ids = append(ids, t.ID)
		}
	}
	b.spec.ThemeIDs = model.NormalizeThemeIDs(ids)
	return nil
}

// Validate returns a *ValidationError describing the first blocking problem, or nil.
// A missing theme is reported ahead of a bad count.
func (b *SpecBuilder) Validate() error {
	err := specValidate.Struct(b.spec)
	if err == nil {
		return nil
	}

	var fieldErrs govalidator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var first *ValidationError
	for _, fe := range fieldErrs {
		ve := toValidationError(fe)
		if first == nil || validationPriority(ve.Code) < validationPriority(first.Code) {
			first = ve
		}
	}
	return first
}

func toValidationError(fe govalidator.FieldError) *ValidationError {
	switch ValidationCode(fe.Tag()) {
	case CodeNoThemeSelected, CodeInvalidCount, CodeInvalidType:
		return &ValidationError{Code: ValidationCode(fe.Tag()), Field: fe.Field()}
	}
	// Only the required tag on type remains.
	return &ValidationError{Code: CodeInvalidType, Field: fe.Field()}
}

func validationPriority(code ValidationCode) int {
	switch code {
	case CodeInvalidType:
		return 0
	case CodeNoThemeSelected:
		return 1
	default:
		return 2
	}
}

// GenerateRequest builds the payload sent to the generation API.
func (b *SpecBuilder) GenerateRequest() examapi.GenerateRequest {
	name := b.spec.Name
	if name == "" {
		name = b.autoName
	}
	req := examapi.GenerateRequest{
		Name:          name,
		Type:          b.spec.Type,
		ThemeIDs:      b.spec.ThemeSet(),
		QuestionCount: b.spec.QuestionCount,
	}
	if n, fixed := b.spec.Type.FixedQuestionCount(); fixed {
		req.QuestionCount = n
	}
	if !b.spec.Type.ThemeSelectionVisible() {
		req.ThemeIDs = []string{}
	}
	return req
}

// Submit validates the specification, generates the exam and starts an attempt on it.
// Nothing is sent when validation fails. On success the builder is consumed.
func (b *SpecBuilder) Submit(ctx context.Context, gen ExamGenerator) (*AttemptHandle, error) {
	if b.consumed {
		return nil, ErrSpecConsumed
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	exam, err := gen.GenerateExam(ctx, b.GenerateRequest())
	if err != nil {
		return nil, err
	}
	attempt, err := gen.StartAttempt(ctx, exam.ID)
	if err != nil {
		return nil, err
	}

	b.consumed = true
	return &AttemptHandle{Exam: exam, Attempt: attempt}, nil
}
