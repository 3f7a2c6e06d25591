package model

// ExamType enumerates the exam variants a practice specification can request.
type ExamType string

const (
	ExamTypeTheoryTopic ExamType = "THEORY_TOPIC"
	ExamTypeTheoryMixed ExamType = "THEORY_MIXED"
	ExamTypePractical   ExamType = "PRACTICAL"
	ExamTypeSimulacro   ExamType = "SIMULACRO"
)

const (
	MinQuestionCount       = 5
	MaxQuestionCount       = 70
	DefaultQuestionCount   = 10
	SimulacroQuestionCount = 40
)

// Valid reports whether t is one of the known exam types.
func (t ExamType) Valid() bool {
	switch t {
	case ExamTypeTheoryTopic, ExamTypeTheoryMixed, ExamTypePractical, ExamTypeSimulacro:
		return true
	}
	return false
}

// RequiresThemes is true for the theory variants, which must name at least one theme.
func (t ExamType) RequiresThemes() bool {
	return t == ExamTypeTheoryTopic || t == ExamTypeTheoryMixed
}

// ThemeSelectionVisible is false for variants whose composition is decided by the store.
func (t ExamType) ThemeSelectionVisible() bool {
	return t != ExamTypeSimulacro && t != ExamTypePractical
}

// FixedQuestionCount returns the enforced count for variants that do not allow choosing one.
func (t ExamType) FixedQuestionCount() (int, bool) {
	if t == ExamTypeSimulacro {
		return SimulacroQuestionCount, true
	}
	return 0, false
}

// DefaultQuestionCount is the count a specification starts with after selecting t.
func (t ExamType) DefaultQuestionCount() int {
	if n, ok := t.FixedQuestionCount(); ok {
		return n
	}
	return DefaultQuestionCount
}

// ScoreScale is the maximum final score the store reports for t.
func (t ExamType) ScoreScale() float64 {
	if t == ExamTypeSimulacro {
		return 100
	}
	return 70
}

// NamePrefix is the human-readable stem of auto-generated exam names.
func (t ExamType) NamePrefix() string {
	switch t {
	case ExamTypeSimulacro:
		return "Simulacro"
	case ExamTypeTheoryTopic:
		return "Examen por Tema"
	case ExamTypeTheoryMixed:
		return "Examen Mixto"
	case ExamTypePractical:
		return "Supuesto Práctico"
	default:
		return "Examen"
	}
}

// ThemePart classifies a theme for weighted exam composition.
type ThemePart string

const (
	ThemePartGeneral  ThemePart = "GENERAL"
	ThemePartSpecific ThemePart = "SPECIFIC"
)

func (p ThemePart) Valid() bool {
	return p == ThemePartGeneral || p == ThemePartSpecific
}

// Theme is a read-only entry of the remote theme directory.
type Theme struct {
	ID    string    `json:"id"`
	Code  string    `json:"code"`
	Name  string    `json:"name"`
	Part  ThemePart `json:"part"`
	Order int       `json:"order"`
}

// Question is a generated exam question, including its answer key.
type Question struct {
	QuestionID    string   `json:"question_id"`
	Text          string   `json:"text"`
	Choices       []string `json:"choices"`
	CorrectAnswer int      `json:"correct_answer"`
	Difficulty    string   `json:"difficulty,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// ValidChoice reports whether idx addresses one of the question's choices.
func (q Question) ValidChoice(idx int) bool {
	return idx >= 0 && idx < len(q.Choices)
}

// CorrectText returns the literal text of the correct choice, or "" when the key is out of range.
func (q Question) CorrectText() string {
	if !q.ValidChoice(q.CorrectAnswer) {
		return ""
	}
	return q.Choices[q.CorrectAnswer]
}

// Exam is the immutable exam returned by the generation API.
type Exam struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      ExamType   `json:"type"`
	Questions []Question `json:"questions"`
}

// QuestionIndex returns the position of the question with the given id, or -1.
func (e *Exam) QuestionIndex(questionID string) int {
	for i := range e.Questions {
		if e.Questions[i].QuestionID == questionID {
			return i
		}
	}
	return -1
}

// QuestionForStudent is a question without the answer key.
type QuestionForStudent struct {
	QuestionID string   `json:"question_id"`
	Text       string   `json:"text"`
	Choices    []string `json:"choices"`
	Difficulty string   `json:"difficulty,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// ForStudent strips the answer key from q.
func (q Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		QuestionID: q.QuestionID,
		Text:       q.Text,
		Choices:    q.Choices,
		Difficulty: q.Difficulty,
		Tags:       q.Tags,
	}
}
