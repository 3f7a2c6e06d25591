package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/examapi"
	"github.com/stemsi/exstem-practice/internal/logger"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/service"
)

var examTypes = []model.ExamType{
	model.ExamTypeTheoryTopic,
	model.ExamTypeTheoryMixed,
	model.ExamTypePractical,
	model.ExamTypeSimulacro,
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practice [attempt-id]",
		Short: "Take a practice exam in the terminal",
		Long: "Builds an exam specification interactively, generates the exam and runs it\n" +
			"question by question. Pass an attempt id to resume an unfinished attempt.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runPractice,
	}
	f := cmd.Flags()
	f.StringP("type", "t", "", "Exam type (THEORY_TOPIC, THEORY_MIXED, PRACTICAL, SIMULACRO); prompts when empty")
	f.IntP("count", "n", 0, "Number of questions; prompts when 0")
	f.StringP("part", "p", "", "Select every theme of a part (GENERAL, SPECIFIC) instead of prompting")
	f.BoolP("feedback", "f", false, "Start with instant feedback on")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	return cmd
}

// presets carries the answers given as flags; zero values mean "ask".
type presets struct {
	examType model.ExamType
	count    int
	part     model.ThemePart
}

func runPractice(cmd *cobra.Command, args []string) error {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	// Logs go to stderr so they do not interleave with the quiz.
	level, _ := cmd.Flags().GetString("log-level")
	log := logger.New(os.Stderr, level, "pretty")

	var pre presets
	typeFlag, _ := cmd.Flags().GetString("type")
	pre.examType = model.ExamType(strings.ToUpper(typeFlag))
	if pre.examType != "" && !pre.examType.Valid() {
		return fmt.Errorf("unknown exam type %q", typeFlag)
	}
	pre.count, _ = cmd.Flags().GetInt("count")
	partFlag, _ := cmd.Flags().GetString("part")
	pre.part = model.ThemePart(strings.ToUpper(partFlag))
	if pre.part != "" && !pre.part.Valid() {
		return fmt.Errorf("unknown theme part %q", partFlag)
	}
	feedback, _ := cmd.Flags().GetBool("feedback")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ─── Initialize Services ──────────────────────────────────────────
	examClient := examapi.NewClient(cfg.ExamAPIURL,
		examapi.WithToken(cfg.ExamAPIToken),
		examapi.WithTimeout(cfg.ExamAPITimeout),
	)
	dispatcher := service.NewDirectDispatcher(examClient, log)
	answerSync := service.NewAnswerSynchronizer(dispatcher)
	finalizer := service.NewFinalizer(examClient, log)
	sessionService := service.NewExamSessionService(examClient, answerSync, finalizer, log)
	themeService := service.NewThemeService(examClient, nil, 0, log)
	specService := service.NewSpecService(examClient, themeService, sessionService, log)

	// Flush background answer writes whatever happens below.
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := dispatcher.Close(drainCtx); err != nil {
			log.Warn().Err(err).Msg("Some answer writes were still in flight")
		}
	}()

	reader := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "=== ExStem Practice ===")

	var (
		sess *service.Session
		err  error
	)
	if len(args) == 1 {
		sess, err = sessionService.Open(ctx, args[0])
	} else {
		sess, err = buildAndSubmit(ctx, reader, out, specService, themeService, pre)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nAttempt %s\n", sess.AttemptID())
	if feedback {
		if err := sess.ToggleInstantFeedback(true); err != nil {
			return err
		}
	}

	q := &quiz{
		session:  sess,
		sessions: sessionService,
		in:       reader,
		out:      out,
		width:    terminalWidth(),
	}
	return q.run(ctx)
}

// buildAndSubmit walks the user through the exam specification and submits it.
// Anything preset by flags is applied without asking.
func buildAndSubmit(ctx context.Context, reader *bufio.Reader, out io.Writer, specs *service.SpecService, themes *service.ThemeService, pre presets) (*service.Session, error) {
	// Exam type
	examType := pre.examType
	if examType == "" {
		fmt.Fprintln(out, "\nExam type:")
		for i, t := range examTypes {
			fmt.Fprintf(out, "  %d. %s\n", i+1, t.NamePrefix())
		}
		fmt.Fprint(out, "Choose (default 1): ")
		choice := readInt(reader, 1)
		if choice < 1 || choice > len(examTypes) {
			return nil, fmt.Errorf("unknown exam type %d", choice)
		}
		examType = examTypes[choice-1]
	}

	draft, err := specs.Create(examType)
	if err != nil {
		return nil, err
	}
	id := draft.ID

	// Themes
	if draft.ThemeSelectionVisible {
		if pre.part != "" {
			_, err = specs.SelectPart(ctx, id, pre.part)
		} else {
			err = chooseThemes(ctx, reader, out, specs, themes, id)
		}
		if err != nil {
			return nil, err
		}
	}

	// Question count
	if draft.QuestionCountEditable {
		n := pre.count
		if n == 0 {
			fmt.Fprintf(out, "Number of questions %d-%d (default %d): ",
				model.MinQuestionCount, model.MaxQuestionCount, draft.Spec.QuestionCount)
			n = readInt(reader, draft.Spec.QuestionCount)
		}
		if _, err := specs.Update(id, model.UpdateDraftRequest{QuestionCount: &n}); err != nil {
			return nil, err
		}
	}

	for {
		err := specs.Validate(id)
		if err == nil {
			break
		}
		var ve *service.ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		fmt.Fprintln(out, "Error:", ve.Error())
		switch ve.Code {
		case service.CodeNoThemeSelected:
			if err := chooseThemes(ctx, reader, out, specs, themes, id); err != nil {
				return nil, err
			}
		case service.CodeInvalidCount:
			fmt.Fprint(out, "Number of questions: ")
			n := readInt(reader, model.DefaultQuestionCount)
			if _, err := specs.Update(id, model.UpdateDraftRequest{QuestionCount: &n}); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}

	current, err := specs.Get(id)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "\nGenerating \"%s\" (%d questions)...\n", current.Spec.Name, current.Spec.QuestionCount)
	return specs.Submit(ctx, id)
}

// chooseThemes lists the catalogue and toggles the themes the user names.
// "g" or "s" selects a whole part instead.
func chooseThemes(ctx context.Context, reader *bufio.Reader, out io.Writer, specs *service.SpecService, themes *service.ThemeService, id string) error {
	catalogue, err := themes.List(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\nThemes:")
	for i, t := range catalogue {
		fmt.Fprintf(out, "  %2d. [%s] %s %s\n", i+1, t.Part, t.Code, t.Name)
	}
	fmt.Fprint(out, "Numbers separated by spaces, or g (general) / s (specific): ")
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))

	switch line {
	case "g":
		_, err = specs.SelectPart(ctx, id, model.ThemePartGeneral)
		return err
	case "s":
		_, err = specs.SelectPart(ctx, id, model.ThemePartSpecific)
		return err
	}

	for _, field := range strings.Fields(line) {
		n, err := strconv.Atoi(field)
		if err != nil || n < 1 || n > len(catalogue) {
			fmt.Fprintf(out, "Skipping %q\n", field)
			continue
		}
		if _, err := specs.ToggleTheme(id, catalogue[n-1].ID); err != nil {
			return err
		}
	}
	return nil
}

func readInt(reader *bufio.Reader, fallback int) int {
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return fallback
	}
	return n
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
