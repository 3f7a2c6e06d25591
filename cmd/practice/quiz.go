package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/service"
)

const defaultWidth = 80

type commandKind int

const (
	cmdUnknown commandKind = iota
	cmdNext
	cmdPrevious
	cmdJump
	cmdSelect
	cmdClear
	cmdFeedback
	cmdFinish
	cmdHelp
)

type command struct {
	kind  commandKind
	index int // jump target (0-based) or choice index
}

// parseCommand reads one line of the question loop.
// Letters pick a choice, "j <n>" jumps to question n (1-based).
func parseCommand(line string, choiceCount int) command {
	line = strings.TrimSpace(line)
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return command{kind: cmdNext}
	}

	switch fields[0] {
	case "n":
		return command{kind: cmdNext}
	case "p":
		return command{kind: cmdPrevious}
	case "c":
		return command{kind: cmdClear}
	case "f":
		return command{kind: cmdFeedback}
	case "q":
		return command{kind: cmdFinish}
	case "?", "h":
		return command{kind: cmdHelp}
	case "j":
		if len(fields) != 2 {
			return command{kind: cmdUnknown}
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return command{kind: cmdUnknown}
		}
		return command{kind: cmdJump, index: n - 1}
	}

	if len(fields[0]) == 1 {
		letter := fields[0][0]
		if letter >= 'a' && int(letter-'a') < choiceCount {
			return command{kind: cmdSelect, index: int(letter - 'a')}
		}
	}
	return command{kind: cmdUnknown}
}

// progressBar renders "[####----] 3/10" sized to width.
func progressBar(current, total, width int) string {
	if total <= 0 {
		return ""
	}
	label := fmt.Sprintf(" %d/%d", current, total)
	barWidth := width - len(label) - 2
	if barWidth < 10 {
		barWidth = 10
	}
	filled := barWidth * current / total
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]" + label
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

type quiz struct {
	session  *service.Session
	sessions *service.ExamSessionService
	in       *bufio.Reader
	out      io.Writer
	width    int
}

func (q *quiz) run(ctx context.Context) error {
	q.printHelp()
	for {
		snap := q.session.Snapshot()
		if snap.State.Terminal() {
			return nil
		}
		q.render(snap)

		fmt.Fprint(q.out, "> ")
		line, err := q.in.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		choices := 0
		if snap.CurrentQuestion != nil {
			choices = len(snap.CurrentQuestion.Choices)
		}
		if done := q.apply(ctx, snap, parseCommand(line, choices)); done {
			return nil
		}
	}
}

func (q *quiz) apply(ctx context.Context, snap model.SessionSnapshot, cmd command) bool {
	var err error
	switch cmd.kind {
	case cmdNext:
		err = q.session.GoNext()
	case cmdPrevious:
		err = q.session.GoPrevious()
	case cmdJump:
		err = q.session.JumpTo(cmd.index)
	case cmdSelect:
		if snap.CurrentQuestion == nil {
			return false
		}
		var change service.AnswerChange
		change, err = q.session.SelectAnswer(snap.CurrentQuestion.QuestionID, cmd.index)
		if err == nil && change.Feedback != nil {
			q.printFeedback(*change.Feedback)
		}
	case cmdClear:
		if snap.CurrentQuestion != nil {
			err = q.session.ClearAnswer(snap.CurrentQuestion.QuestionID)
		}
	case cmdFeedback:
		err = q.session.ToggleInstantFeedback(!snap.InstantFeedbackEnabled)
	case cmdFinish:
		return q.finish(ctx, snap)
	case cmdHelp:
		q.printHelp()
	default:
		fmt.Fprintln(q.out, "Unknown command, type ? for help.")
	}
	if err != nil {
		fmt.Fprintln(q.out, "Error:", err)
	}
	return false
}

func (q *quiz) finish(ctx context.Context, snap model.SessionSnapshot) bool {
	unanswered := snap.QuestionCount - snap.AnsweredCount
	fmt.Fprintf(q.out, "Finish the exam? %d unanswered. [y/N]: ", unanswered)
	line, _ := q.in.ReadString('\n')
	if !strings.EqualFold(strings.TrimSpace(line), "y") {
		return false
	}

	result, err := q.sessions.FinishSession(ctx, q.session)
	if err != nil {
		fmt.Fprintln(q.out, "Could not finish:", err)
		return q.session.State().Terminal()
	}

	fmt.Fprintf(q.out, "\nFinal score: %.2f\n", result.Score)
	if d := result.Details; d != nil {
		fmt.Fprintf(q.out, "Correct %d, incorrect %d, unanswered %d (out of %.0f)\n",
			d.Correct, d.Incorrect, d.Unanswered, d.Scale)
	}
	return true
}

func (q *quiz) render(snap model.SessionSnapshot) {
	cq := snap.CurrentQuestion
	if cq == nil {
		return
	}

	fmt.Fprintln(q.out)
	fmt.Fprintln(q.out, progressBar(snap.CurrentIndex+1, snap.QuestionCount, q.width))
	fmt.Fprintf(q.out, "Q%d: %s\n\n", snap.CurrentIndex+1, cq.Text)

	selected, answered := snap.Answers[cq.QuestionID]
	for i, choice := range cq.Choices {
		marker := " "
		if answered && selected == i {
			marker = "*"
		}
		fmt.Fprintf(q.out, " %s %c. %s\n", marker, 'A'+i, choice)
	}

	if fb, ok := snap.Feedback[cq.QuestionID]; ok {
		q.printFeedback(fb)
	}
	if p := snap.Provisional; p != nil {
		fmt.Fprintf(q.out, "Provisional score: %.2f / %.0f\n", p.FinalScore, p.Scale)
	}
}

func (q *quiz) printFeedback(fb model.FeedbackRecord) {
	if fb.Status == model.FeedbackCorrect {
		fmt.Fprintln(q.out, "Correct!")
		return
	}
	fmt.Fprintf(q.out, "Wrong. Correct answer was %c. %s\n", 'A'+fb.CorrectIndex, fb.CorrectText)
}

func (q *quiz) printHelp() {
	fmt.Fprintln(q.out, "Commands: n next, p previous, j <n> jump, A-D answer (again to clear),")
	fmt.Fprintln(q.out, "          c clear, f instant feedback on/off, q finish, ? help")
}
