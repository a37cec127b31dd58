package attributes

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bom-manager/core/apperr"
)

// Decision is the operator's answer to a manufacturer conflict.
type Decision string

const (
	// KeepExisting maps the proposal onto the device on record.
	KeepExisting Decision = "keep_existing"
	// TakeNew replaces the device on record, re-keying its dependents.
	TakeNew Decision = "take_new"
	// Distinct records the proposal as a separate device.
	Distinct Decision = "distinct"
)

// Conflict is a question for the operator.
type Conflict struct {
	DeviceID string
	Field    string
	// Candidates are the distinct values. For manufacturer conflicts the
	// first is on record and the last is proposed.
	Candidates []string
}

// Decider supplies operator choices.
type Decider interface {
	// ChooseMergeAction resolves a device_id recorded under another manufacturer.
	ChooseMergeAction(c Conflict) (Decision, error)
	// ChooseValue picks the index of the canonical candidate.
	ChooseValue(c Conflict) (int, error)
}

func conflictError(c Conflict) error {
	return &apperr.ReconciliationConflictError{DeviceID: c.DeviceID, Field: c.Field, Candidates: c.Candidates}
}

// Strict is the non-interactive decider: every question is an error.
type Strict struct{}

func (Strict) ChooseMergeAction(c Conflict) (Decision, error) { return "", conflictError(c) }
func (Strict) ChooseValue(c Conflict) (int, error)            { return 0, conflictError(c) }

// Fixed answers every question the same way. Value indexes the candidates;
// a negative value counts from the end.
type Fixed struct {
	Decision Decision
	Value    int
}

func (f Fixed) ChooseMergeAction(Conflict) (Decision, error) {
	if f.Decision == "" {
		return KeepExisting, nil
	}
	return f.Decision, nil
}

func (f Fixed) ChooseValue(c Conflict) (int, error) {
	i := f.Value
	if i < 0 {
		i += len(c.Candidates)
	}
	if i < 0 || i >= len(c.Candidates) {
		return 0, conflictError(c)
	}
	return i, nil
}

// Terminal prompts the operator.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal returns a decider reading answers from in and writing prompts to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) ChooseMergeAction(c Conflict) (Decision, error) {
	fmt.Fprintf(t.out, "\nDevice %s is on record with another manufacturer:\n", c.DeviceID)
	for i, cand := range c.Candidates {
		tag := "on record"
		if i == len(c.Candidates)-1 {
			tag = "proposed"
		}
		fmt.Fprintf(t.out, "  %d) %s (%s)\n", i+1, cand, tag)
	}
	for {
		fmt.Fprint(t.out, "[k]eep existing, [t]ake new, [d]istinct parts, [a]bort: ")
		line, err := t.readLine()
		if err != nil {
			return "", err
		}
		switch strings.ToLower(line) {
		case "k", "keep":
			return KeepExisting, nil
		case "t", "take":
			return TakeNew, nil
		case "d", "distinct":
			return Distinct, nil
		case "a", "abort":
			return "", conflictError(c)
		}
	}
}

func (t *Terminal) ChooseValue(c Conflict) (int, error) {
	fmt.Fprintf(t.out, "\nDevice %s has conflicting %s values:\n", c.DeviceID, c.Field)
	for i, cand := range c.Candidates {
		fmt.Fprintf(t.out, "  %d) %s\n", i+1, cand)
	}
	for {
		fmt.Fprintf(t.out, "choose 1-%d, [a]bort: ", len(c.Candidates))
		line, err := t.readLine()
		if err != nil {
			return 0, err
		}
		if strings.EqualFold(line, "a") || strings.EqualFold(line, "abort") {
			return 0, conflictError(c)
		}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(c.Candidates) {
			return n - 1, nil
		}
	}
}

// readLine returns the next trimmed line. EOF before an answer aborts.
func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", fmt.Errorf("no answer from operator: %w", err)
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
