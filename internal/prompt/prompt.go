// Package prompt asks for values on a line-oriented terminal, re-asking
// until the answer validates.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	optionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	ErrNoResponse = errors.New("no response")
)

// Validator converts an answer into a value or explains why it is invalid.
type Validator[T any] func(answer string) (T, error)

type state int

const (
	stateAsk state = iota
	stateValidate
	stateAccept
)

// Prompter reads answers from in and writes questions to out.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Heading prints a styled section title.
func (p *Prompter) Heading(title string) {
	fmt.Fprintln(p.out, headingStyle.Render(title))
}

// Ask repeats question until validate accepts the answer. It fails only
// when the input ends.
func Ask[T any](p *Prompter, question string, validate Validator[T]) (T, error) {
	var (
		value  T
		answer string
		st     = stateAsk
	)
	for {
		switch st {
		case stateAsk:
			fmt.Fprintf(p.out, "%s ", question)
			line, err := p.in.ReadString('\n')
			if err != nil && (err != io.EOF || line == "") {
				var zero T
				if err == io.EOF {
					return zero, fmt.Errorf("%w to %q", ErrNoResponse, question)
				}
				return zero, fmt.Errorf("failed to read answer: %w", err)
			}
			answer = strings.TrimSpace(line)
			st = stateValidate
		case stateValidate:
			v, err := validate(answer)
			if err != nil {
				fmt.Fprintln(p.out, errorStyle.Render("Invalid input: "+err.Error()))
				st = stateAsk
				continue
			}
			value = v
			st = stateAccept
		case stateAccept:
			return value, nil
		}
	}
}

// Option is one entry of a menu.
type Option[T any] struct {
	Label string
	Value T
	// Custom options ask a follow-up question validated by the menu's custom validator.
	Custom bool
}

// Menu lists options numbered from 1 and returns the chosen value.
func Menu[T any](p *Prompter, title string, options []Option[T], custom Validator[T], customQuestion string) (T, error) {
	p.Heading(title)
	for i, opt := range options {
		fmt.Fprintln(p.out, optionStyle.Render(fmt.Sprintf("  %d. %s", i+1, opt.Label)))
	}

	choice, err := Ask(p, fmt.Sprintf("Choose 1-%d:", len(options)), Choice(len(options)))
	if err != nil {
		var zero T
		return zero, err
	}

	selected := options[choice-1]
	if selected.Custom && custom != nil {
		return Ask(p, customQuestion, custom)
	}
	return selected.Value, nil
}

// Choice accepts a menu number between 1 and n.
func Choice(n int) Validator[int] {
	return func(answer string) (int, error) {
		choice, err := strconv.Atoi(answer)
		if err != nil || choice < 1 || choice > n {
			return 0, fmt.Errorf("enter a number between 1 and %d", n)
		}
		return choice, nil
	}
}

// Integer accepts a whole number not below lowest.
func Integer(lowest int) Validator[int] {
	return func(answer string) (int, error) {
		n, err := strconv.Atoi(answer)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", answer)
		}
		if n < lowest {
			return 0, fmt.Errorf("must be at least %d", lowest)
		}
		return n, nil
	}
}

// Text accepts any answer, substituting def for an empty one.
func Text(def string) Validator[string] {
	return func(answer string) (string, error) {
		if answer == "" {
			if def == "" {
				return "", errors.New("a value is required")
			}
			return def, nil
		}
		return answer, nil
	}
}

// Optional wraps validate so that an empty answer yields the zero value.
func Optional[T any](validate Validator[T]) Validator[T] {
	return func(answer string) (T, error) {
		if answer == "" {
			var zero T
			return zero, nil
		}
		return validate(answer)
	}
}
