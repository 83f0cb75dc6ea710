package fuzzy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

var (
	// ErrNoOptions is returned when Select is called without options
	ErrNoOptions = errors.New("no options available")
	// ErrCancelled is returned when the user aborts the selection
	ErrCancelled = errors.New("selection cancelled")
)

// Option represents a selectable option in the fuzzy finder
type Option struct {
	Value       string
	Description string
}

// Selector picks exactly one option
type Selector interface {
	SetOptions(options []Option) error
	SetPrompt(prompt string)
	Select() (string, error)
}

// Finder is a line-based picker for terminals where fzf cannot run.
// Typing text filters the options, typing a number selects one.
type Finder struct {
	prompt  string
	options []Option
	in      *bufio.Reader
	out     io.Writer
}

// New creates a finder reading stdin and writing stdout
func New(prompt string) *Finder {
	return NewWithIO(prompt, os.Stdin, os.Stdout)
}

// NewWithIO creates a finder over the given streams
func NewWithIO(prompt string, in io.Reader, out io.Writer) *Finder {
	return &Finder{
		prompt:  prompt,
		options: make([]Option, 0),
		in:      bufio.NewReader(in),
		out:     out,
	}
}

// AddOption adds an option to the finder
func (f *Finder) AddOption(value, description string) {
	f.options = append(f.options, Option{Value: value, Description: description})
}

// SetOptions replaces the available options
func (f *Finder) SetOptions(options []Option) error {
	if options == nil {
		return fmt.Errorf("options cannot be nil")
	}
	f.options = append(make([]Option, 0, len(options)), options...)
	return nil
}

// SetPrompt updates the prompt message
func (f *Finder) SetPrompt(prompt string) {
	f.prompt = prompt
}

// Options returns the available options
func (f *Finder) Options() []Option {
	return f.options
}

// Select lists the options and reads until one is chosen. A filter that
// matches a single option selects it.
func (f *Finder) Select() (string, error) {
	if len(f.options) == 0 {
		return "", ErrNoOptions
	}

	visible := f.options
	fmt.Fprintln(f.out, f.prompt)
	f.list(visible)

	for {
		fmt.Fprintf(f.out, "Filter or select (1-%d): ", len(visible))
		line, err := f.in.ReadString('\n')
		input := strings.TrimSpace(line)
		if err != nil && input == "" {
			if errors.Is(err, io.EOF) {
				return "", ErrCancelled
			}
			return "", fmt.Errorf("failed to read input: %w", err)
		}

		switch {
		case input == "":
			visible = f.options
			f.list(visible)
			continue
		case isNumber(input):
			n, _ := strconv.Atoi(input)
			if n >= 1 && n <= len(visible) {
				return visible[n-1].Value, nil
			}
			fmt.Fprintf(f.out, "Selection %d is out of range (1-%d)\n", n, len(visible))
			continue
		}

		filtered := f.filterOptions(input)
		switch len(filtered) {
		case 0:
			fmt.Fprintf(f.out, "No options match filter: %s\n", input)
		case 1:
			fmt.Fprintf(f.out, "Auto-selecting: %s\n", filtered[0].Value)
			return filtered[0].Value, nil
		default:
			visible = filtered
			f.list(visible)
		}
	}
}

func (f *Finder) list(options []Option) {
	for i, option := range options {
		if option.Description != "" {
			fmt.Fprintf(f.out, "%d. %s - %s\n", i+1, option.Value, option.Description)
			continue
		}
		fmt.Fprintf(f.out, "%d. %s\n", i+1, option.Value)
	}
}

// filterOptions returns the options whose value or description contains
// filter, ignoring case
func (f *Finder) filterOptions(filter string) []Option {
	filter = strings.ToLower(filter)
	var filtered []Option
	for _, option := range f.options {
		if strings.Contains(strings.ToLower(option.Value), filter) ||
			strings.Contains(strings.ToLower(option.Description), filter) {
			filtered = append(filtered, option)
		}
	}
	return filtered
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// IsInteractive reports whether stdin and stdout are both terminals able to
// host a picker
func IsInteractive() bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	termType := os.Getenv("TERM")
	return termType != "" && termType != "dumb"
}

// PickRepository offers repos through s and returns the chosen slug
func PickRepository(s Selector, prompt string, repos []string) (string, error) {
	options := make([]Option, 0, len(repos))
	for _, repo := range repos {
		options = append(options, Option{Value: repo})
	}
	if err := s.SetOptions(options); err != nil {
		return "", err
	}
	s.SetPrompt(prompt)
	return s.Select()
}
