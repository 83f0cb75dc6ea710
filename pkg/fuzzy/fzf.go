package fuzzy

import (
	"errors"
	"fmt"
	"strings"

	fzf "github.com/junegunn/fzf/src"
)

// descriptionSeparator joins value and description on an fzf line
const descriptionSeparator = "  │  "

// ErrNoSelection is returned when fzf exits without a match
var ErrNoSelection = errors.New("no selection made")

// FzfRunner runs fzf with parsed options
type FzfRunner interface {
	Run(opts *fzf.Options) (int, error)
}

// DefaultFzfRunner runs the embedded fzf library
type DefaultFzfRunner struct{}

// Run executes fzf with the given options
func (DefaultFzfRunner) Run(opts *fzf.Options) (int, error) {
	return fzf.Run(opts)
}

// FzfFinder selects an option with the embedded fzf. Options are streamed
// through the fzf input channel and the choice read back from its output
// channel; when fzf cannot run the line-based Finder takes over.
type FzfFinder struct {
	prompt   string
	options  []Option
	runner   FzfRunner
	fallback func(prompt string) Selector
}

// NewFzf creates an fzf-backed finder
func NewFzf(prompt string) *FzfFinder {
	return NewFzfWithRunner(prompt, DefaultFzfRunner{})
}

// NewFzfWithRunner creates an fzf-backed finder with a custom runner
func NewFzfWithRunner(prompt string, runner FzfRunner) *FzfFinder {
	return &FzfFinder{
		prompt:  prompt,
		options: make([]Option, 0),
		runner:  runner,
		fallback: func(prompt string) Selector {
			return New(prompt)
		},
	}
}

// SetOptions sets the available options for selection
func (f *FzfFinder) SetOptions(options []Option) error {
	if options == nil {
		return fmt.Errorf("options cannot be nil")
	}
	f.options = append(make([]Option, 0, len(options)), options...)
	return nil
}

// SetPrompt sets the display prompt
func (f *FzfFinder) SetPrompt(prompt string) {
	f.prompt = prompt
}

// Select runs fzf and returns the value of the chosen option
func (f *FzfFinder) Select() (string, error) {
	if len(f.options) == 0 {
		return "", ErrNoOptions
	}

	opts, err := fzf.ParseOptions(true, []string{
		"--prompt=" + f.prompt + " ",
		"--height=40%",
		"--layout=reverse",
		"--no-multi",
		"--cycle",
		"--tiebreak=length",
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse fzf options: %w", err)
	}

	input := make(chan string, len(f.options))
	for _, option := range f.options {
		input <- displayText(option)
	}
	close(input)

	output := make(chan string)
	done := make(chan []string)
	go func() {
		var selected []string
		for line := range output {
			selected = append(selected, line)
		}
		done <- selected
	}()

	opts.Input = input
	opts.Output = output
	code, err := f.runner.Run(opts)
	close(output)
	selected := <-done

	if err != nil {
		return f.fallbackSelect()
	}

	switch code {
	case fzf.ExitOk:
	case fzf.ExitInterrupt:
		return "", ErrCancelled
	default:
		return "", ErrNoSelection
	}
	if len(selected) == 0 {
		return "", ErrNoSelection
	}

	value := strings.TrimSpace(strings.SplitN(selected[0], descriptionSeparator, 2)[0])
	for _, option := range f.options {
		if option.Value == value {
			return option.Value, nil
		}
	}
	return "", fmt.Errorf("unknown selection %q", value)
}

func (f *FzfFinder) fallbackSelect() (string, error) {
	finder := f.fallback(f.prompt)
	if err := finder.SetOptions(f.options); err != nil {
		return "", err
	}
	return finder.Select()
}

func displayText(option Option) string {
	if option.Description == "" {
		return option.Value
	}
	return option.Value + descriptionSeparator + option.Description
}

var (
	_ Selector = (*FzfFinder)(nil)
	_ Selector = (*Finder)(nil)
)
