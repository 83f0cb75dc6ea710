package labels

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Verbosity selects how much of a run the Printer reports
type Verbosity int

const (
	// VerbosityQuiet prints nothing
	VerbosityQuiet Verbosity = iota
	// VerbosityNormal prints failed events and a summary
	VerbosityNormal
	// VerbosityVerbose prints every event and a summary
	VerbosityVerbose
)

// PickVerbosity maps the --verbose/--quiet flag pair to a verbosity.
// Setting both is treated as neither.
func PickVerbosity(verbose, quiet bool) Verbosity {
	switch {
	case verbose && !quiet:
		return VerbosityVerbose
	case quiet && !verbose:
		return VerbosityQuiet
	default:
		return VerbosityNormal
	}
}

// Printer writes events and the run summary to a terminal or log
type Printer struct {
	out       io.Writer
	verbosity Verbosity
	mu        sync.Mutex

	errColor *color.Color
	okColor  *color.Color
	dryColor *color.Color
}

// NewPrinter creates a printer writing to out
func NewPrinter(out io.Writer, verbosity Verbosity) *Printer {
	return &Printer{
		out:       out,
		verbosity: verbosity,
		errColor:  color.New(color.FgRed),
		okColor:   color.New(color.FgGreen),
		dryColor:  color.New(color.FgYellow),
	}
}

// Record prints a single event according to the verbosity
func (p *Printer) Record(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.verbosity {
	case VerbosityVerbose:
		parts := append([]string{fmt.Sprintf("[%s][%s] %s", event.Operation, p.outcome(event.Outcome), event.Repo)}, eventArgs(event)...)
		fmt.Fprintln(p.out, strings.Join(parts, "; "))
	case VerbosityNormal:
		if event.Outcome != OutcomeError {
			return
		}
		parts := append([]string{p.errColor.Sprint("ERROR: ") + string(event.Operation), event.Repo}, eventArgs(event)...)
		fmt.Fprintln(p.out, strings.Join(parts, "; "))
	}
}

// Summary prints the closing summary line
func (p *Printer) Summary(summary RunSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.verbosity {
	case VerbosityVerbose:
		fmt.Fprintln(p.out, "[SUMMARY] "+summaryText(summary))
	case VerbosityNormal:
		fmt.Fprintln(p.out, "SUMMARY: "+summaryText(summary))
	}
}

func (p *Printer) outcome(outcome Outcome) string {
	switch outcome {
	case OutcomeError:
		return p.errColor.Sprint(outcome)
	case OutcomeSuccess:
		return p.okColor.Sprint(outcome)
	case OutcomeDryRun:
		return p.dryColor.Sprint(outcome)
	}
	return string(outcome)
}

// eventArgs returns the trailing fields of an event line
func eventArgs(event Event) []string {
	var args []string
	if event.Operation != OpListLabels {
		args = append(args, event.Name, event.Color)
	}
	if detail := event.Detail(); detail != "" {
		args = append(args, detail)
	}
	return args
}

func summaryText(summary RunSummary) string {
	if summary.Errors > 0 {
		return fmt.Sprintf("%d error(s) in total, please check log above", summary.Errors)
	}
	return fmt.Sprintf("%d repo(s) updated successfully", summary.Repos)
}
