package labels

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestPickVerbosity(t *testing.T) {
	assert.Equal(t, VerbosityNormal, PickVerbosity(false, false))
	assert.Equal(t, VerbosityVerbose, PickVerbosity(true, false))
	assert.Equal(t, VerbosityQuiet, PickVerbosity(false, true))
	assert.Equal(t, VerbosityNormal, PickVerbosity(true, true))
}

func TestPrinter(t *testing.T) {
	color.NoColor = true

	events := []Event{
		{Operation: OpCreate, Outcome: OutcomeSuccess, Repo: "org/a", Name: "triage", Color: "00ff00"},
		{Operation: OpUpdate, Outcome: OutcomeDryRun, Repo: "org/a", Name: "Bug", Color: "ff0000"},
		{Operation: OpDelete, Outcome: OutcomeError, Repo: "org/a", Name: "stale", Color: "000000",
			Err: &codedError{status: 404, message: "Not Found"}},
		{Operation: OpListLabels, Outcome: OutcomeError, Repo: "org/b",
			Err: &codedError{status: 403, message: "Forbidden"}},
	}

	tests := []struct {
		name      string
		verbosity Verbosity
		summary   RunSummary
		want      string
	}{
		{
			name:      "verbose",
			verbosity: VerbosityVerbose,
			summary:   RunSummary{Repos: 2, Errors: 2},
			want: "[ADD][SUC] org/a; triage; 00ff00\n" +
				"[UPD][DRY] org/a; Bug; ff0000\n" +
				"[DEL][ERR] org/a; stale; 000000; 404 - Not Found\n" +
				"[LBL][ERR] org/b; 403 - Forbidden\n" +
				"[SUMMARY] 2 error(s) in total, please check log above\n",
		},
		{
			name:      "normal",
			verbosity: VerbosityNormal,
			summary:   RunSummary{Repos: 2, Errors: 2},
			want: "ERROR: DEL; org/a; stale; 000000; 404 - Not Found\n" +
				"ERROR: LBL; org/b; 403 - Forbidden\n" +
				"SUMMARY: 2 error(s) in total, please check log above\n",
		},
		{
			name:      "quiet",
			verbosity: VerbosityQuiet,
			summary:   RunSummary{Repos: 2, Errors: 2},
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printer := NewPrinter(&buf, tt.verbosity)
			for _, event := range events {
				printer.Record(event)
			}
			printer.Summary(tt.summary)

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrinterSuccessSummary(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	NewPrinter(&buf, VerbosityNormal).Summary(RunSummary{Repos: 3})
	assert.Equal(t, "SUMMARY: 3 repo(s) updated successfully\n", buf.String())

	buf.Reset()
	NewPrinter(&buf, VerbosityVerbose).Summary(RunSummary{Repos: 1})
	assert.Equal(t, "[SUMMARY] 1 repo(s) updated successfully\n", buf.String())
}
