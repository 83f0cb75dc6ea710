package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"labelord/pkg/config"
	"labelord/pkg/github"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil", err: nil, expected: ExitOK},
		{name: "explicit", err: &ExitError{Code: ExitRunErrors}, expected: ExitRunErrors},
		{name: "missing token", err: &config.ConfigurationError{Kind: config.KindMissingToken}, expected: ExitNoToken},
		{name: "missing labels", err: config.ErrNoLabels, expected: ExitNoLabels},
		{name: "missing repos", err: fmt.Errorf("resolving: %w", config.ErrNoRepos), expected: ExitNoRepos},
		{name: "missing secret", err: &config.ConfigurationError{Kind: config.KindMissingWebhookSecret}, expected: ExitNoWebhookSecret},
		{name: "invalid config", err: &config.ConfigurationError{Kind: config.KindInvalid}, expected: ExitFailure},
		{name: "unauthorized", err: &github.Error{StatusCode: 401}, expected: ExitUnauthorized},
		{name: "not found", err: &github.Error{StatusCode: 404}, expected: ExitNotFound},
		{name: "other github error", err: &github.Error{StatusCode: 500}, expected: ExitRunErrors},
		{name: "network error", err: &github.Error{Type: github.ErrorTypeNetwork}, expected: ExitRunErrors},
		{name: "anything else", err: errors.New("boom"), expected: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, exitCode(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Empty(t, errorMessage(&ExitError{Code: ExitRunErrors}))
	assert.Equal(t, "boom", errorMessage(&ExitError{Code: ExitFailure, Err: errors.New("boom")}))
	assert.Equal(t, "GitHub: ERROR 404 - Not Found",
		errorMessage(fmt.Errorf("listing: %w", &github.Error{StatusCode: 404, Reason: "Not Found"})))
	assert.Equal(t, "No labels specification has been found", errorMessage(config.ErrNoLabels))
}

func TestExitErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := &ExitError{Code: 2, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cause", err.Error())
	assert.Equal(t, "exit status 10", (&ExitError{Code: 10}).Error())
}
