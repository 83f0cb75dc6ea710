package cmd

import (
	"errors"
	"net/http"
	"strconv"

	"labelord/pkg/config"
	"labelord/pkg/github"
	"labelord/pkg/labels"
)

// Process exit statuses
const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitNoToken         = 3
	ExitUnauthorized    = 4
	ExitNotFound        = 5
	ExitNoLabels        = 6
	ExitNoRepos         = 7
	ExitNoWebhookSecret = 8
	ExitRunErrors       = int(labels.ExitError)
)

// ExitError carries an explicit exit status. Err is nil when everything
// worth saying has already been printed.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status " + strconv.Itoa(e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

var configExitCodes = map[config.ErrorKind]int{
	config.KindMissingToken:         ExitNoToken,
	config.KindMissingLabels:        ExitNoLabels,
	config.KindMissingRepos:         ExitNoRepos,
	config.KindMissingWebhookSecret: ExitNoWebhookSecret,
}

var githubExitCodes = map[int]int{
	http.StatusUnauthorized: ExitUnauthorized,
	http.StatusNotFound:     ExitNotFound,
}

// exitCode maps an error returned by a command to the process status
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		if code, ok := configExitCodes[cfgErr.Kind]; ok {
			return code
		}
		return ExitFailure
	}

	var ghErr *github.Error
	if errors.As(err, &ghErr) {
		if code, ok := githubExitCodes[ghErr.StatusCode]; ok {
			return code
		}
		return ExitRunErrors
	}

	return ExitFailure
}

// errorMessage renders err for stderr
func errorMessage(err error) string {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return ""
	}

	var ghErr *github.Error
	if errors.As(err, &ghErr) {
		return "GitHub: ERROR " + ghErr.CodeMessage()
	}
	return err.Error()
}
