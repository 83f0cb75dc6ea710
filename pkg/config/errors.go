package config

// ErrorKind classifies configuration problems
type ErrorKind string

const (
	KindMissingToken         ErrorKind = "missing_token"
	KindMissingLabels        ErrorKind = "missing_labels"
	KindMissingRepos         ErrorKind = "missing_repos"
	KindMissingWebhookSecret ErrorKind = "missing_webhook_secret"
	KindInvalid              ErrorKind = "invalid"
)

// ConfigurationError is a fatal problem found before any remote call
type ConfigurationError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

var (
	ErrNoLabels = &ConfigurationError{Kind: KindMissingLabels, Message: "No labels specification has been found"}
	ErrNoRepos  = &ConfigurationError{Kind: KindMissingRepos, Message: "No repositories specification has been found"}
)
