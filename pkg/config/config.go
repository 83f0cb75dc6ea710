package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"labelord/pkg/labels"
)

const (
	// DefaultConfigFile is used when neither --config nor LABELORD_CONFIG is set
	DefaultConfigFile = "./config.cfg"

	// EnvConfigPath names the configuration file
	EnvConfigPath = "LABELORD_CONFIG"
	// EnvToken overrides the token from the configuration file
	EnvToken = "GITHUB_TOKEN"
)

// Config represents the labelord configuration
type Config struct {
	GitHub       GitHubConfig  `yaml:"github"`
	Labels       LabelSpec     `yaml:"labels"`
	Repos        RepoSpec      `yaml:"repos"`
	TemplateRepo string        `yaml:"template_repo"`
	Timeout      time.Duration `yaml:"timeout"`
	Concurrency  int           `yaml:"concurrency"`
	Server       ServerConfig  `yaml:"server"`

	path string
}

// GitHubConfig represents GitHub credentials
type GitHubConfig struct {
	Token         string `yaml:"token"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// ServerConfig represents replication server settings
type ServerConfig struct {
	Address    string        `yaml:"address"`
	EchoWindow time.Duration `yaml:"echo_window"`
}

// LabelSpec is the static label specification. A nil spec means the
// configuration has no labels section at all.
type LabelSpec labels.LabelSet

// UnmarshalYAML reads label values verbatim so colours such as 000000 stay
// strings.
func (s *LabelSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: labels must be a mapping of name to colour", node.Line)
	}
	spec := LabelSpec{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: colour of label %q must be a scalar", value.Line, key.Value)
		}
		spec[key.Value] = value.Value
	}
	*s = spec
	return nil
}

// RepoSpec maps repository slugs to whether they are enabled. A nil spec
// means the configuration has no repos section at all.
type RepoSpec map[string]bool

// Path returns the file the configuration was loaded from
func (c *Config) Path() string {
	return c.path
}

// ResolvePath picks the configuration file: the explicit path, then
// LABELORD_CONFIG, then DefaultConfigFile.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultConfigFile
}

// LoadConfig loads configuration from the resolved location and applies
// environment overrides.
func LoadConfig(explicit string) (*Config, error) {
	cfg, err := LoadConfigFromPath(ResolvePath(explicit))
	if err != nil {
		return nil, err
	}
	if token := os.Getenv(EnvToken); token != "" {
		cfg.GitHub.Token = strings.TrimSpace(token)
	}
	return cfg, nil
}

// LoadConfigFromPath loads configuration from a specific path. Files ending
// in .yaml or .yml are YAML; anything else is read as INI.
func LoadConfigFromPath(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{path: path}, nil // Return empty config if file doesn't exist
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = parseYAML(data)
	default:
		cfg, err = parseINI(data)
	}
	if err != nil {
		return nil, &ConfigurationError{
			Kind:    KindInvalid,
			Message: fmt.Sprintf("failed to parse config file %s", path),
			Cause:   err,
		}
	}
	cfg.path = path

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseINI reads the classic layout:
//
//	[github]  token, webhook_secret
//	[labels]  name = colour
//	[repos]   owner/name = on|off
//	[others]  template-repo
func parseINI(data []byte) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
	}, data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	github := file.Section("github")
	cfg.GitHub.Token = github.Key("token").String()
	cfg.GitHub.WebhookSecret = github.Key("webhook_secret").String()

	if file.HasSection("labels") {
		cfg.Labels = LabelSpec{}
		for _, key := range file.Section("labels").Keys() {
			cfg.Labels[key.Name()] = key.String()
		}
	}

	if file.HasSection("repos") {
		cfg.Repos = RepoSpec{}
		for _, key := range file.Section("repos").Keys() {
			cfg.Repos[key.Name()] = key.MustBool(false)
		}
	}

	if file.HasSection("others") {
		others := file.Section("others")
		cfg.TemplateRepo = others.Key("template-repo").String()
		if others.HasKey("timeout") {
			cfg.Timeout = others.Key("timeout").MustDuration()
		}
		cfg.Concurrency = others.Key("concurrency").MustInt(0)
	}

	if file.HasSection("server") {
		server := file.Section("server")
		cfg.Server.Address = server.Key("address").String()
		if server.HasKey("echo_window") {
			cfg.Server.EchoWindow = server.Key("echo_window").MustDuration()
		}
	}

	return cfg, nil
}

// normalize trims credentials and canonicalises label colours
func (c *Config) normalize() error {
	c.GitHub.Token = strings.TrimSpace(c.GitHub.Token)
	c.GitHub.WebhookSecret = strings.TrimSpace(c.GitHub.WebhookSecret)
	c.TemplateRepo = strings.TrimSpace(c.TemplateRepo)

	var invalid []string
	for name, color := range c.Labels {
		normalized, err := NormalizeColor(color)
		if err != nil {
			invalid = append(invalid, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		c.Labels[name] = normalized
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return &ConfigurationError{
			Kind:    KindInvalid,
			Message: "invalid label colours: " + strings.Join(invalid, "; "),
		}
	}
	return c.Validate()
}

var colorPattern = regexp.MustCompile(`^[0-9a-f]{6}$`)

// NormalizeColor strips a leading '#', lower-cases the colour and checks
// that six hex digits remain.
func NormalizeColor(color string) (string, error) {
	normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(color), "#"))
	if !colorPattern.MatchString(normalized) {
		return "", fmt.Errorf("colour %q is not six hex digits", color)
	}
	return normalized, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return &ConfigurationError{Kind: KindInvalid, Message: "timeout must not be negative"}
	}
	if c.Concurrency < 0 {
		return &ConfigurationError{Kind: KindInvalid, Message: "concurrency must not be negative"}
	}
	if c.Server.EchoWindow < 0 {
		return &ConfigurationError{Kind: KindInvalid, Message: "server echo_window must not be negative"}
	}
	return nil
}

// RequireToken returns the GitHub token or a missing_token error
func (c *Config) RequireToken() (string, error) {
	if c.GitHub.Token == "" {
		return "", &ConfigurationError{Kind: KindMissingToken, Message: "No GitHub token has been provided"}
	}
	return c.GitHub.Token, nil
}

// RequireWebhookSecret returns the webhook secret or a
// missing_webhook_secret error
func (c *Config) RequireWebhookSecret() (string, error) {
	if c.GitHub.WebhookSecret == "" {
		return "", &ConfigurationError{Kind: KindMissingWebhookSecret, Message: "No webhook secret has been provided"}
	}
	return c.GitHub.WebhookSecret, nil
}

// StaticLabels returns the [labels] specification or a missing_labels
// error when the configuration has none.
func (c *Config) StaticLabels() (labels.LabelSet, error) {
	if c.Labels == nil {
		return nil, ErrNoLabels
	}
	out := labels.LabelSet{}
	for name, color := range c.Labels {
		out[name] = color
	}
	return out, nil
}

// WatchedRepos returns the enabled repositories in sorted order, or a
// missing_repos error when the configuration has no repos section.
func (c *Config) WatchedRepos() ([]string, error) {
	if c.Repos == nil {
		return nil, ErrNoRepos
	}
	repos := make([]string, 0, len(c.Repos))
	for repo, enabled := range c.Repos {
		if enabled {
			repos = append(repos, repo)
		}
	}
	sort.Strings(repos)
	return repos, nil
}

// IsKind reports whether err is a ConfigurationError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr) && cfgErr.Kind == kind
}
