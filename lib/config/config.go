// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Provider names a settlement backend.
const (
	ProviderMemory = "memory"
	ProviderMollie = "mollie"
)

// Duration is a time.Duration written as a Go duration string ("30m")
// in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return fmt.Errorf("line %d: duration must be a string like \"30m\"", value.Line)
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the master configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Paths      PathsConfig      `yaml:"paths"`
	Service    ServiceConfig    `yaml:"service"`
	Mandate    MandateConfig    `yaml:"mandate"`
	Signing    SigningConfig    `yaml:"signing"`
	Settlement SettlementConfig `yaml:"settlement"`
	Customer   CustomerConfig   `yaml:"customer"`
	Events     EventsConfig     `yaml:"events"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Service    *ServiceConfig    `yaml:"service,omitempty"`
	Signing    *SigningConfig    `yaml:"signing,omitempty"`
	Settlement *SettlementConfig `yaml:"settlement,omitempty"`
	Customer   *CustomerConfig   `yaml:"customer,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for service state.
	Root string `yaml:"root"`

	// Exports is where `ap2 audit export` writes by default.
	Exports string `yaml:"exports"`
}

// ServiceConfig configures the mandate service's listeners.
type ServiceConfig struct {
	// SocketPath is the CBOR socket the CLI talks to.
	SocketPath string `yaml:"socket_path"`

	// HTTPAddress serves webhooks, the event stream, and admin
	// routes. Empty disables HTTP.
	HTTPAddress string `yaml:"http_address"`

	// PublicURL is the externally reachable base of HTTPAddress. The
	// provider webhook URL is derived from it.
	PublicURL string `yaml:"public_url"`
}

// MandateConfig sets mandate defaults.
type MandateConfig struct {
	Currency   string   `yaml:"currency"`
	IntentTTL  Duration `yaml:"intent_ttl"`
	CartTTL    Duration `yaml:"cart_ttl"`
	PaymentTTL Duration `yaml:"payment_ttl"`
}

// SigningConfig locates the shared signing secret. SealedFile, when
// set, takes precedence over SecretEnv.
type SigningConfig struct {
	SecretEnv    string `yaml:"secret_env"`
	SealedFile   string `yaml:"sealed_file"`
	IdentityFile string `yaml:"identity_file"`
}

// SettlementConfig configures the payment provider.
type SettlementConfig struct {
	// Provider is "memory" or "mollie".
	Provider string `yaml:"provider"`

	MollieBaseURL string `yaml:"mollie_base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`

	// RedirectURL is where interactive checkouts return.
	RedirectURL string `yaml:"redirect_url"`

	PollAttempts int      `yaml:"poll_attempts"`
	PollInterval Duration `yaml:"poll_interval"`

	BreakerFailures uint32   `yaml:"breaker_failures"`
	BreakerCooldown Duration `yaml:"breaker_cooldown"`

	// RequestTimeout bounds each provider HTTP request.
	RequestTimeout Duration `yaml:"request_timeout"`
}

// CustomerConfig is the identity used for the provider customer.
type CustomerConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// EventsConfig sizes the live event stream.
type EventsConfig struct {
	History   int      `yaml:"history"`
	Buffer    int      `yaml:"buffer"`
	Replay    int      `yaml:"replay"`
	Heartbeat Duration `yaml:"heartbeat"`
}

// Default returns the base configuration a file is merged into.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "ap2")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:    defaultRoot,
			Exports: filepath.Join(defaultRoot, "exports"),
		},
		Service: ServiceConfig{
			SocketPath:  filepath.Join(defaultRoot, "mandate.sock"),
			HTTPAddress: "127.0.0.1:8787",
			PublicURL:   "http://127.0.0.1:8787",
		},
		Mandate: MandateConfig{
			Currency:   "EUR",
			IntentTTL:  Duration(60 * time.Minute),
			CartTTL:    Duration(time.Hour),
			PaymentTTL: Duration(30 * time.Minute),
		},
		Signing: SigningConfig{
			SecretEnv: "AP2_SIGNING_SECRET",
		},
		Settlement: SettlementConfig{
			Provider:        ProviderMemory,
			MollieBaseURL:   "https://api.mollie.com/v2",
			APIKeyEnv:       "MOLLIE_API_KEY",
			RedirectURL:     "http://127.0.0.1:8787/done",
			PollAttempts:    3,
			PollInterval:    Duration(2 * time.Second),
			BreakerFailures: 5,
			BreakerCooldown: Duration(30 * time.Second),
			RequestTimeout:  Duration(15 * time.Second),
		},
		Customer: CustomerConfig{
			Name:  "AP2 Demo Customer",
			Email: "demo@ap2.example",
		},
		Events: EventsConfig{
			History:   100,
			Buffer:    64,
			Replay:    20,
			Heartbeat: Duration(30 * time.Second),
		},
	}
}

// Load loads configuration from the file named by AP2_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv("AP2_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("AP2_CONFIG environment variable not set; " +
			"set it to the path of your ap2.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, applies the environment
// section, and expands variables. It does not validate.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if service := overrides.Service; service != nil {
		setString(&c.Service.SocketPath, service.SocketPath)
		setString(&c.Service.HTTPAddress, service.HTTPAddress)
		setString(&c.Service.PublicURL, service.PublicURL)
	}
	if signing := overrides.Signing; signing != nil {
		setString(&c.Signing.SecretEnv, signing.SecretEnv)
		setString(&c.Signing.SealedFile, signing.SealedFile)
		setString(&c.Signing.IdentityFile, signing.IdentityFile)
	}
	if settlement := overrides.Settlement; settlement != nil {
		setString(&c.Settlement.Provider, settlement.Provider)
		setString(&c.Settlement.MollieBaseURL, settlement.MollieBaseURL)
		setString(&c.Settlement.APIKeyEnv, settlement.APIKeyEnv)
		setString(&c.Settlement.RedirectURL, settlement.RedirectURL)
		if settlement.PollAttempts != 0 {
			c.Settlement.PollAttempts = settlement.PollAttempts
		}
		if settlement.PollInterval != 0 {
			c.Settlement.PollInterval = settlement.PollInterval
		}
	}
	if customer := overrides.Customer; customer != nil {
		setString(&c.Customer.Name, customer.Name)
		setString(&c.Customer.Email, customer.Email)
	}
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"AP2_ROOT": c.Paths.Root,
		"HOME":     os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["AP2_ROOT"] = c.Paths.Root

	c.Paths.Exports = expandVars(c.Paths.Exports, vars)
	c.Service.SocketPath = expandVars(c.Service.SocketPath, vars)
	c.Service.PublicURL = expandVars(c.Service.PublicURL, vars)
	c.Signing.SealedFile = expandVars(c.Signing.SealedFile, vars)
	c.Signing.IdentityFile = expandVars(c.Signing.IdentityFile, vars)
	c.Settlement.MollieBaseURL = expandVars(c.Settlement.MollieBaseURL, vars)
	c.Settlement.RedirectURL = expandVars(c.Settlement.RedirectURL, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. vars is consulted
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// WebhookURL is where the provider posts status callbacks. Empty when
// no public URL is configured.
func (c *Config) WebhookURL() string {
	if c.Service.PublicURL == "" {
		return ""
	}
	return strings.TrimRight(c.Service.PublicURL, "/") + "/webhook/mollie"
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Paths.Root == "" {
		errs = append(errs, errors.New("paths.root is required"))
	}
	if c.Service.SocketPath == "" {
		errs = append(errs, errors.New("service.socket_path is required"))
	}
	if c.Service.PublicURL != "" {
		if parsed, err := url.Parse(c.Service.PublicURL); err != nil || parsed.Host == "" {
			errs = append(errs, fmt.Errorf("service.public_url %q is not an absolute URL", c.Service.PublicURL))
		}
	}

	if len(c.Mandate.Currency) != 3 {
		errs = append(errs, fmt.Errorf("mandate.currency must be a three-letter code, got %q", c.Mandate.Currency))
	}
	for name, ttl := range map[string]Duration{
		"mandate.intent_ttl":  c.Mandate.IntentTTL,
		"mandate.cart_ttl":    c.Mandate.CartTTL,
		"mandate.payment_ttl": c.Mandate.PaymentTTL,
	} {
		if ttl <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if c.Signing.SealedFile != "" && c.Signing.IdentityFile == "" {
		errs = append(errs, errors.New("signing.identity_file is required with signing.sealed_file"))
	}
	if c.Signing.SealedFile == "" && c.Signing.SecretEnv == "" {
		errs = append(errs, errors.New("signing needs secret_env or sealed_file"))
	}

	switch c.Settlement.Provider {
	case ProviderMemory:
		if c.Environment == Production {
			errs = append(errs, errors.New("settlement.provider memory is not allowed in production"))
		}
	case ProviderMollie:
		if c.Settlement.APIKeyEnv == "" {
			errs = append(errs, errors.New("settlement.api_key_env is required for mollie"))
		}
		if !strings.HasPrefix(c.Settlement.MollieBaseURL, "https://") && c.Environment == Production {
			errs = append(errs, errors.New("settlement.mollie_base_url must use HTTPS in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("settlement.provider must be one of: %v", []string{ProviderMemory, ProviderMollie}))
	}
	if c.Settlement.PollAttempts < 1 {
		errs = append(errs, errors.New("settlement.poll_attempts must be at least 1"))
	}
	if c.Settlement.PollInterval <= 0 {
		errs = append(errs, errors.New("settlement.poll_interval must be positive"))
	}

	if c.Customer.Email == "" || !strings.Contains(c.Customer.Email, "@") {
		errs = append(errs, fmt.Errorf("customer.email %q is not an email address", c.Customer.Email))
	}
	if c.Events.History < 1 || c.Events.Replay < 0 || c.Events.Replay > c.Events.History {
		errs = append(errs, errors.New("events.replay must be between 0 and events.history"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the configured directories.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.Root, c.Paths.Exports, filepath.Dir(c.Service.SocketPath)} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
