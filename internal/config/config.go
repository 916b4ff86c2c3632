package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var ErrEmptyEnvironmentVariable = errors.New("empty environment variable")

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Twilio    TwilioConfig
	AI        AIConfig
	Project   ProjectConfig
	Dialogue  DialogueConfig
	Logs      LogsConfig
	Database  DatabaseConfig
	Leads     LeadsConfig
	APIKey    string // optional shared secret for the non-webhook endpoints
	PublicURL string // externally reachable base URL for Twilio callbacks
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
}

// TwilioConfig holds Twilio account settings and default numbers
type TwilioConfig struct {
	AccountSID         string
	AuthToken          string
	PhoneNumber        string // caller ID for outbound calls
	TargetPhoneNumber  string // default destination when outbound request omits one
	ValidateSignatures bool
}

// AIConfig holds settings for the Gemini responder
type AIConfig struct {
	GoogleAIAPIKey string
	Model          string
	TimeoutSeconds int
}

// ProjectConfig describes the property the agent is selling
type ProjectConfig struct {
	CompanyName   string
	ProjectName   string
	Location      string
	StartingPrice string
	UnitTypes     string
}

// DialogueConfig bounds the conversation loop
type DialogueConfig struct {
	NoInputRetryLimit int // re-prompts before giving up on a silent caller
	MaxTurns          int // hard cap on classified utterances per call
}

// LogsConfig holds call log and recording storage locations
type LogsConfig struct {
	CallLogDir   string
	RecordingDir string
}

// DatabaseConfig holds the optional Postgres call-log sink settings.
// The sink is disabled when Host is empty.
type DatabaseConfig struct {
	Host     string
	Username string
	Password string
	Name     string
}

// LeadsConfig holds the optional completed-call email notification settings.
// Disabled when ResendAPIKey is empty.
type LeadsConfig struct {
	ResendAPIKey string
	FromAddress  string
	ToAddress    string
}

// Load reads and validates all required environment variables
func Load() (*Config, error) {
	// Load env.local in non-production environments
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil {
			return nil, fmt.Errorf("failed to load env.local: %w", err)
		}
	}

	cfg := &Config{}

	var err error
	if cfg.Twilio.AccountSID, err = requireEnv("TWILIO_ACCOUNT_SID"); err != nil {
		return nil, err
	}
	if cfg.Twilio.AuthToken, err = requireEnv("TWILIO_AUTH_TOKEN"); err != nil {
		return nil, err
	}
	if cfg.Twilio.PhoneNumber, err = requireEnv("TWILIO_PHONE_NUMBER"); err != nil {
		return nil, err
	}
	cfg.Twilio.TargetPhoneNumber = os.Getenv("TARGET_PHONE_NUMBER")
	cfg.Twilio.ValidateSignatures, err = strconv.ParseBool(getEnvWithDefault("TWILIO_VALIDATE_SIGNATURES", "false"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse TWILIO_VALIDATE_SIGNATURES: %w", err)
	}

	if cfg.AI.GoogleAIAPIKey, err = requireEnv("GOOGLE_AI_API_KEY"); err != nil {
		return nil, err
	}
	cfg.AI.Model = getEnvWithDefault("GOOGLE_AI_MODEL", "gemini-2.0-flash")
	cfg.AI.TimeoutSeconds, err = strconv.Atoi(getEnvWithDefault("AI_TIMEOUT_SECONDS", "8"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse AI_TIMEOUT_SECONDS: %w", err)
	}

	cfg.Project.CompanyName = getEnvWithDefault("COMPANY_NAME", "XYZ")
	cfg.Project.ProjectName = getEnvWithDefault("PROJECT_NAME", "XYZ Apartments")
	cfg.Project.Location = os.Getenv("PROJECT_LOCATION")
	cfg.Project.StartingPrice = getEnvWithDefault("STARTING_PRICE", "₹55 lakhs")
	cfg.Project.UnitTypes = getEnvWithDefault("UNIT_TYPES", "1BHK–3BHK")

	cfg.Dialogue.NoInputRetryLimit, err = strconv.Atoi(getEnvWithDefault("NO_INPUT_RETRY_LIMIT", "3"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse NO_INPUT_RETRY_LIMIT: %w", err)
	}
	cfg.Dialogue.MaxTurns, err = strconv.Atoi(getEnvWithDefault("MAX_TURNS", "30"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MAX_TURNS: %w", err)
	}

	cfg.Logs.CallLogDir = getEnvWithDefault("CALL_LOG_DIR", "call_logs")
	cfg.Logs.RecordingDir = getEnvWithDefault("RECORDING_DIR", "recordings")

	// Postgres sink is optional; only validate the group when a host is set
	cfg.Database.Host = os.Getenv("DB_HOST")
	if cfg.Database.Host != "" {
		if cfg.Database.Username, err = requireEnv("DB_USERNAME"); err != nil {
			return nil, err
		}
		if cfg.Database.Password, err = requireEnv("DB_PASSWORD"); err != nil {
			return nil, err
		}
		if cfg.Database.Name, err = requireEnv("DB_NAME"); err != nil {
			return nil, err
		}
	}

	cfg.Leads.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	if cfg.Leads.ResendAPIKey != "" {
		if cfg.Leads.FromAddress, err = requireEnv("SALES_NOTIFY_FROM"); err != nil {
			return nil, err
		}
		if cfg.Leads.ToAddress, err = requireEnv("SALES_NOTIFY_TO"); err != nil {
			return nil, err
		}
	}

	cfg.APIKey = os.Getenv("API_KEY")
	cfg.PublicURL = getEnvWithDefault("PUBLIC_URL", "http://localhost:8080")

	serverPort, err := requireEnv("SERVER_PORT")
	if err != nil {
		return nil, err
	}
	cfg.Server.Port, err = strconv.Atoi(serverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SERVER_PORT: %w", err)
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s",
		c.Username, c.Password, c.Host, c.Name)
}

// VoiceCallbackURL returns the webhook URL Twilio posts speech results to
func (c *Config) VoiceCallbackURL() string {
	return c.PublicURL + "/api/callback/twilio/voice"
}

// StatusCallbackURL returns the webhook URL for call lifecycle events
func (c *Config) StatusCallbackURL() string {
	return c.PublicURL + "/api/callback/twilio/status"
}

// RecordingCallbackURL returns the webhook URL for recording events
func (c *Config) RecordingCallbackURL() string {
	return c.PublicURL + "/api/callback/twilio/recording"
}

// requireEnv retrieves an environment variable or returns an error if empty
func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set: %w", key, ErrEmptyEnvironmentVariable)
	}
	return value, nil
}

// getEnvWithDefault retrieves an environment variable or returns a default value
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
