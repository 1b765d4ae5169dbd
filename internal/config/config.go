package config

import (
	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Twilio   *twilioConfig
	Composio *composioConfig
	Model    *modelConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"scheduler"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address  string `envconfig:"SCHEDULER_ADDRESS" default:":3443"`
	BaseUrl  string `envconfig:"SCHEDULER_BASE_URL" default:"https://localhost:3443"`
	LogLevel string `envconfig:"SCHEDULER_LOG_LEVEL" default:"info"`
}

type twilioConfig struct {
	AccountSID string `envconfig:"TWILIO_ACCOUNT_SID" default:""`
	AuthToken  string `envconfig:"TWILIO_AUTH_TOKEN" default:""`
	// VoiceWebhookUrl is the base address Twilio calls back with conversation
	// and status events. Job and participant identifiers are appended per call.
	VoiceWebhookUrl string `envconfig:"TWILIO_VOICE_WEBHOOK_URL" default:""`
}

type composioConfig struct {
	ApiKey  string `envconfig:"COMPOSIO_API_KEY" default:""`
	BaseUrl string `envconfig:"COMPOSIO_BASE_URL" default:"https://backend.composio.dev"`
}

type modelConfig struct {
	ApiKey string `envconfig:"COMPLETION_API_KEY" default:""`
	Name   string `envconfig:"COMPLETION_MODEL" default:"gpt-4o-mini"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a config populated with defaults only, ignoring the
// environment. Used by tests.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{Type: "sqlite", Name: ":memory:"},
		Service:  &svcConfig{Address: ":3443", BaseUrl: "http://localhost:3443", LogLevel: "debug"},
		Twilio:   &twilioConfig{},
		Composio: &composioConfig{BaseUrl: "https://backend.composio.dev"},
		Model:    &modelConfig{Name: "gpt-4o-mini"},
	}
}
