package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Debug      bool   `env:"DEBUG" envDefault:"false"`
	Port       string `env:"PORT" envDefault:"3000"`
	MetricPort string `env:"METRIC_PORT" envDefault:"9090"`
	Domain     string `env:"DOMAIN" envDefault:"http://localhost:3000"`
	JWTSecret  string `env:"JWT_SECRET,required,notEmpty"`

	// UploadMaxBytes ограничивает размер загружаемого изображения
	UploadMaxBytes  int64   `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`
	UploadRateLimit float64 `env:"UPLOAD_RATE_LIMIT" envDefault:"5"`

	Generator GeneratorConfig
	Jobs      JobsConfig
	Rooms     RoomsConfig
	Postgres  PostgresConfig
}

type PostgresConfig struct {
	URL string `env:"POSTGRES_URL"`

	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	Name     string `env:"POSTGRES_NAME" envDefault:"taleroom"`
	SSL      string `env:"POSTGRES_SSL" envDefault:"disable"`
}

func (p *PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}

	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Name,
		p.SSL,
	)
}

const (
	GeneratorGemini = "gemini"
	GeneratorStatic = "static"

	JobStoreMemory   = "memory"
	JobStorePostgres = "postgres"
)

type GeneratorConfig struct {
	Backend string        `env:"GENERATOR_BACKEND" envDefault:"gemini"`
	APIKey  string        `env:"GEMINI_API_KEY"`
	Model   string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	BaseURL string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	Timeout time.Duration `env:"GENERATOR_TIMEOUT" envDefault:"60s"`
}

type JobsConfig struct {
	Store         string        `env:"JOB_STORE" envDefault:"memory"`
	Workers       int           `env:"JOB_WORKERS" envDefault:"4"`
	QueueSize     int           `env:"JOB_QUEUE_SIZE" envDefault:"256"`
	Retention     time.Duration `env:"JOB_RETENTION" envDefault:"1h"`
	SweepInterval time.Duration `env:"JOB_SWEEP_INTERVAL" envDefault:"1m"`
}

type RoomsConfig struct {
	CodeLength      int           `env:"ROOM_CODE_LENGTH" envDefault:"4"`
	MaxParticipants int           `env:"ROOM_MAX_PARTICIPANTS" envDefault:"5"`
	EmptyGrace      time.Duration `env:"ROOM_EMPTY_GRACE" envDefault:"2m"`
	IdleTTL         time.Duration `env:"ROOM_IDLE_TTL" envDefault:"2h"`
}

func New() (*Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err = c.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

func (c *Config) validate() error {
	switch c.Generator.Backend {
	case GeneratorGemini:
		if c.Generator.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for %q backend", GeneratorGemini)
		}
	case GeneratorStatic:
	default:
		return fmt.Errorf("unknown generator backend %q", c.Generator.Backend)
	}

	switch c.Jobs.Store {
	case JobStoreMemory, JobStorePostgres:
	default:
		return fmt.Errorf("unknown job store %q", c.Jobs.Store)
	}

	if c.Jobs.Workers < 1 {
		return fmt.Errorf("JOB_WORKERS must be positive")
	}

	if c.Rooms.CodeLength < 1 || c.Rooms.MaxParticipants < 1 {
		return fmt.Errorf("room code length and max participants must be positive")
	}

	return nil
}
