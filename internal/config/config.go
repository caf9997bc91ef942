package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"gdd-orchestrator/internal/domain"
	"gdd-orchestrator/internal/refinement"
)

const (
	defaultHTTPPort        = "8080"
	defaultTemporalAddress = "localhost:7233"
	defaultTemporalNS      = "default"
	defaultTaskQueue       = "gdd-refinement-task-queue"
	defaultLLMProvider     = "openai"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultMinioEndpoint   = "localhost:9000"
	defaultMinioBucket     = "gdd"
	defaultReviewTimeout   = 24 * time.Hour
)

type Config struct {
	HTTPPort          string
	PostgresDSN       string
	TemporalAddress   string
	TemporalNamespace string
	TemporalTaskQueue string
	LLMProvider       string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	MinioEndpoint     string
	MinioAccessKey    string
	MinioSecretKey    string
	MinioBucket       string
	MinioUseSSL       bool
	WorkflowIDPrefix  string
	MaxConceptBytes   int
	ReviewTimeout     time.Duration
	LogLevel          string

	Loop refinement.Config
}

// fileConfig mirrors the optional YAML file named by GDD_CONFIG_FILE.
type fileConfig struct {
	Orchestrator struct {
		MaxIterations     *int     `yaml:"max_iterations"`
		ApprovalThreshold *float64 `yaml:"approval_threshold"`
		EnforceThreshold  *bool    `yaml:"enforce_threshold"`
		FinalSelection    string   `yaml:"final_selection"`
	} `yaml:"orchestrator"`
	LLM struct {
		Provider          string   `yaml:"provider"`
		Model             string   `yaml:"model"`
		ActorModel        string   `yaml:"actor_model"`
		CriticModel       string   `yaml:"critic_model"`
		BaseURL           string   `yaml:"base_url"`
		ActorTemperature  *float64 `yaml:"actor_temperature"`
		CriticTemperature *float64 `yaml:"critic_temperature"`
		MaxTokens         *int     `yaml:"max_tokens"`
		JSONMode          *bool    `yaml:"json_mode"`
	} `yaml:"llm"`
	Timeouts struct {
		ActorMS  *int `yaml:"actor_ms"`
		CriticMS *int `yaml:"critic_ms"`
	} `yaml:"timeouts"`
	Retries struct {
		MaxAttempts *int     `yaml:"max_attempts"`
		BackoffBase *float64 `yaml:"backoff_base"`
		Jitter      *float64 `yaml:"jitter"`
	} `yaml:"retries"`
}

// Load reads configuration for the service binaries, which all need Postgres.
func Load() (Config, error) {
	cfg, err := load()
	if err != nil {
		return Config{}, err
	}
	if cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN is required")
	}
	return cfg, nil
}

// LoadForCLI reads the same sources as Load without requiring any infrastructure.
func LoadForCLI() (Config, error) {
	return load()
}

func load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		OpenAIModel: defaultOpenAIModel,
		LLMProvider: defaultLLMProvider,
		Loop:        refinement.DefaultConfig(),
	}
	if path := os.Getenv("GDD_CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.HTTPPort = getenv("HTTP_PORT", defaultHTTPPort)
	cfg.PostgresDSN = os.Getenv("POSTGRES_DSN")
	cfg.TemporalAddress = getenv("TEMPORAL_ADDRESS", defaultTemporalAddress)
	cfg.TemporalNamespace = getenv("TEMPORAL_NAMESPACE", defaultTemporalNS)
	cfg.TemporalTaskQueue = getenv("TEMPORAL_TASK_QUEUE", defaultTaskQueue)
	cfg.LLMProvider = strings.ToLower(getenv("LLM_PROVIDER", cfg.LLMProvider))
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = getenv("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = getenv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.MinioEndpoint = getenv("MINIO_ENDPOINT", defaultMinioEndpoint)
	cfg.MinioAccessKey = os.Getenv("MINIO_ACCESS_KEY")
	cfg.MinioSecretKey = os.Getenv("MINIO_SECRET_KEY")
	cfg.MinioBucket = getenv("MINIO_BUCKET", defaultMinioBucket)
	cfg.MinioUseSSL = getenvBool("MINIO_USE_SSL", false)
	cfg.WorkflowIDPrefix = getenv("JOB_ID_PREFIX", "gdd")
	cfg.MaxConceptBytes = getenvInt("MAX_CONCEPT_BYTES", domain.DefaultMaxConceptBytes)
	cfg.ReviewTimeout = getenvDuration("REVIEW_TIMEOUT", defaultReviewTimeout)
	cfg.LogLevel = getenv("LOG_LEVEL", "info")

	l := &cfg.Loop
	l.MaxIterations = getenvInt("GDD_MAX_ITERATIONS", l.MaxIterations)
	l.ActorTemperature = getenvFloat("GDD_ACTOR_TEMPERATURE", l.ActorTemperature)
	l.CriticTemperature = getenvFloat("GDD_CRITIC_TEMPERATURE", l.CriticTemperature)
	l.MaxTokens = getenvInt("GDD_MAX_TOKENS", l.MaxTokens)
	l.ActorTimeout = getenvMillis("GDD_ACTOR_TIMEOUT_MS", l.ActorTimeout)
	l.CriticTimeout = getenvMillis("GDD_CRITIC_TIMEOUT_MS", l.CriticTimeout)
	l.MaxRetries = getenvInt("GDD_MAX_RETRIES", l.MaxRetries)
	l.BackoffBase = getenvFloat("GDD_BACKOFF_BASE", l.BackoffBase)
	l.BackoffJitter = getenvFloat("GDD_BACKOFF_JITTER", l.BackoffJitter)
	l.ApprovalThreshold = getenvFloat("GDD_APPROVAL_THRESHOLD", l.ApprovalThreshold)
	l.EnforceApprovalThreshold = getenvBool("GDD_ENFORCE_THRESHOLD", l.EnforceApprovalThreshold)
	l.FinalSelection = domain.Selection(getenv("GDD_FINAL_SELECTION", string(l.FinalSelection)))
	if l.ActorModel == "" {
		l.ActorModel = cfg.OpenAIModel
	}
	if l.CriticModel == "" {
		l.CriticModel = cfg.OpenAIModel
	}

	if err := cfg.Loop.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	l := &cfg.Loop
	setIf(&l.MaxIterations, fc.Orchestrator.MaxIterations)
	setIf(&l.ApprovalThreshold, fc.Orchestrator.ApprovalThreshold)
	setIf(&l.EnforceApprovalThreshold, fc.Orchestrator.EnforceThreshold)
	if fc.Orchestrator.FinalSelection != "" {
		l.FinalSelection = domain.Selection(fc.Orchestrator.FinalSelection)
	}
	if fc.LLM.Provider != "" {
		cfg.LLMProvider = fc.LLM.Provider
	}
	if fc.LLM.Model != "" {
		cfg.OpenAIModel = fc.LLM.Model
	}
	cfg.OpenAIBaseURL = fc.LLM.BaseURL
	l.ActorModel = fc.LLM.ActorModel
	l.CriticModel = fc.LLM.CriticModel
	setIf(&l.ActorTemperature, fc.LLM.ActorTemperature)
	setIf(&l.CriticTemperature, fc.LLM.CriticTemperature)
	setIf(&l.MaxTokens, fc.LLM.MaxTokens)
	setIf(&l.JSONMode, fc.LLM.JSONMode)
	if fc.Timeouts.ActorMS != nil {
		l.ActorTimeout = time.Duration(*fc.Timeouts.ActorMS) * time.Millisecond
	}
	if fc.Timeouts.CriticMS != nil {
		l.CriticTimeout = time.Duration(*fc.Timeouts.CriticMS) * time.Millisecond
	}
	setIf(&l.MaxRetries, fc.Retries.MaxAttempts)
	setIf(&l.BackoffBase, fc.Retries.BackoffBase)
	setIf(&l.BackoffJitter, fc.Retries.Jitter)
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func getenv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvMillis(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// Refinement returns the loop settings handed to the orchestrator.
func (c Config) Refinement() refinement.Config {
	return c.Loop
}
