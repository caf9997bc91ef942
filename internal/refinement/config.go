package refinement

import (
	"fmt"
	"strings"
	"time"

	"gdd-orchestrator/internal/domain"
)

// Config is read once by New and never mutated afterwards.
type Config struct {
	MaxIterations     int
	ActorTemperature  float64
	CriticTemperature float64
	// MaxTokens bounds the actor; the critic gets half.
	MaxTokens     int
	ActorTimeout  time.Duration
	CriticTimeout time.Duration
	// MaxRetries is the total number of attempts per role invocation.
	MaxRetries    int
	BackoffBase   float64
	BackoffJitter float64

	ApprovalThreshold        float64
	EnforceApprovalThreshold bool
	FinalSelection           domain.Selection

	ActorModel  string
	CriticModel string
	JSONMode    bool
}

func DefaultConfig() Config {
	return Config{
		MaxIterations:     3,
		ActorTemperature:  0.6,
		CriticTemperature: 0.2,
		MaxTokens:         8192,
		ActorTimeout:      120 * time.Second,
		CriticTimeout:     60 * time.Second,
		MaxRetries:        3,
		BackoffBase:       2.0,
		BackoffJitter:     0.1,
		ApprovalThreshold: 7.0,
		FinalSelection:    domain.SelectLatest,
		JSONMode:          true,
	}
}

func (c Config) CriticMaxTokens() int {
	return c.MaxTokens / 2
}

type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid refinement config: " + strings.Join(e.Problems, "; ")
}

func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	if c.MaxIterations < 1 {
		add("max_iterations must be >= 1, got %d", c.MaxIterations)
	}
	if c.ActorTemperature < 0 || c.ActorTemperature > 2 {
		add("actor_temperature must be within 0..2, got %g", c.ActorTemperature)
	}
	if c.CriticTemperature < 0 || c.CriticTemperature > 2 {
		add("critic_temperature must be within 0..2, got %g", c.CriticTemperature)
	}
	if c.MaxTokens < 2 {
		add("max_tokens must be >= 2, got %d", c.MaxTokens)
	}
	if c.ActorTimeout <= 0 {
		add("actor_timeout must be positive, got %s", c.ActorTimeout)
	}
	if c.CriticTimeout <= 0 {
		add("critic_timeout must be positive, got %s", c.CriticTimeout)
	}
	if c.MaxRetries < 1 {
		add("max_retries must be >= 1, got %d", c.MaxRetries)
	}
	if c.BackoffBase < 1 {
		add("backoff_base must be >= 1, got %g", c.BackoffBase)
	}
	if c.BackoffJitter < 0 || c.BackoffJitter > 1 {
		add("backoff_jitter must be within 0..1, got %g", c.BackoffJitter)
	}
	if c.ApprovalThreshold < 1 || c.ApprovalThreshold > 10 {
		add("approval_threshold must be within 1..10, got %g", c.ApprovalThreshold)
	}
	switch c.FinalSelection {
	case domain.SelectLatest, domain.SelectBestScore:
	default:
		add("final_selection must be %q or %q, got %q", domain.SelectLatest, domain.SelectBestScore, c.FinalSelection)
	}
	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}
