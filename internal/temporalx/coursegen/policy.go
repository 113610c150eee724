package coursegen

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/coursegen-backend/internal/coursegen/pipelineerr"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

//go:embed policy.yaml
var policyYAML []byte

// Output formats a stage can request from the model.
const (
	FormatJSONSchema = "json_schema"
	FormatText       = "text"
)

type StagePolicy struct {
	StartToClose time.Duration `yaml:"start_to_close" json:"start_to_close"`
	Format       string        `yaml:"format" json:"format"`
}

// Policy bounds every generation stage. Callers polling a run depend on
// these windows, so changing them changes observable behaviour.
type Policy struct {
	MaxAttempts        int32         `yaml:"max_attempts" json:"max_attempts"`
	InitialInterval    time.Duration `yaml:"initial_interval" json:"initial_interval"`
	BackoffCoefficient float64       `yaml:"backoff_coefficient" json:"backoff_coefficient"`
	HeartbeatInterval  time.Duration `yaml:"heartbeat_interval" json:"heartbeat_interval"`
	HeartbeatTimeout   time.Duration `yaml:"heartbeat_timeout" json:"heartbeat_timeout"`
	GuardrailMaxChars  int           `yaml:"guardrail_max_chars" json:"guardrail_max_chars"`

	Outline StagePolicy `yaml:"outline" json:"outline"`
	Course  StagePolicy `yaml:"course" json:"course"`
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:        3,
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		HeartbeatInterval:  10 * time.Second,
		HeartbeatTimeout:   30 * time.Second,
		GuardrailMaxChars:  12000,
		Outline:            StagePolicy{StartToClose: 10 * time.Minute, Format: FormatJSONSchema},
		Course:             StagePolicy{StartToClose: 15 * time.Minute, Format: FormatJSONSchema},
	}
}

// LoadPolicy reads COURSEGEN_POLICY_YAML when set, else the embedded policy.
// A policy that fails to parse or validate falls back to DefaultPolicy.
func LoadPolicy(log *logger.Logger) Policy {
	raw := policyYAML
	source := "embedded"
	if path := strings.TrimSpace(os.Getenv("COURSEGEN_POLICY_YAML")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			log.Warn("policy override unreadable; using embedded policy", "path", path, "error", err)
		} else {
			raw, source = b, path
		}
	}
	p, err := ParsePolicy(raw)
	if err != nil {
		log.Warn("policy invalid; using defaults", "source", source, "error", err)
		return DefaultPolicy()
	}
	log.Info("stage policy loaded", "source", source,
		"max_attempts", p.MaxAttempts,
		"outline_timeout", p.Outline.StartToClose.String(),
		"course_timeout", p.Course.StartToClose.String(),
	)
	return p
}

// ParsePolicy decodes YAML on top of DefaultPolicy and validates the result.
func ParsePolicy(raw []byte) (Policy, error) {
	p := DefaultPolicy()
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p Policy) Validate() error {
	var problems []string
	if p.MaxAttempts < 1 {
		problems = append(problems, "max_attempts must be >= 1")
	}
	if p.InitialInterval <= 0 {
		problems = append(problems, "initial_interval must be positive")
	}
	if p.BackoffCoefficient < 1 {
		problems = append(problems, "backoff_coefficient must be >= 1")
	}
	if p.HeartbeatInterval <= 0 || p.HeartbeatTimeout <= p.HeartbeatInterval {
		problems = append(problems, "heartbeat_timeout must exceed a positive heartbeat_interval")
	}
	for name, s := range map[string]StagePolicy{"outline": p.Outline, "course": p.Course} {
		if s.StartToClose <= 0 {
			problems = append(problems, name+".start_to_close must be positive")
		}
		if s.Format != FormatJSONSchema && s.Format != FormatText {
			problems = append(problems, fmt.Sprintf("%s.format %q unsupported", name, s.Format))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid policy: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (p Policy) retryPolicy() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:        p.InitialInterval,
		BackoffCoefficient:     p.BackoffCoefficient,
		MaximumAttempts:        p.MaxAttempts,
		NonRetryableErrorTypes: pipelineerr.NonRetryableTypes(),
	}
}

func (p Policy) activityOptions(stage StagePolicy) workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: stage.StartToClose,
		HeartbeatTimeout:    p.HeartbeatTimeout,
		RetryPolicy:         p.retryPolicy(),
	}
}
