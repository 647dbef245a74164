// Package config loads the formpilot configuration file and question sheets.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/tinkerloft/formpilot/internal/capability"
	"github.com/tinkerloft/formpilot/internal/classifier"
	"github.com/tinkerloft/formpilot/internal/confidence"
	"github.com/tinkerloft/formpilot/internal/model"
)

//go:embed schema.json
var schemaJSON string

// SupportedVersions lists all schema versions supported by this loader.
var SupportedVersions = []int{1}

// ErrUnsupportedVersion is returned for a version this loader cannot read.
var ErrUnsupportedVersion = errors.New("unsupported config version")

// Defaults for the ambient sections.
const (
	DefaultTemporalAddress = "localhost:7233"
	DefaultTaskQueue       = "formpilot"
	DefaultServerAddr      = ":8080"
	DefaultHintModel       = "claude-haiku-4-5"
	DefaultHintTimeout     = 5 * time.Second
	DefaultHintMaxTokens   = 256
	DefaultMergeSchedule   = "@every 15m"
)

// Config is the resolved configuration.
type Config struct {
	Version    int
	Engine     confidence.Settings
	Classifier ClassifierConfig
	Profile    capability.Profile
	Knowledge  KnowledgeConfig
	Hint       HintConfig
	Slack      SlackConfig
	Temporal   TemporalConfig
	Server     ServerConfig
}

// ClassifierConfig tunes scoring and adds question patterns.
type ClassifierConfig struct {
	Options  classifier.Options
	Patterns []model.PatternDefinition
}

// KnowledgeConfig locates the knowledge file and session snapshots.
type KnowledgeConfig struct {
	Path string
	// MergeDir holds per-session snapshots merged back by the worker.
	MergeDir      string
	MergeSchedule string
}

// HintConfig configures the upstream classification hint.
type HintConfig struct {
	Enabled   bool
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// SlackConfig configures pending-answer notifications. The bot token is
// read from SLACK_BOT_TOKEN.
type SlackConfig struct {
	Channel string
}

// TemporalConfig locates the Temporal frontend.
type TemporalConfig struct {
	Address   string
	Namespace string
	TaskQueue string
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string
}

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version: 1,
		Engine:  confidence.DefaultSettings(),
		Knowledge: KnowledgeConfig{
			MergeSchedule: DefaultMergeSchedule,
		},
		Hint: HintConfig{
			Model:     DefaultHintModel,
			MaxTokens: DefaultHintMaxTokens,
			Timeout:   DefaultHintTimeout,
		},
		Temporal: TemporalConfig{
			Address:   DefaultTemporalAddress,
			TaskQueue: DefaultTaskQueue,
		},
		Server: ServerConfig{Addr: DefaultServerAddr},
	}
}

// NewClassifier builds a classifier from the stock patterns plus any
// configured extras.
func (c *Config) NewClassifier() (*classifier.Classifier, error) {
	cl, err := classifier.New(classifier.DefaultPatterns(), c.Classifier.Options)
	if err != nil {
		return nil, err
	}
	for _, p := range c.Classifier.Patterns {
		if err := cl.Extend(p); err != nil {
			return nil, fmt.Errorf("classifier pattern %s: %w", p.Type, err)
		}
	}
	return cl, nil
}

// versionHeader is used to extract just the version from YAML.
type versionHeader struct {
	Version *int `yaml:"version"`
}

// Load loads a Config from YAML data with schema version validation.
func Load(data []byte) (*Config, error) {
	var header versionHeader
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if header.Version == nil {
		return nil, errors.New("version field is required")
	}

	switch *header.Version {
	case 1:
		return loadConfigV1(data)
	default:
		return nil, fmt.Errorf("%w: %d (supported: %v)", ErrUnsupportedVersion, *header.Version, SupportedVersions)
	}
}

// LoadFile loads a Config from path. An empty path falls back to
// FORMPILOT_CONFIG, and a missing file yields Default. Environment
// overrides are applied in every case.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FORMPILOT_CONFIG")
	}
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			cfg = Default()
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if cfg, err = Load(data); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	ApplyEnv(cfg, os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("TEMPORAL_ADDRESS"); v != "" {
		cfg.Temporal.Address = v
	}
	if v := getenv("FORMPILOT_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := getenv("FORMPILOT_KNOWLEDGE"); v != "" {
		cfg.Knowledge.Path = v
	}
	if v := getenv("FORMPILOT_SLACK_CHANNEL"); v != "" {
		cfg.Slack.Channel = v
	}
}

// configV1 is the internal representation for schema version 1. It is
// pre-populated from Default so omitted fields keep their defaults.
type configV1 struct {
	Version       int                            `yaml:"version"`
	Engine        confidence.Settings            `yaml:"engine"`
	Capabilities  map[string]capabilityV1        `yaml:"capabilities,omitempty"`
	TypeModifiers map[model.QuestionType]float64 `yaml:"type_modifiers,omitempty"`
	Classifier    classifierV1                   `yaml:"classifier"`
	Profile       capability.Profile             `yaml:"profile"`
	Knowledge     knowledgeV1                    `yaml:"knowledge"`
	Hint          hintV1                         `yaml:"hint"`
	Slack         slackV1                        `yaml:"slack"`
	Temporal      temporalV1                     `yaml:"temporal"`
	Server        serverV1                       `yaml:"server"`
}

type capabilityV1 struct {
	BaseThreshold *float64 `yaml:"base_threshold,omitempty"`
}

type classifierV1 struct {
	AlternativeFloor float64                   `yaml:"alternative_floor,omitempty"`
	MinConfidence    float64                   `yaml:"min_confidence,omitempty"`
	WholeWordBonus   float64                   `yaml:"whole_word_bonus,omitempty"`
	CategoryPriority []model.QuestionType      `yaml:"category_priority,omitempty"`
	Patterns         []model.PatternDefinition `yaml:"patterns,omitempty"`
}

type knowledgeV1 struct {
	Path          string `yaml:"path,omitempty"`
	MergeDir      string `yaml:"merge_dir,omitempty"`
	MergeSchedule string `yaml:"merge_schedule,omitempty"`
}

type hintV1 struct {
	Enabled   bool   `yaml:"enabled"`
	Model     string `yaml:"model,omitempty"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`
}

type slackV1 struct {
	Channel string `yaml:"channel,omitempty"`
}

type temporalV1 struct {
	Address   string `yaml:"address,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
	TaskQueue string `yaml:"task_queue,omitempty"`
}

type serverV1 struct {
	Addr string `yaml:"addr,omitempty"`
}

// loadConfigV1 loads a version 1 config from YAML data.
func loadConfigV1(data []byte) (*Config, error) {
	if problems, err := validateSchema(data); err != nil {
		return nil, err
	} else if len(problems) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}

	def := Default()
	cv1 := configV1{
		Engine: def.Engine,
		Knowledge: knowledgeV1{
			MergeSchedule: def.Knowledge.MergeSchedule,
		},
		Hint: hintV1{
			Model:     def.Hint.Model,
			MaxTokens: def.Hint.MaxTokens,
			Timeout:   def.Hint.Timeout.String(),
		},
		Temporal: temporalV1{Address: def.Temporal.Address, TaskQueue: def.Temporal.TaskQueue},
		Server:   serverV1{Addr: def.Server.Addr},
	}
	if err := yaml.Unmarshal(data, &cv1); err != nil {
		return nil, fmt.Errorf("failed to parse config v1: %w", err)
	}

	cfg := &Config{
		Version: cv1.Version,
		Engine:  cv1.Engine,
		Classifier: ClassifierConfig{
			Options: classifier.Options{
				AlternativeFloor: cv1.Classifier.AlternativeFloor,
				MinConfidence:    cv1.Classifier.MinConfidence,
				WholeWordBonus:   cv1.Classifier.WholeWordBonus,
				Priority:         cv1.Classifier.CategoryPriority,
			},
			Patterns: cv1.Classifier.Patterns,
		},
		Profile: cv1.Profile,
		Knowledge: KnowledgeConfig{
			Path:          expandHome(cv1.Knowledge.Path),
			MergeDir:      expandHome(cv1.Knowledge.MergeDir),
			MergeSchedule: cv1.Knowledge.MergeSchedule,
		},
		Hint: HintConfig{
			Enabled:   cv1.Hint.Enabled,
			Model:     cv1.Hint.Model,
			MaxTokens: cv1.Hint.MaxTokens,
		},
		Slack: SlackConfig{Channel: cv1.Slack.Channel},
		Temporal: TemporalConfig{
			Address:   cv1.Temporal.Address,
			Namespace: cv1.Temporal.Namespace,
			TaskQueue: cv1.Temporal.TaskQueue,
		},
		Server: ServerConfig{Addr: cv1.Server.Addr},
	}

	timeout, err := time.ParseDuration(cv1.Hint.Timeout)
	if err != nil {
		return nil, fmt.Errorf("hint.timeout: %w", err)
	}
	cfg.Hint.Timeout = timeout

	// capabilities and type_modifiers extend what engine already set.
	for name, c := range cv1.Capabilities {
		if c.BaseThreshold == nil {
			continue
		}
		if cfg.Engine.BaseThresholds == nil {
			cfg.Engine.BaseThresholds = make(map[string]float64)
		}
		cfg.Engine.BaseThresholds[name] = *c.BaseThreshold
	}
	for qt, m := range cv1.TypeModifiers {
		if cfg.Engine.TypeModifiers == nil {
			cfg.Engine.TypeModifiers = make(map[model.QuestionType]float64)
		}
		cfg.Engine.TypeModifiers[qt] = m
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks the constraints the schema cannot express.
func validate(cfg *Config) error {
	e := cfg.Engine
	if e.MinThreshold >= e.MaxThreshold {
		return fmt.Errorf("engine.min_threshold (%.2f) must be below engine.max_threshold (%.2f)", e.MinThreshold, e.MaxThreshold)
	}
	if e.FailurePenalty > 0 {
		return errors.New("engine.failure_penalty must not be positive")
	}
	for name, b := range e.BaseThresholds {
		if b < e.MinThreshold || b > e.MaxThreshold {
			return fmt.Errorf("capabilities.%s.base_threshold %.2f is outside [%.2f, %.2f]", name, b, e.MinThreshold, e.MaxThreshold)
		}
	}
	if cfg.Knowledge.MergeSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Knowledge.MergeSchedule); err != nil {
			return fmt.Errorf("knowledge.merge_schedule: %w", err)
		}
	}
	if _, err := cfg.NewClassifier(); err != nil {
		return err
	}
	return nil
}

// validateSchema checks YAML data against the embedded JSON schema and
// returns one message per violation.
func validateSchema(data []byte) ([]string, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	// Round-trip through JSON so numbers and maps have the shapes the
	// validator expects.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert config to JSON: %w", err)
	}
	var instance any
	dec := json.NewDecoder(bytes.NewReader(jsonBytes))
	if err := dec.Decode(&instance); err != nil {
		return nil, fmt.Errorf("failed to convert config to JSON: %w", err)
	}

	if err := schema.Validate(instance); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return []string{err.Error()}, nil
		}
		var problems []string
		collectValidationErrors(verr, &problems)
		return problems, nil
	}
	return nil, nil
}

func collectValidationErrors(err *jsonschema.ValidationError, out *[]string) {
	if len(err.Causes) == 0 && err.Message != "" {
		path := err.InstanceLocation
		if path == "" {
			path = "/"
		}
		*out = append(*out, fmt.Sprintf("%s: %s", path, err.Message))
	}
	for _, cause := range err.Causes {
		collectValidationErrors(cause, out)
	}
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
