// Package activity contains Temporal activity implementations.
package activity

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Activity name constants shared by the worker registration and the workflow.
const (
	ActivityAttemptQuestion = "AttemptQuestion"
	ActivityNotifyHuman     = "NotifyHuman"
	ActivityResolveQuestion = "ResolveQuestion"
	ActivityMergeKnowledge  = "MergeKnowledge"
)

// ConfigValidationMode controls how configuration validation behaves.
type ConfigValidationMode int

const (
	// ConfigModeWarn logs warnings for missing configuration but allows startup.
	ConfigModeWarn ConfigValidationMode = iota
	// ConfigModeRequire returns an error if required configuration is missing.
	ConfigModeRequire
)

// ConfigIssue represents a configuration problem found during validation.
type ConfigIssue struct {
	Name        string // Environment variable or config name
	Description string // What the issue is
	Required    bool   // Whether the worker cannot do its job without it
}

// Features lists the optional integrations a worker is configured to use.
type Features struct {
	Hints bool
	Slack bool
}

// ValidateConfig checks that the environment carries what the enabled
// features need.
func ValidateConfig(f Features, getenv func(string) string) []ConfigIssue {
	if getenv == nil {
		getenv = os.Getenv
	}
	var issues []ConfigIssue

	if f.Hints && getenv("ANTHROPIC_API_KEY") == "" {
		issues = append(issues, ConfigIssue{
			Name:        "ANTHROPIC_API_KEY",
			Description: "classification hints will fail and be skipped",
			Required:    false,
		})
	}
	if f.Slack && getenv("SLACK_BOT_TOKEN") == "" {
		issues = append(issues, ConfigIssue{
			Name:        "SLACK_BOT_TOKEN",
			Description: "required to notify a Slack channel about pending questions",
			Required:    true,
		})
	}
	return issues
}

// CheckConfig validates configuration and handles issues according to the mode.
// In ConfigModeWarn, it logs warnings and returns nil.
// In ConfigModeRequire, it returns an error if any required config is missing.
func CheckConfig(mode ConfigValidationMode, f Features, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	issues := ValidateConfig(f, os.Getenv)
	if len(issues) == 0 {
		return nil
	}

	var requiredMissing []string
	for _, issue := range issues {
		if issue.Required {
			requiredMissing = append(requiredMissing, issue.Name)
		}
		logger.Warn("configuration missing", "name", issue.Name, "impact", issue.Description)
	}

	if mode == ConfigModeRequire && len(requiredMissing) > 0 {
		return fmt.Errorf("required configuration missing: %s (set REQUIRE_CONFIG=false to run with warnings only)",
			strings.Join(requiredMissing, ", "))
	}
	return nil
}
