package strategy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"go-offline-cache/internal/models"
)

const hostPrefix = "host:"

// Rule assigns a strategy to requests matching a pattern.
// Patterns are path globs for same-origin requests, or "host:<glob>" for any host.
type Rule struct {
	Match    string          `yaml:"match" validate:"required"`
	Strategy models.Strategy `yaml:"strategy" validate:"required"`
}

// IsHostRule reports whether the rule matches on host rather than path
func (r Rule) IsHostRule() bool {
	return strings.HasPrefix(r.Match, hostPrefix)
}

// RulesConfig is the strategy rules file
type RulesConfig struct {
	Rules []Rule `yaml:"rules" validate:"dive"`
}

// LoadRules loads strategy rules from a YAML file. A missing file yields no rules.
func LoadRules(rulesPath string, logger *zap.Logger) (*RulesConfig, error) {
	logger.Info("Loading strategy rules", zap.String("path", rulesPath))

	file, err := os.Open(rulesPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("No strategy rules file, using default strategies", zap.String("path", rulesPath))
			return &RulesConfig{}, nil
		}
		return nil, fmt.Errorf("failed to open strategy rules file: %w", err)
	}
	defer file.Close()

	var rules RulesConfig
	if err := yaml.NewDecoder(file).Decode(&rules); err != nil {
		if errors.Is(err, io.EOF) {
			return &RulesConfig{}, nil
		}
		return nil, fmt.Errorf("failed to decode YAML strategy rules: %w", err)
	}

	if err := validateRules(&rules); err != nil {
		return nil, fmt.Errorf("strategy rules validation failed: %w", err)
	}

	logger.Info("Strategy rules loaded successfully", zap.Int("rules", len(rules.Rules)))
	return &rules, nil
}

func validateRules(rules *RulesConfig) error {
	if err := validator.New().Struct(rules); err != nil {
		return err
	}
	for i, rule := range rules.Rules {
		if _, err := matchPattern(patternOf(rule), "x"); err != nil {
			return fmt.Errorf("rule %d: bad pattern %q: %w", i, rule.Match, err)
		}
	}
	return nil
}

func patternOf(rule Rule) string {
	return strings.TrimPrefix(rule.Match, hostPrefix)
}
