package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Strategy selects how a fetch is mediated between network and cache
type Strategy string

const (
	StrategyCacheFirst   Strategy = "cache-first"
	StrategyNetworkFirst Strategy = "network-first"
	StrategyNetworkOnly  Strategy = "network-only"
)

// UnmarshalYAML implements custom YAML unmarshaling for Strategy
func (s *Strategy) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	switch str {
	case "cache-first", "network-first", "network-only":
		*s = Strategy(str)
		return nil
	default:
		return fmt.Errorf("invalid strategy '%s': must be one of 'cache-first', 'network-first', 'network-only'", str)
	}
}
