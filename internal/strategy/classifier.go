package strategy

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/utils"
)

// Classifier implements the StrategyClassifier interface
type Classifier struct {
	logger *zap.Logger
	rules  []Rule
	origin *url.URL
}

// Ensure Classifier implements the StrategyClassifier interface
var _ interfaces.StrategyClassifier = (*Classifier)(nil)

// NewClassifier creates a classifier for requests made by pages served from origin
func NewClassifier(logger *zap.Logger, rules *RulesConfig, origin *url.URL) *Classifier {
	c := &Classifier{logger: logger, origin: origin}
	if rules != nil {
		c.rules = rules.Rules
	}
	return c
}

// Classify picks the strategy for a request
func (c *Classifier) Classify(req *models.Request) models.Strategy {
	if req == nil || req.Method != http.MethodGet {
		return models.StrategyNetworkOnly
	}

	u, err := req.ParsedURL()
	if err != nil {
		return models.StrategyNetworkOnly
	}
	crossOrigin := !utils.SameOrigin(c.origin, u)

	for _, rule := range c.rules {
		if c.ruleMatches(rule, u, crossOrigin) {
			return rule.Strategy
		}
	}

	if crossOrigin {
		return models.StrategyNetworkFirst
	}
	return models.StrategyCacheFirst
}

// IsCrossOrigin reports whether the request targets a different origin than the site
func (c *Classifier) IsCrossOrigin(req *models.Request) bool {
	u, err := req.ParsedURL()
	if err != nil {
		return true
	}
	return !utils.SameOrigin(c.origin, u)
}

func (c *Classifier) ruleMatches(rule Rule, u *url.URL, crossOrigin bool) bool {
	if rule.IsHostRule() {
		ok, _ := matchPattern(patternOf(rule), strings.ToLower(u.Hostname()))
		return ok
	}
	if crossOrigin {
		return false
	}
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	ok, _ := matchPattern(rule.Match, p)
	return ok
}

// matchPattern matches a glob; a trailing "/**" matches any descendant path
func matchPattern(pattern, name string) (bool, error) {
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		if _, err := path.Match(prefix, "x"); err != nil {
			return false, err
		}
		return name == prefix || strings.HasPrefix(name, prefix+"/"), nil
	}
	return path.Match(pattern, name)
}
