package domain

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Scope is a compliance focus area that parameterizes analysis prompts and
// expected finding categories.
type Scope string

const (
	ScopeOHS           Scope = "OHS"
	ScopeFire          Scope = "Fire"
	ScopeEnvironmental Scope = "Environmental"
	ScopeGMP           Scope = "GMP"
	ScopeSecurity      Scope = "Security"
	ScopeFacility      Scope = "Facility"
)

// MaxActiveScopes bounds how many scopes one session may combine.
const MaxActiveScopes = 2

// ScopeConfig carries the prompt-building material for one scope.
type ScopeConfig struct {
	ID            Scope    `yaml:"id"`
	Label         string   `yaml:"label"`
	Focus         string   `yaml:"focus"`
	Standards     string   `yaml:"standards"`
	Documents     string   `yaml:"documents"`
	OverlayLabels []string `yaml:"overlay_labels"`
}

//go:embed scopes.yaml
var scopesYAML []byte

var scopeCatalog map[Scope]ScopeConfig

func init() {
	var doc struct {
		Scopes []ScopeConfig `yaml:"scopes"`
	}
	if err := yaml.Unmarshal(scopesYAML, &doc); err != nil {
		panic(fmt.Sprintf("parse embedded scope catalog: %v", err))
	}
	scopeCatalog = make(map[Scope]ScopeConfig, len(doc.Scopes))
	for _, sc := range doc.Scopes {
		scopeCatalog[sc.ID] = sc
	}
}

// ScopeConfigFor returns the catalog entry for a scope.
func ScopeConfigFor(s Scope) (ScopeConfig, bool) {
	cfg, ok := scopeCatalog[s]
	return cfg, ok
}

// ValidScope reports whether s names a catalog scope.
func ValidScope(s Scope) bool {
	_, ok := scopeCatalog[s]
	return ok
}

// ScopeLabels joins the display labels for a scope set.
func ScopeLabels(scopes []Scope) []string {
	labels := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if cfg, ok := scopeCatalog[s]; ok {
			labels = append(labels, cfg.Label)
		}
	}
	return labels
}

// HasScope reports membership of s in scopes.
func HasScope(scopes []Scope, s Scope) bool {
	for _, v := range scopes {
		if v == s {
			return true
		}
	}
	return false
}
