// Package offering loads and validates seller offerings: a per-identity
// namespace of declarative configs paired with handler programs. Validation is
// strict at registration time only; dispatch-time loads trust a previously
// registered offering.
package offering

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/handler"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

// ConfigFileName is the declarative config inside an offering directory.
const ConfigFileName = "offering.yaml"

// Fee is the offering's pricing: a fixed amount, or a percentage of the
// transferred amount for externally funded offerings.
type Fee struct {
	Amount float64 `yaml:"amount"`
	Kind   string  `yaml:"kind"`
}

// Manifest declares the handler program and the capabilities it exposes.
type Manifest struct {
	Command      string   `yaml:"command"`
	Capabilities []string `yaml:"capabilities"`
}

// Config is one offering's declarative description.
type Config struct {
	Name                  string         `yaml:"name"`
	Description           string         `yaml:"description,omitempty"`
	Fee                   Fee            `yaml:"fee"`
	RequiresExternalFunds bool           `yaml:"requires_external_funds"`
	SLAMinutes            int            `yaml:"sla_minutes"`
	Requirements          map[string]any `yaml:"requirements,omitempty"`
	Handler               Manifest       `yaml:"handler"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Percentage fees are bounded away from 0 and 1; both ends inclusive.
const (
	MinPercentageFee = 0.001
	MaxPercentageFee = 0.99
)

// LoadConfig reads and parses <dir>/offering.yaml.
func LoadConfig(dir string) (Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", ConfigFileName, err)
	}
	return cfg, nil
}

// Validate applies the registration-time rules and returns every violation
// found joined into one error, so an operator can fix all issues in one pass.
func Validate(cfg Config) error {
	var errs []error

	if cfg.Name == "" {
		errs = append(errs, errors.New("name is required"))
	} else if !slugPattern.MatchString(cfg.Name) {
		errs = append(errs, fmt.Errorf("name %q is not a slug (lowercase letters, digits, - and _)", cfg.Name))
	}

	switch cfg.Fee.Kind {
	case models.FeeKindFixed:
		if cfg.Fee.Amount < 0 {
			errs = append(errs, fmt.Errorf("fee amount %v must be >= 0", cfg.Fee.Amount))
		}
	case models.FeeKindPercentage:
		if cfg.Fee.Amount < MinPercentageFee || cfg.Fee.Amount > MaxPercentageFee {
			errs = append(errs, fmt.Errorf("percentage fee %v must be within [%v, %v]", cfg.Fee.Amount, MinPercentageFee, MaxPercentageFee))
		}
		// A percentage is taken of the transferred amount; without external
		// funds there is nothing to take a percentage of.
		if !cfg.RequiresExternalFunds {
			errs = append(errs, errors.New("percentage fee requires requires_external_funds to be true"))
		}
	case "":
		errs = append(errs, errors.New("fee kind is required"))
	default:
		errs = append(errs, fmt.Errorf("unknown fee kind %q", cfg.Fee.Kind))
	}

	if cfg.SLAMinutes <= 0 {
		errs = append(errs, fmt.Errorf("sla_minutes %d must be > 0", cfg.SLAMinutes))
	}

	if cfg.Handler.Command == "" {
		errs = append(errs, errors.New("handler command is required"))
	}
	caps := make(map[string]bool, len(cfg.Handler.Capabilities))
	for _, c := range cfg.Handler.Capabilities {
		caps[c] = true
	}
	errs = append(errs, handler.Check(caps, cfg.RequiresExternalFunds)...)

	if len(cfg.Requirements) > 0 {
		if _, err := CompileRequirements(cfg.Requirements); err != nil {
			errs = append(errs, fmt.Errorf("requirements schema: %w", err))
		}
	}

	return errors.Join(errs...)
}

// CompileRequirements compiles the requirement schema fragment into a
// validator for buyer-supplied values.
func CompileRequirements(schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("requirements.json", bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile("requirements.json")
}

// RequiredFields returns the schema's required property names, in order.
func RequiredFields(schema map[string]any) []string {
	raw, ok := schema["required"].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Listing converts the config to its marketplace-visible form.
func (cfg Config) Listing() models.OfferingListing {
	return models.OfferingListing{
		Name:                  cfg.Name,
		Description:           cfg.Description,
		FeeAmount:             cfg.Fee.Amount,
		FeeKind:               cfg.Fee.Kind,
		RequiresExternalFunds: cfg.RequiresExternalFunds,
		RequirementSchema:     cfg.Requirements,
		SLAMinutes:            cfg.SLAMinutes,
	}
}
