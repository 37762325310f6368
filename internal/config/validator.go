package config

import (
	"errors"
	"fmt"

	lcierrors "github.com/check-spelling/mozsearch/internal/errors"
)

// Validator checks a loaded configuration.
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate reports every problem found as a MultiError of ConfigErrors.
func (v *Validator) Validate(cfg *Config) error {
	var errs []error

	if len(cfg.Trees) == 0 {
		errs = append(errs, lcierrors.NewConfigError("trees", "", errors.New("no trees configured")))
	}
	for _, name := range cfg.TreeNames() {
		if err := v.validateTree(cfg.Trees[name]); err != nil {
			errs = append(errs, lcierrors.NewConfigError("trees."+name, name, err))
		}
	}
	if cfg.DefaultTree != "" {
		if _, ok := cfg.Trees[cfg.DefaultTree]; !ok {
			errs = append(errs, lcierrors.NewConfigError("default_tree", cfg.DefaultTree,
				fmt.Errorf("not a configured tree")))
		}
	}

	return lcierrors.NewMultiError(errs).ErrorOrNil()
}

func (v *Validator) validateTree(tree *TreeConfig) error {
	if tree.IndexPath == "" {
		return errors.New("index_path cannot be empty")
	}
	return nil
}

// ValidateConfig is a convenience function to validate configuration
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
