package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for invalid or inconsistent values.
//
// Struct tags carry the field-level rules (required, oneof, ranges); the
// cross-field checks that tags cannot express live here.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			// Report the first violation with its namespace so the user
			// can find the offending key.
			e := errs[0]
			return fmt.Errorf("invalid value for %s: failed %q constraint", e.Namespace(), e.Tag())
		}
		return err
	}

	// The badger backend needs a directory to open.
	if cfg.Store.Backend == "badger" {
		opts, err := cfg.Store.BadgerOptions()
		if err != nil {
			return err
		}
		if opts.Path == "" {
			return fmt.Errorf("store.badger.path is required when store.backend is badger")
		}
	}

	return nil
}
