package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for rules that cannot
// be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// The graceful shutdown window has to fit inside the write timeout,
	// otherwise in-flight responses are cut off before the drain ends.
	if cfg.Server.ShutdownTimeout > cfg.Server.WriteTimeout {
		return fmt.Errorf("server: shutdown_timeout (%s) must not exceed write_timeout (%s)",
			cfg.Server.ShutdownTimeout, cfg.Server.WriteTimeout)
	}

	if cfg.Metadata.Type == "badger" {
		path, ok := cfg.Metadata.Badger["db_path"].(string)
		if !ok || path == "" {
			return fmt.Errorf("metadata: badger.db_path must be a non-empty string")
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
