package config

import (
	"fmt"
	"net"
	"strconv"

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
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	for i, ds := range cfg.PNFS.DataServers {
		if err := validateHostPort(ds); err != nil {
			return fmt.Errorf("pnfs.data_servers[%d]: %w", i, err)
		}
	}

	if cfg.PNFS.StripeSize%64 != 0 {
		return fmt.Errorf("pnfs.stripe_size: %d is not a multiple of 64", cfg.PNFS.StripeSize)
	}

	ff := cfg.PNFS.FlexFiles
	if ff.Version == 3 && ff.MinorVersion != 0 {
		return fmt.Errorf("pnfs.flex_files: minor_version must be 0 for NFSv3 data servers")
	}

	s3 := cfg.Telemetry.S3
	if s3.Enabled {
		if s3.Bucket == "" {
			return fmt.Errorf("telemetry.s3: bucket is required when enabled")
		}
		if s3.Region == "" {
			return fmt.Errorf("telemetry.s3: region is required when enabled")
		}
		if (s3.AccessKeyID == "") != (s3.SecretAccessKey == "") {
			return fmt.Errorf("telemetry.s3: access_key_id and secret_access_key must be set together")
		}
	}

	return nil
}

// validateHostPort checks a host:port pair. IPv6 literals must be bracketed.
func validateHostPort(s string) error {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return err
	}
	if host == "" {
		return fmt.Errorf("%q has no host", s)
	}
	if p, err := strconv.ParseUint(port, 10, 16); err != nil || p == 0 {
		return fmt.Errorf("%q has an invalid port", s)
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
