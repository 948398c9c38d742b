// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// =============================================================================
// Shared Validator Instance
// =============================================================================

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("schemaversion", validateSchemaVersion)
}

// validateSchemaVersion accepts a valid semantic version whose major
// component is SupportedMajor.
func validateSchemaVersion(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	return semver.IsValid(v) && semver.Major(v) == SupportedMajor
}

// =============================================================================
// Loading
// =============================================================================

// Load reads the configuration at path over the defaults.
//
// # Description
//
// An empty path returns DefaultConfig. Otherwise the YAML file is decoded on
// top of the defaults, so a file only needs the keys it changes. Unknown
// keys are rejected to catch typos such as "trails". The result is
// validated before it is returned.
//
// # Outputs
//
//   - SweepConfig: The merged configuration
//   - error: Read failure, YAML error, or ErrInvalidConfig
func Load(path string) (SweepConfig, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cfg against its struct tags.
//
// Every failing field is listed in the error, which wraps ErrInvalidConfig.
func Validate(cfg SweepConfig) error {
	err := configValidate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "SweepConfig.")
	switch fe.Tag() {
	case "schemaversion":
		return fmt.Sprintf("%s %q must be a semantic version with major %s", field, fe.Value(), SupportedMajor)
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must have at least %s value(s)", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
}

// WriteDefault writes DefaultConfig as YAML to path.
//
// An existing file is never overwritten.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create the config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write the config file: %w", err)
	}
	return f.Close()
}
