// Copyright 2025 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package watch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Decoder converts the content of a file.
type Decoder[T any] func(data []byte) (T, error)

// Text returns the content with surrounding whitespace removed.
var Text Decoder[string] = func(data []byte) (string, error) {
	return strings.TrimSpace(string(data)), nil
}

// validate is the shared validator instance.
var validate = validator.New()

// YAML decodes YAML, then checks validate struct tags if T is a struct.
func YAML[T any]() Decoder[T] {
	return func(data []byte) (T, error) {
		var v T
		if err := yaml.Unmarshal(data, &v); err != nil {
			return v, fmt.Errorf("expected YAML: %w", err)
		}
		return v, check(v)
	}
}

// JSON decodes JSON, then checks validate struct tags if T is a struct.
func JSON[T any]() Decoder[T] {
	return func(data []byte) (T, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return v, fmt.Errorf("expected JSON: %w", err)
		}
		return v, check(v)
	}
}

func check(v any) error {
	err := validate.Struct(v)
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		// Not a struct; nothing to validate.
		return nil
	}
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
