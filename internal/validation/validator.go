// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

// Package validation provides struct validation using go-playground/validator v10.
//
// The ingestion pipeline runs every parsed report through ValidateStruct
// before accepting it: the codec guarantees syntactic shape, this package
// guarantees semantic range (coordinates on the globe, non-negative
// speed/rpm/fuel). The query API reuses it for request bodies.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// singleton validator instance; validator.Validate caches struct
// metadata, so one shared instance is both safe and fast.
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// instance returns the shared validator.
func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct validates a struct using its `validate` tags.
// Returns nil on success, or an error listing every failed field.
func ValidateStruct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation failed: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}

// describe renders one field error in a form useful in logs and replies.
func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "latitude":
		return fmt.Sprintf("%s must be a valid latitude (-90 to 90), got %v", fe.Field(), fe.Value())
	case "longitude":
		return fmt.Sprintf("%s must be a valid longitude (-180 to 180), got %v", fe.Field(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s, got %v", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
