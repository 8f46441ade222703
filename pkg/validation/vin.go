// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for
// security-critical operations.
//
// This package contains validators for user-provided inputs that end up in
// outbound API URLs. Using these validators prevents injection through
// crafted path segments.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// vinPattern matches valid Vehicle Identification Numbers.
// 17 characters, uppercase letters and digits, excluding I, O and Q
// (disallowed by ISO 3779 to avoid confusion with 1 and 0).
var vinPattern = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// ValidateVIN validates a Vehicle Identification Number before it is used
// in an NHTSA API request path.
//
// Valid VINs:
//   - Exactly 17 characters
//   - Uppercase letters A-Z (excluding I, O, Q)
//   - Digits 0-9
//
// Returns an error if the VIN is invalid.
//
// Example:
//
//	if err := validation.ValidateVIN(vin); err != nil {
//	    return nil, fmt.Errorf("invalid vin: %w", err)
//	}
//	// Safe to interpolate into the decode URL
func ValidateVIN(vin string) error {
	if vin == "" {
		return fmt.Errorf("vin cannot be empty")
	}

	if !vinPattern.MatchString(vin) {
		return fmt.Errorf("invalid vin format: %q (must be 17 uppercase alphanumeric chars, excluding I, O, Q)", vin)
	}

	return nil
}

// ValidateVINs validates multiple VINs.
// Returns an error listing all invalid VINs if any fail validation.
func ValidateVINs(vins []string) error {
	var invalid []string
	for _, v := range vins {
		if err := ValidateVIN(v); err != nil {
			invalid = append(invalid, v)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid vins: %v", invalid)
	}
	return nil
}

// SanitizeVIN normalizes and validates a VIN.
// Returns the uppercase VIN if valid, or an error if invalid.
//
// Use this when you need both validation and normalization:
//
//	safeVIN, err := validation.SanitizeVIN(userInput)
//	if err != nil {
//	    return err
//	}
func SanitizeVIN(vin string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(vin))
	if err := ValidateVIN(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
