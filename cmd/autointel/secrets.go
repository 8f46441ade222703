// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/awnumar/memguard"
)

// ErrCredentialNotFound is returned when no oracle credential could be
// resolved from any source.
var ErrCredentialNotFound = errors.New("oracle credential not found")

// EnvOracleAPIKey is the environment variable holding the oracle API key.
const EnvOracleAPIKey = "OPENAI_API_KEY"

// Credential holds an oracle API key in locked memory. The plaintext only
// exists inside Expose callbacks and is wiped when they return.
//
// # Thread Safety
//
// Safe for concurrent use; the enclave is immutable after creation.
type Credential struct {
	enclave *memguard.Enclave
	source  string
}

// Source reports where the credential came from ("env" or "file"), for
// logging. The value itself is never logged.
func (c *Credential) Source() string {
	return c.source
}

// Expose decrypts the credential and passes it to f. The decrypted buffer
// is destroyed when f returns, so f must not retain the string.
func (c *Credential) Expose(f func(key string) error) error {
	buf, err := c.enclave.Open()
	if err != nil {
		return fmt.Errorf("opening credential enclave: %w", err)
	}
	defer buf.Destroy()
	return f(buf.String())
}

// resolveOracleCredential locates the oracle API key, preferring the
// environment over the configured key file. Called before any pipeline
// side effect so a missing credential aborts with the artifact untouched.
//
// # Inputs
//
//   - keyFile: Optional path to a file holding the bare key. Empty
//     disables the file fallback.
//
// # Outputs
//
//   - *Credential: Key sealed in a memguard enclave.
//   - error: ErrCredentialNotFound if neither source yields a key.
func resolveOracleCredential(keyFile string) (*Credential, error) {
	if key := strings.TrimSpace(os.Getenv(EnvOracleAPIKey)); key != "" {
		return &Credential{enclave: memguard.NewEnclave([]byte(key)), source: "env"}, nil
	}

	if keyFile != "" {
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("reading API key file %s: %w", keyFile, err)
		}
		key := strings.TrimSpace(string(data))
		if key == "" {
			return nil, fmt.Errorf("%w: key file %s is empty", ErrCredentialNotFound, keyFile)
		}
		return &Credential{enclave: memguard.NewEnclave([]byte(key)), source: "file"}, nil
	}

	return nil, fmt.Errorf("%w: set %s or configure oracle.api_key_file", ErrCredentialNotFound, EnvOracleAPIKey)
}
