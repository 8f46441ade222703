// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveOracleCredential_Env(t *testing.T) {
	t.Setenv(EnvOracleAPIKey, "sk-test-key-from-env")

	cred, err := resolveOracleCredential("")
	if err != nil {
		t.Fatalf("resolveOracleCredential() error = %v", err)
	}
	if cred.Source() != "env" {
		t.Errorf("Source() = %q, want env", cred.Source())
	}

	var got string
	err = cred.Expose(func(key string) error {
		got = strings.Clone(key)
		return nil
	})
	if err != nil {
		t.Fatalf("Expose() error = %v", err)
	}
	if got != "sk-test-key-from-env" {
		t.Errorf("exposed key = %q", got)
	}
}

func TestResolveOracleCredential_EnvTrimsWhitespace(t *testing.T) {
	t.Setenv(EnvOracleAPIKey, "  sk-padded \n")

	cred, err := resolveOracleCredential("")
	if err != nil {
		t.Fatalf("resolveOracleCredential() error = %v", err)
	}

	cred.Expose(func(key string) error {
		if key != "sk-padded" {
			t.Errorf("exposed key = %q, want trimmed", key)
		}
		return nil
	})
}

func TestResolveOracleCredential_FileFallback(t *testing.T) {
	t.Setenv(EnvOracleAPIKey, "")

	keyFile := filepath.Join(t.TempDir(), "openai.key")
	if err := os.WriteFile(keyFile, []byte("sk-test-key-from-file\n"), 0600); err != nil {
		t.Fatalf("writing key file: %v", err)
	}

	cred, err := resolveOracleCredential(keyFile)
	if err != nil {
		t.Fatalf("resolveOracleCredential() error = %v", err)
	}
	if cred.Source() != "file" {
		t.Errorf("Source() = %q, want file", cred.Source())
	}

	cred.Expose(func(key string) error {
		if key != "sk-test-key-from-file" {
			t.Errorf("exposed key = %q", key)
		}
		return nil
	})
}

func TestResolveOracleCredential_EnvWinsOverFile(t *testing.T) {
	t.Setenv(EnvOracleAPIKey, "sk-env")

	keyFile := filepath.Join(t.TempDir(), "openai.key")
	if err := os.WriteFile(keyFile, []byte("sk-file"), 0600); err != nil {
		t.Fatalf("writing key file: %v", err)
	}

	cred, err := resolveOracleCredential(keyFile)
	if err != nil {
		t.Fatalf("resolveOracleCredential() error = %v", err)
	}
	if cred.Source() != "env" {
		t.Errorf("Source() = %q, want env to take precedence", cred.Source())
	}
}

func TestResolveOracleCredential_Missing(t *testing.T) {
	t.Setenv(EnvOracleAPIKey, "")

	tests := []struct {
		name    string
		keyFile string
	}{
		{"no sources", ""},
		{"empty key file", "EMPTY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keyFile := tt.keyFile
			if keyFile == "EMPTY" {
				keyFile = filepath.Join(t.TempDir(), "empty.key")
				if err := os.WriteFile(keyFile, []byte("  \n"), 0600); err != nil {
					t.Fatalf("writing key file: %v", err)
				}
			}

			_, err := resolveOracleCredential(keyFile)
			if !errors.Is(err, ErrCredentialNotFound) {
				t.Errorf("error = %v, want ErrCredentialNotFound", err)
			}
		})
	}
}

func TestResolveOracleCredential_UnreadableFile(t *testing.T) {
	t.Setenv(EnvOracleAPIKey, "")

	_, err := resolveOracleCredential(filepath.Join(t.TempDir(), "missing.key"))
	if err == nil {
		t.Fatal("expected error for missing key file")
	}
}
