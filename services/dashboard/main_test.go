// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mock HTTP Client ---

type MockHTTPClient struct {
	DoFunc   func(req *http.Request) (*http.Response, error)
	Requests []*http.Request
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.Requests = append(m.Requests, req)
	return m.DoFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// --- Fake Oracle ---

type fakeOracle struct {
	response string
	err      error
}

func (f *fakeOracle) Enhance(ctx context.Context, instruction, content string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// --- Helpers ---

const nhtsaOKBody = `{
	"Count": 1,
	"Message": "Results returned successfully",
	"Results": [{
		"Make": "HONDA",
		"Model": "Civic",
		"ModelYear": "1991",
		"VehicleType": "PASSENGER CAR",
		"BodyClass": "Sedan",
		"Manufacturer": "HONDA OF CANADA MFG",
		"ErrorCode": "0",
		"ErrorText": ""
	}]
}`

func newTestServer(mock *MockHTTPClient) (*Server, *gin.Engine) {
	server := &Server{
		HTTPClient: mock,
		Limiter:    rate.NewLimiter(rate.Inf, 0),
		NHTSAURL:   "http://nhtsa.test/api/vehicles",
		Listings:   DefaultListingConfig(),
	}
	router := gin.New()
	server.routes(router)
	return server, router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// --- Health ---

func TestHealth(t *testing.T) {
	_, router := newTestServer(&MockHTTPClient{})

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

// --- Listings ---

func TestHandleGenerateListings(t *testing.T) {
	server, router := newTestServer(&MockHTTPClient{})

	w := doJSON(t, router, http.MethodPost, "/v1/listings/generate", GenerateListingsRequest{Count: 25})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp GenerateListingsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 25 || len(resp.Listings) != 25 {
		t.Fatalf("count = %d, listings = %d, want 25", resp.Count, len(resp.Listings))
	}

	cfg := server.Listings
	for _, l := range resp.Listings {
		models, ok := cfg.MakesModels[l.Make]
		if !ok {
			t.Errorf("unknown make %q", l.Make)
			continue
		}
		found := false
		for _, m := range models {
			if m == l.Model {
				found = true
			}
		}
		if !found {
			t.Errorf("model %q not valid for make %q", l.Model, l.Make)
		}
		if l.Year < cfg.MinYear || l.Year > cfg.MaxYear {
			t.Errorf("year %d out of range", l.Year)
		}
		if l.Price < cfg.MinPrice || l.Price > cfg.MaxPrice {
			t.Errorf("price %d out of range", l.Price)
		}
	}
}

func TestHandleGenerateListings_Validation(t *testing.T) {
	_, router := newTestServer(&MockHTTPClient{})

	tests := []struct {
		name  string
		count int
	}{
		{"zero", 0},
		{"negative", -3},
		{"too large", maxListingCount + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/v1/listings/generate", GenerateListingsRequest{Count: tt.count})
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

// --- VIN decode ---

func TestHandleDecodeVIN(t *testing.T) {
	mock := &MockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, nhtsaOKBody), nil
		},
	}
	_, router := newTestServer(mock)

	w := doJSON(t, router, http.MethodPost, "/v1/vin/decode", DecodeVINRequest{VIN: "1hgbh41jxmn109186", Year: 1991})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var decoded DecodedVIN
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if decoded.Make != "HONDA" || decoded.Model != "Civic" {
		t.Errorf("decoded = %+v, want HONDA Civic", decoded)
	}
	if decoded.VIN != "1HGBH41JXMN109186" {
		t.Errorf("vin = %q, want sanitized uppercase", decoded.VIN)
	}

	if len(mock.Requests) != 1 {
		t.Fatalf("NHTSA calls = %d, want 1", len(mock.Requests))
	}
	url := mock.Requests[0].URL.String()
	if !strings.Contains(url, "/DecodeVinValuesExtended/1HGBH41JXMN109186") {
		t.Errorf("request url = %q, want sanitized VIN in path", url)
	}
	if !strings.Contains(url, "modelyear=1991") {
		t.Errorf("request url = %q, want modelyear param", url)
	}
}

func TestHandleDecodeVIN_InvalidVIN(t *testing.T) {
	mock := &MockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			t.Error("NHTSA should not be called for an invalid VIN")
			return nil, errors.New("unreachable")
		},
	}
	_, router := newTestServer(mock)

	w := doJSON(t, router, http.MethodPost, "/v1/vin/decode", DecodeVINRequest{VIN: "nope"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleDecodeVIN_UpstreamFailure(t *testing.T) {
	tests := []struct {
		name   string
		doFunc func(req *http.Request) (*http.Response, error)
	}{
		{
			name: "network error",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
		},
		{
			name: "server error",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusInternalServerError, `{}`), nil
			},
		},
		{
			name: "empty results",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"Count": 0, "Results": []}`), nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router := newTestServer(&MockHTTPClient{DoFunc: tt.doFunc})

			w := doJSON(t, router, http.MethodPost, "/v1/vin/decode", DecodeVINRequest{VIN: "1HGBH41JXMN109186"})
			if w.Code != http.StatusBadGateway {
				t.Errorf("status = %d, want 502", w.Code)
			}
		})
	}
}

func TestHandleDecodeVINBatch(t *testing.T) {
	mock := &MockHTTPClient{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			if strings.Contains(req.URL.Path, "JH4KA7561PC008269") {
				return nil, errors.New("connection reset")
			}
			return jsonResponse(http.StatusOK, nhtsaOKBody), nil
		},
	}
	_, router := newTestServer(mock)

	w := doJSON(t, router, http.MethodPost, "/v1/vin/decode-batch", DecodeVINBatchRequest{
		VINs: []string{"1HGBH41JXMN109186", "JH4KA7561PC008269", "2HGFB2F50EH542858"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp DecodeVINBatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2 successful decodes", resp.Count)
	}
	if len(resp.Errors) != 1 {
		t.Errorf("errors = %v, want 1 failed decode", resp.Errors)
	}
	if _, ok := resp.Errors["JH4KA7561PC008269"]; !ok {
		t.Errorf("errors = %v, want entry for the failing VIN", resp.Errors)
	}
}

func TestHandleDecodeVINBatch_Validation(t *testing.T) {
	_, router := newTestServer(&MockHTTPClient{})

	w := doJSON(t, router, http.MethodPost, "/v1/vin/decode-batch", DecodeVINBatchRequest{VINs: nil})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty batch: status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/v1/vin/decode-batch", DecodeVINBatchRequest{
		VINs: []string{"1HGBH41JXMN109186", "bad-vin"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid entry: status = %d, want 400", w.Code)
	}
}

// --- Code review ---

func TestHandleReview(t *testing.T) {
	server, router := newTestServer(&MockHTTPClient{})
	server.Oracle = &fakeOracle{response: "Consider adding error handling."}

	w := doJSON(t, router, http.MethodPost, "/v1/review", ReviewRequest{Code: "print('v1')"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp ReviewResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Review != "Consider adding error handling." {
		t.Errorf("review = %q", resp.Review)
	}
}

func TestHandleReview_NoOracle(t *testing.T) {
	_, router := newTestServer(&MockHTTPClient{})

	w := doJSON(t, router, http.MethodPost, "/v1/review", ReviewRequest{Code: "x"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestHandleReview_Validation(t *testing.T) {
	server, router := newTestServer(&MockHTTPClient{})
	server.Oracle = &fakeOracle{response: "ok"}

	w := doJSON(t, router, http.MethodPost, "/v1/review", ReviewRequest{Code: ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty code: status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/v1/review", ReviewRequest{Code: strings.Repeat("x", maxReviewBytes+1)})
	if w.Code != http.StatusBadRequest {
		t.Errorf("oversized code: status = %d, want 400", w.Code)
	}
}

func TestHandleReview_OracleFailure(t *testing.T) {
	server, router := newTestServer(&MockHTTPClient{})
	server.Oracle = &fakeOracle{err: errors.New("timeout")}

	w := doJSON(t, router, http.MethodPost, "/v1/review", ReviewRequest{Code: "x"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}
