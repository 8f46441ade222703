// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/AutoIntelAI/AutoIntel/pkg/validation"
)

const (
	// NUM_WORKERS is the number of parallel decodes per batch request.
	NUM_WORKERS = 4

	// maxBatchVINs bounds one batch decode request.
	maxBatchVINs = 50
)

// --- NHTSA vPIC Structs ---

type nhtsaDecodeResponse struct {
	Count   int                 `json:"Count"`
	Message string              `json:"Message"`
	Results []map[string]string `json:"Results"`
}

// DecodedVIN is the subset of vPIC fields the dashboard displays.
type DecodedVIN struct {
	VIN          string `json:"vin"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	ModelYear    string `json:"model_year"`
	VehicleType  string `json:"vehicle_type"`
	BodyClass    string `json:"body_class"`
	Manufacturer string `json:"manufacturer"`
	ErrorCode    string `json:"error_code"`
	ErrorText    string `json:"error_text,omitempty"`
}

// --- API Request/Response Structs ---

type DecodeVINRequest struct {
	VIN  string `json:"vin"`
	Year int    `json:"year"`
}

type DecodeVINBatchRequest struct {
	VINs []string `json:"vins"`
	Year int      `json:"year"`
}

type DecodeVINBatchResponse struct {
	Results map[string]*DecodedVIN `json:"results"`
	Errors  map[string]string      `json:"errors,omitempty"`
	Count   int                    `json:"count"`
}

// decodeVIN calls the NHTSA vPIC API for one sanitized VIN.
func (s *Server) decodeVIN(ctx context.Context, vin string, year int) (*DecodedVIN, error) {
	if err := s.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	url := fmt.Sprintf("%s/DecodeVinValuesExtended/%s?format=json", s.NHTSAURL, vin)
	if year > 0 {
		url += "&modelyear=" + strconv.Itoa(year)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building NHTSA request: %w", err)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling NHTSA API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NHTSA API returned status %d", resp.StatusCode)
	}

	var parsed nhtsaDecodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding NHTSA response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return nil, fmt.Errorf("NHTSA response contained no results")
	}

	fields := parsed.Results[0]
	return &DecodedVIN{
		VIN:          vin,
		Make:         fields["Make"],
		Model:        fields["Model"],
		ModelYear:    fields["ModelYear"],
		VehicleType:  fields["VehicleType"],
		BodyClass:    fields["BodyClass"],
		Manufacturer: fields["Manufacturer"],
		ErrorCode:    fields["ErrorCode"],
		ErrorText:    fields["ErrorText"],
	}, nil
}

// handleDecodeVIN decodes a single VIN.
func (s *Server) handleDecodeVIN(c *gin.Context) {
	var req DecodeVINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	vin, err := validation.SanitizeVIN(req.VIN)
	if err != nil {
		vinDecodes.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid VIN", "details": err.Error()})
		return
	}

	slog.Info("Handling VIN decode request", "vin", vin, "year", req.Year)

	decoded, err := s.decodeVIN(c.Request.Context(), vin, req.Year)
	if err != nil {
		vinDecodes.WithLabelValues("error").Inc()
		slog.Error("VIN decode failed", "vin", vin, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Decode failed", "details": err.Error()})
		return
	}

	vinDecodes.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, decoded)
}

// handleDecodeVINBatch decodes multiple VINs with a worker pool.
func (s *Server) handleDecodeVINBatch(c *gin.Context) {
	var req DecodeVINBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(req.VINs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No VINs provided"})
		return
	}
	if len(req.VINs) > maxBatchVINs {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many VINs", "max": maxBatchVINs})
		return
	}

	// Validate all VINs up front so one bad entry fails fast.
	for i, vin := range req.VINs {
		sanitized, err := validation.SanitizeVIN(vin)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid VIN", "details": err.Error()})
			return
		}
		req.VINs[i] = sanitized
	}

	slog.Info("Handling batch VIN decode request", "count", len(req.VINs))

	type decodeOutcome struct {
		vin     string
		decoded *DecodedVIN
		err     error
	}

	var wg sync.WaitGroup
	jobs := make(chan string, len(req.VINs))
	outcomes := make(chan decodeOutcome, len(req.VINs))

	for i := 0; i < NUM_WORKERS; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for vin := range jobs {
				decoded, err := s.decodeVIN(c.Request.Context(), vin, req.Year)
				outcomes <- decodeOutcome{vin: vin, decoded: decoded, err: err}
			}
		}()
	}

	for _, vin := range req.VINs {
		jobs <- vin
	}
	close(jobs)

	wg.Wait()
	close(outcomes)

	resp := DecodeVINBatchResponse{Results: make(map[string]*DecodedVIN)}
	for outcome := range outcomes {
		if outcome.err != nil {
			vinDecodes.WithLabelValues("error").Inc()
			if resp.Errors == nil {
				resp.Errors = make(map[string]string)
			}
			resp.Errors[outcome.vin] = outcome.err.Error()
			continue
		}
		vinDecodes.WithLabelValues("ok").Inc()
		resp.Results[outcome.vin] = outcome.decoded
	}
	resp.Count = len(resp.Results)

	c.JSON(http.StatusOK, resp)
}
