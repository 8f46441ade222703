// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// The dashboard service exposes the AutoIntel car dashboard API: mock
// listing generation, VIN decoding against the public NHTSA registry, and
// oracle-backed code review.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/AutoIntelAI/AutoIntel/services/llm"
)

// defaultNHTSAURL is the public vPIC decode endpoint.
const defaultNHTSAURL = "https://vpic.nhtsa.dot.gov/api/vehicles"

// HTTPClient interface allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Server holds all dashboard dependencies.
type Server struct {
	HTTPClient HTTPClient
	Oracle     llm.OracleClient
	Limiter    *rate.Limiter
	NHTSAURL   string
	Listings   ListingConfig
}

// routes registers all dashboard endpoints on the router.
func (s *Server) routes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "autointel-dashboard"})
	})
	router.GET("/metrics", metricsHandler())

	router.POST("/v1/listings/generate", s.handleGenerateListings)
	router.POST("/v1/vin/decode", s.handleDecodeVIN)
	router.POST("/v1/vin/decode-batch", s.handleDecodeVINBatch)
	router.POST("/v1/review", s.handleReview)
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	nhtsaURL := os.Getenv("NHTSA_BASE_URL")
	if nhtsaURL == "" {
		nhtsaURL = defaultNHTSAURL
	}

	server := &Server{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		// Stay polite to the public registry: 5 req/s with small bursts.
		Limiter:  rate.NewLimiter(rate.Limit(5), 10),
		NHTSAURL: nhtsaURL,
		Listings: DefaultListingConfig(),
	}

	// Code review is optional: without a credential the endpoint reports
	// itself unavailable instead of blocking startup.
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		oracle, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey: apiKey,
			Model:  os.Getenv("OPENAI_MODEL"),
		})
		if err != nil {
			slog.Error("Failed to initialize oracle client", "error", err)
			os.Exit(1)
		}
		server.Oracle = oracle
	} else {
		slog.Warn("OPENAI_API_KEY not set, code review endpoint disabled")
	}

	slog.Info("Starting AutoIntel dashboard", "nhtsa_url", nhtsaURL)

	router := gin.Default()
	server.routes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8002"
	}

	slog.Info("Starting dashboard API server", "port", port)
	if err := router.Run(":" + port); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
