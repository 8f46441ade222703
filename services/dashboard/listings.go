// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log/slog"
	"math/rand"
	"net/http"

	"github.com/gin-gonic/gin"
)

// maxListingCount bounds one generation request.
const maxListingCount = 500

// ListingConfig holds the value ranges for mock car listings.
type ListingConfig struct {
	MinYear     int
	MaxYear     int
	MinPrice    int
	MaxPrice    int
	MakesModels map[string][]string
	Locations   []string
}

// DefaultListingConfig returns the sample inventory ranges.
func DefaultListingConfig() ListingConfig {
	return ListingConfig{
		MinYear:  1980,
		MaxYear:  2025,
		MinPrice: 1000,
		MaxPrice: 100000,
		MakesModels: map[string][]string{
			"Toyota": {"Camry", "Corolla", "RAV4", "Prius"},
			"Ford":   {"F-150", "Mustang", "Explorer", "Focus"},
			"Honda":  {"Civic", "Accord", "CR-V", "Fit"},
			"Tesla":  {"Model S", "Model 3", "Model X", "Model Y"},
		},
		Locations: []string{"New York", "Los Angeles", "Chicago", "Houston", "Phoenix"},
	}
}

// Listing is one mock car listing.
type Listing struct {
	Make     string `json:"make"`
	Model    string `json:"model"`
	Year     int    `json:"year"`
	Price    int    `json:"price"`
	Location string `json:"location"`
}

type GenerateListingsRequest struct {
	Count int `json:"count"`
}

type GenerateListingsResponse struct {
	Listings []Listing `json:"listings"`
	Count    int       `json:"count"`
}

// generateListing produces a single listing from the configured ranges.
func (s *Server) generateListing() Listing {
	makes := make([]string, 0, len(s.Listings.MakesModels))
	for m := range s.Listings.MakesModels {
		makes = append(makes, m)
	}
	carMake := makes[rand.Intn(len(makes))]
	models := s.Listings.MakesModels[carMake]

	return Listing{
		Make:     carMake,
		Model:    models[rand.Intn(len(models))],
		Year:     s.Listings.MinYear + rand.Intn(s.Listings.MaxYear-s.Listings.MinYear+1),
		Price:    s.Listings.MinPrice + rand.Intn(s.Listings.MaxPrice-s.Listings.MinPrice+1),
		Location: s.Listings.Locations[rand.Intn(len(s.Listings.Locations))],
	}
}

// handleGenerateListings generates mock car listings.
func (s *Server) handleGenerateListings(c *gin.Context) {
	var req GenerateListingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.Count < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Count must be a positive integer"})
		return
	}
	if req.Count > maxListingCount {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Count exceeds maximum", "max": maxListingCount})
		return
	}

	listings := make([]Listing, req.Count)
	for i := range listings {
		listings[i] = s.generateListing()
	}

	listingsGenerated.Add(float64(req.Count))
	slog.Info("Generated listings", "count", req.Count)
	c.JSON(http.StatusOK, GenerateListingsResponse{Listings: listings, Count: len(listings)})
}
