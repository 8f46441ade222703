// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// reviewInstruction asks the oracle for a review instead of a rewrite.
const reviewInstruction = "Review the following code. Point out defects, risky patterns, and concrete improvements. Do not rewrite the whole program."

// maxReviewBytes bounds the submitted source size.
const maxReviewBytes = 64 * 1024

type ReviewRequest struct {
	Code string `json:"code"`
}

type ReviewResponse struct {
	Review string `json:"review"`
}

// handleReview sends submitted source to the oracle for code review.
func (s *Server) handleReview(c *gin.Context) {
	if s.Oracle == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Code review unavailable: no oracle credential configured"})
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No code provided"})
		return
	}
	if len(req.Code) > maxReviewBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code too large", "max_bytes": maxReviewBytes})
		return
	}

	slog.Info("Handling code review request", "code_bytes", len(req.Code))
	reviewRequests.Inc()

	review, err := s.Oracle.Enhance(c.Request.Context(), reviewInstruction, req.Code)
	if err != nil {
		slog.Error("Code review failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Review failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ReviewResponse{Review: review})
}
