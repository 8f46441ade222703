// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// vinDecodes counts VIN decode outcomes by status (ok, error, invalid).
	vinDecodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autointel_vin_decodes_total",
		Help: "VIN decode attempts by outcome.",
	}, []string{"status"})

	// listingsGenerated counts mock listings produced.
	listingsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autointel_listings_generated_total",
		Help: "Mock car listings generated.",
	})

	// reviewRequests counts oracle-backed code review requests.
	reviewRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autointel_review_requests_total",
		Help: "Code review requests sent to the oracle.",
	})
)

// metricsHandler exposes the Prometheus registry on a gin route.
func metricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
