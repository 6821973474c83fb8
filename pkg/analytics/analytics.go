// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package analytics is the usage-analytics seam for the tutor service.
//
// Track is deliberately a local stub: events are logged and counted but
// never delivered to an external analytics provider. Learner data stays
// on the box. The call sites stay in place so a provider can be wired in
// behind this API later.
package analytics

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "precalc",
		Subsystem: "analytics",
		Name:      "events_total",
		Help:      "Total analytics events by name",
	},
	[]string{"event"},
)

// Track records a named usage event with optional properties.
//
// Inputs:
//
//	event - Event name, e.g. "tutor_request" or "ocr_request".
//	props - Optional event properties. Must not contain learner message
//	  content; keep to counts, flags, and durations.
func Track(event string, props map[string]any) {
	eventsTotal.WithLabelValues(event).Inc()

	attrs := make([]any, 0, 2+2*len(props))
	attrs = append(attrs, "event", event)
	for k, v := range props {
		attrs = append(attrs, k, v)
	}
	slog.Debug("analytics event", attrs...)
}
