// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analytics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// TestTrackCounts verifies events are counted by name.
func TestTrackCounts(t *testing.T) {
	before := testutil.ToFloat64(eventsTotal.WithLabelValues("unit_test_event"))

	Track("unit_test_event", map[string]any{"tokens": 5})
	Track("unit_test_event", nil)

	after := testutil.ToFloat64(eventsTotal.WithLabelValues("unit_test_event"))
	assert.Equal(t, before+2, after)
}
