package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArchiveKey(t *testing.T) {
	at := time.Date(2026, 3, 7, 23, 30, 0, 0, time.FixedZone("X", -2*3600))

	// Partitioned by UTC day
	assert.Equal(t, "webhooks/2026/03/08/evt_123.json", archiveKey("evt_123", at))
}
