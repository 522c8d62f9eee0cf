package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "user:U5678", userKey("U5678"))
	assert.Equal(t, "user:U5678:2024-01-01", userDateKey("U5678", "2024-01-01"))
	assert.Equal(t, "daily:2024-01-01", dailyKey("2024-01-01"))
	assert.Equal(t, "order:seen:ORD1234", seenKey("ORD1234"))
	assert.Equal(t, "global:stats", globalStatsKey)
}
