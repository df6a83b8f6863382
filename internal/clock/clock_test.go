package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewManual(t0)

	assert.Equal(t, t0, c.Now())

	c.Advance(20 * time.Minute)
	assert.Equal(t, t0.Add(20*time.Minute), c.Now())

	c.Set(t0)
	assert.Equal(t, t0, c.Now())
}

func TestSystemClockIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, System().Now().Location())
}
