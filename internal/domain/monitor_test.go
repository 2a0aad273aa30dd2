package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonitorDue(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	never := Monitor{IntervalSeconds: 60}
	assert.True(t, never.Due(now), "never-checked monitor is always due")

	checked := func(ago time.Duration) *Monitor {
		at := now.Add(-ago)
		return &Monitor{IntervalSeconds: 60, LastCheckedAt: &at}
	}

	assert.False(t, checked(30*time.Second).Due(now))
	assert.True(t, checked(60*time.Second).Due(now), "due exactly at the interval boundary")
	assert.True(t, checked(5*time.Minute).Due(now))
}

func TestMonitorTimeout(t *testing.T) {
	m := Monitor{TimeoutSeconds: 30}
	assert.Equal(t, 30*time.Second, m.Timeout())
}
