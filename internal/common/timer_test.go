package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer(t *testing.T) {
	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)

	first := timer.Stop()
	assert.GreaterOrEqual(t, first, 10*time.Millisecond)
	assert.GreaterOrEqual(t, timer.Stop(), first)
}

func TestTimerRestart(t *testing.T) {
	timer := NewTimer()
	time.Sleep(50 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Stop(), 50*time.Millisecond)

	timer.Restart()
	assert.Less(t, timer.Stop(), 50*time.Millisecond)
}
