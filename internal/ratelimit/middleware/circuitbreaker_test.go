package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker(t *testing.T) {
	cb := newCircuitBreaker()

	for range 4 {
		assert.False(t, cb.RecordFailure())
	}
	assert.False(t, cb.IsOpen())
	assert.True(t, cb.RecordFailure())
	assert.True(t, cb.IsOpen())

	assert.False(t, cb.RecordSuccess())
	assert.False(t, cb.RecordSuccess())
	assert.True(t, cb.IsOpen())
	assert.True(t, cb.RecordSuccess())
	assert.False(t, cb.IsOpen())
}

func TestCircuitBreakerFailureResetsSuccessStreak(t *testing.T) {
	cb := newCircuitBreaker()
	for range 5 {
		cb.RecordFailure()
	}
	cb.RecordSuccess()
	cb.RecordSuccess()
	assert.True(t, cb.RecordFailure())

	cb.RecordSuccess()
	cb.RecordSuccess()
	assert.True(t, cb.IsOpen())
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := newCircuitBreaker()
	for range 4 {
		cb.RecordFailure()
	}
	cb.RecordSuccess()
	for range 4 {
		assert.False(t, cb.RecordFailure())
	}
}
