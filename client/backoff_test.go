package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	b := NewBackoff(time.Second, 10*time.Second)

	assert.Equal(t, 1*time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next())
	assert.Equal(t, 8*time.Second, b.Next())
	assert.Equal(t, 10*time.Second, b.Next(), "backoff is capped")
	assert.Equal(t, 10*time.Second, b.Next())

	b.Reset()
	assert.Equal(t, 1*time.Second, b.Next())
}
