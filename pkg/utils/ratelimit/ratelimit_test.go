package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketAllowsBurst(t *testing.T) {
	b := NewBucket(1, 5)
	for i := 0; i < 5; i++ {
		assert.True(t, b.Allow(), "request %d within burst", i)
	}
	assert.False(t, b.Allow(), "burst exhausted")
}

func TestNilBucketAlwaysAllows(t *testing.T) {
	var b *Bucket
	for i := 0; i < 100; i++ {
		assert.True(t, b.Allow())
	}
}

func TestDisabledConfiguration(t *testing.T) {
	assert.Nil(t, NewBucket(0, 10))
	assert.Nil(t, NewBucket(5, 0))
}
