package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimestamp_IsSet(t *testing.T) {
	assert.False(t, UnsetTimestamp.IsSet())
	assert.True(t, Timestamp(0).IsSet())
	assert.True(t, Timestamp(-1.5).IsSet())
}

func TestTimestamp_Add(t *testing.T) {
	assert.Equal(t, Timestamp(3.5), Timestamp(1.5).Add(2.0))
	assert.False(t, UnsetTimestamp.Add(2.0).IsSet())
}

func TestTimestamp_Clamp(t *testing.T) {
	assert.Equal(t, Timestamp(5.0), Timestamp(10.0).Clamp(0, 5.0))
	assert.Equal(t, Timestamp(0.0), Timestamp(-5.0).Clamp(0, 5.0))
	assert.Equal(t, Timestamp(3.0), Timestamp(3.0).Clamp(0, 5.0))
	assert.Equal(t, Timestamp(3.0), Timestamp(3.0).Clamp(UnsetTimestamp, UnsetTimestamp))
	assert.False(t, UnsetTimestamp.Clamp(0, 5.0).IsSet())
}

func TestMinTimestamp(t *testing.T) {
	assert.Equal(t, Timestamp(1.0), MinTimestamp(1.0, 2.0))
	assert.Equal(t, Timestamp(1.0), MinTimestamp(2.0, 1.0))
	assert.Equal(t, Timestamp(2.0), MinTimestamp(UnsetTimestamp, 2.0))
	assert.Equal(t, Timestamp(2.0), MinTimestamp(2.0, UnsetTimestamp))
	assert.False(t, MinTimestamp(UnsetTimestamp, UnsetTimestamp).IsSet())
}

func TestMaxTimestamp(t *testing.T) {
	assert.Equal(t, Timestamp(2.0), MaxTimestamp(1.0, 2.0))
	assert.Equal(t, Timestamp(2.0), MaxTimestamp(2.0, 1.0))
	assert.Equal(t, Timestamp(2.0), MaxTimestamp(UnsetTimestamp, 2.0))
	assert.Equal(t, Timestamp(2.0), MaxTimestamp(2.0, UnsetTimestamp))
	assert.False(t, MaxTimestamp(UnsetTimestamp, UnsetTimestamp).IsSet())
}
