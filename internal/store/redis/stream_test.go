package redis

import (
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestQueueConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := QueueConfig{}.withDefaults()
	assert.Equal(t, "agelens:airdrop", cfg.Stream)
	assert.Equal(t, "airdrop-workers", cfg.Group)
	assert.Equal(t, 5*time.Second, cfg.BlockTimeout)
	assert.Equal(t, "agelens:airdrop:delayed", cfg.delayedKey())
	assert.Equal(t, "agelens:airdrop:dead", cfg.deadKey())

	custom := QueueConfig{Stream: "s", BlockTimeout: time.Second}.withDefaults()
	assert.Equal(t, "s:dead", custom.deadKey())
	assert.Equal(t, time.Second, custom.BlockTimeout)
}

func TestIsBusyGroup(t *testing.T) {
	t.Parallel()

	assert.True(t, isBusyGroup(errors.New("BUSYGROUP Consumer Group name already exists")))
	assert.False(t, isBusyGroup(errors.New("ERR no such key")))
	assert.False(t, isBusyGroup(nil))
}

func TestToDelivery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		values   map[string]any
		expected []byte
	}{
		{name: "string payload", values: map[string]any{"payload": `{"a":1}`}, expected: []byte(`{"a":1}`)},
		{name: "bytes payload", values: map[string]any{"payload": []byte("x")}, expected: []byte("x")},
		{name: "missing payload", values: map[string]any{"other": "x"}, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := toDelivery(redis.XMessage{ID: "1-0", Values: tt.values})
			assert.Equal(t, "1-0", d.ID)
			assert.Equal(t, tt.expected, d.Payload)
		})
	}
}
