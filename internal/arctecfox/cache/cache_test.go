package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNilClientIsAMiss(t *testing.T) {
	var c *Client
	ctx := context.Background()

	v, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
}

func TestUnreachableRedisReturnsErrors(t *testing.T) {
	core, recorded := observer.New(zap.WarnLevel)
	c := New("127.0.0.1:1", "", 0, zap.New(core))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	v, err := c.Get(ctx, "revoked:abc")
	assert.Error(t, err, "an outage must not read as a miss")
	assert.Nil(t, v)
	assert.Equal(t, 1, recorded.FilterMessage("redis get failed").Len())

	assert.Error(t, c.Set(ctx, "revoked:abc", []byte("1"), time.Minute))
	assert.Error(t, c.Ping(ctx))
}
