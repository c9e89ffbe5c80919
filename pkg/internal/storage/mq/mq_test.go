package mq_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/cloudbox/pkg/configs"
	"github.com/yeisme/cloudbox/pkg/internal/storage/mq"
)

func TestRegisteredTypes(t *testing.T) {
	assert.Equal(t,
		[]configs.MQType{configs.MQTypeMemory, configs.MQTypeNATS, configs.MQTypeRedis},
		mq.GetRegisteredMQTypes())
}

func TestMemoryPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cli, err := mq.New(ctx, &configs.MQConfig{
		Type:   configs.MQTypeMemory,
		Memory: configs.MQMemoryConfig{OutputBuffer: 8},
	})
	require.NoError(t, err)

	defer cli.Close()

	ch, err := cli.Subscribe(ctx, "cb.test")
	require.NoError(t, err)

	msg := message.NewMessage("id-1", []byte("hello"))
	msg.Metadata.Set("k", "v")
	require.NoError(t, cli.Publish(ctx, "cb.test", msg))

	select {
	case got := <-ch:
		assert.Equal(t, "id-1", got.UUID)
		assert.Equal(t, "hello", string(got.Payload))
		assert.Equal(t, "v", got.Metadata.Get("k"))
		got.Ack()
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestUnknownType(t *testing.T) {
	_, err := mq.New(context.Background(), &configs.MQConfig{Type: "kafka"})
	assert.Error(t, err)
}

func TestNilClient(t *testing.T) {
	var cli *mq.Client

	assert.ErrorIs(t, cli.Publish(context.Background(), "x"), mq.ErrNotInitialized)
	assert.NoError(t, cli.Close())
}
