package publish_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/speedwagon-io/vitalwatch/internal/config"
	"github.com/speedwagon-io/vitalwatch/internal/model"
	"github.com/speedwagon-io/vitalwatch/internal/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupPublisher(t *testing.T) (*miniredis.Miniredis, *redis.Client, *publish.RedisPublisher) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.PublishConfig{
		Enabled: true,
		Channel: "vitalwatch:frames",
		Key:     "vitalwatch:view",
		TTL:     30 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
		},
	}

	return mr, client, publish.NewRedisPublisher(discardLogger(), client, cfg)
}

func testFrame() *model.Frame {
	frame := model.NewFrame("list", "ready", 3, time.Now())
	frame.Summary = &model.Summary{Patients: 2, WithData: 2}
	frame.Alerts = []model.Alert{{
		Patient: model.Patient{PatientID: "P003", Name: "Bob Johnson"},
		Vitals:  model.VitalsReading{PatientID: "P003", RiskScore: 91, RiskLevel: model.RiskCritical},
	}}
	return frame
}

func TestRedisPublisher_StoresLatestFrame(t *testing.T) {
	mr, _, pub := setupPublisher(t)
	ctx := context.Background()

	frame := testFrame()
	require.NoError(t, pub.Publish(ctx, frame))

	raw, err := mr.Get("vitalwatch:view:list")
	require.NoError(t, err)

	stored, err := model.FrameFromJSON([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, frame.ID, stored.ID)
	assert.Equal(t, uint64(3), stored.Cycle)
	require.Len(t, stored.Alerts, 1)
	assert.Equal(t, 91.0, stored.Alerts[0].Vitals.RiskScore)

	ttl := mr.TTL("vitalwatch:view:list")
	assert.Equal(t, 30*time.Second, ttl)
}

func TestRedisPublisher_AnnouncesOnChannel(t *testing.T) {
	_, client, pub := setupPublisher(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, "vitalwatch:frames")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	frame := testFrame()
	require.NoError(t, pub.Publish(ctx, frame))

	select {
	case msg := <-sub.Channel():
		got, err := model.FrameFromJSON([]byte(msg.Payload))
		require.NoError(t, err)
		assert.Equal(t, frame.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
}

func TestRedisPublisher_FailsWhenRedisIsDown(t *testing.T) {
	mr, _, pub := setupPublisher(t)
	mr.Close()

	err := pub.Publish(context.Background(), testFrame())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 attempts failed")

	require.Error(t, pub.Health(context.Background()))
}

func TestRedisPublisher_Health(t *testing.T) {
	_, _, pub := setupPublisher(t)
	require.NoError(t, pub.Health(context.Background()))
}

func TestLogPublisher(t *testing.T) {
	pub := publish.NewLogPublisher(discardLogger())
	require.NoError(t, pub.Publish(context.Background(), testFrame()))
	require.NoError(t, pub.Health(context.Background()))
	require.NoError(t, pub.Close())
}
