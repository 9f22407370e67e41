package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func TestRedisPublisherDeliversEnvelope(t *testing.T) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	defer client.Close()

	ctx := WithCorrelationID(context.Background(), "req-42")
	sub := client.Subscribe(ctx, "class:events")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	event := New(EvaluationFinalized, map[string]interface{}{"submission_id": 7})
	require.NoError(t, NewRedisPublisher(client, "class:events").Publish(ctx, event))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &decoded))
	require.Equal(t, event.ID, decoded.ID)
	require.Equal(t, EvaluationFinalized, decoded.Type)
	require.Equal(t, "req-42", decoded.CorrelationID)
	require.EqualValues(t, 7, decoded.Data["submission_id"])
}

func TestMultiPublisherFansOutAndJoinsErrors(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("broker down")}

	err := Multi(ok, nil, failing).Publish(context.Background(), New(FeedbackPublished, nil))
	require.ErrorContains(t, err, "broker down")
	require.Len(t, ok.events, 1)
	require.Len(t, failing.events, 1)
}

func TestMultiWithoutPublishersIsNop(t *testing.T) {
	require.NoError(t, Multi().Publish(context.Background(), New(SnapshotCreated, nil)))
}

func TestNATSSubject(t *testing.T) {
	require.Equal(t, "class.events.feedback.published", NewNATSPublisher(nil, "class.events.").Subject(FeedbackPublished))
	require.Equal(t, "roster.synced", NewNATSPublisher(nil, "").Subject(RosterSynced))
}

func TestCorrelationIDIgnoresBlankValues(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "  ")
	require.Empty(t, CorrelationID(ctx))
	require.Equal(t, "abc", CorrelationID(WithCorrelationID(ctx, " abc ")))
}
