package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/blockbattle/internal/model"
	"github.com/mcoot/blockbattle/internal/testutil"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	messages []published
	err      error
	drained  bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, published{subject: subject, data: data})
	return nil
}

func (c *fakeConn) Drain() error {
	c.drained = true
	return nil
}

func testResult() model.GameResult {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return model.GameResult{
		RoomID:    "room-1",
		StartedAt: start,
		EndedAt:   start.Add(3 * time.Minute),
		Ranking: []model.RankingEntry{
			{PlayerID: "p2", Nickname: "Bob", Rank: 1, Score: 900},
			{PlayerID: "p1", Nickname: "Alice", Rank: 2, Score: 400},
		},
	}
}

func TestPublishGameFinished(t *testing.T) {
	conn := &fakeConn{}
	p := newNATSPublisher(conn, NATSConfig{}, testutil.NopLogger())

	require.NoError(t, p.PublishGameFinished(context.Background(), testResult()))

	require.Len(t, conn.messages, 1)
	assert.Equal(t, DefaultGameFinishedSubject, conn.messages[0].subject)

	var got model.GameResult
	require.NoError(t, json.Unmarshal(conn.messages[0].data, &got))
	assert.Equal(t, model.RoomID("room-1"), got.RoomID)
	require.Len(t, got.Ranking, 2)
	assert.Equal(t, model.PlayerID("p2"), got.Ranking[0].PlayerID)
}

func TestPublishUsesConfiguredSubject(t *testing.T) {
	conn := &fakeConn{}
	p := newNATSPublisher(conn, NATSConfig{Subject: "custom.subject"}, testutil.NopLogger())

	require.NoError(t, p.PublishGameFinished(context.Background(), testResult()))
	assert.Equal(t, "custom.subject", conn.messages[0].subject)
}

func TestPublishWrapsConnError(t *testing.T) {
	boom := errors.New("boom")
	p := newNATSPublisher(&fakeConn{err: boom}, NATSConfig{}, testutil.NopLogger())

	err := p.PublishGameFinished(context.Background(), testResult())
	assert.ErrorIs(t, err, boom)
}

func TestPublishCancelledContext(t *testing.T) {
	conn := &fakeConn{}
	p := newNATSPublisher(conn, NATSConfig{}, testutil.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.PublishGameFinished(ctx, testResult()), context.Canceled)
	assert.Empty(t, conn.messages)
}

func TestCloseDrains(t *testing.T) {
	conn := &fakeConn{}
	p := newNATSPublisher(conn, NATSConfig{}, testutil.NopLogger())

	require.NoError(t, p.Close())
	assert.True(t, conn.drained)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishGameFinished(context.Background(), testResult()))
	assert.NoError(t, p.Close())
}
