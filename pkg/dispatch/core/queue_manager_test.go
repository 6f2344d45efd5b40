package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/netdispatch/pkg/dispatch/types"
)

type recordingSender struct {
	sent   [][]byte
	accept func(n int) bool
}

func (s *recordingSender) Send(frame types.Frame) bool {
	if s.accept != nil && !s.accept(len(s.sent)) {
		return false
	}
	s.sent = append(s.sent, frame.Payload)
	return true
}

func framePayload(b byte) types.Frame {
	return types.NewDataFrame([]byte{b})
}

func TestQueueManagerFIFOOrder(t *testing.T) {
	q := NewQueueManager()
	require.False(t, q.HasFrame("peer"))

	q.EnqueueFrame("peer", framePayload(1))
	q.EnqueueFrame("peer", framePayload(2))
	q.EnqueueFrame("peer", framePayload(3))

	first, ok := q.PopFrame("peer")
	require.True(t, ok)
	require.Equal(t, []byte{1}, first.Payload)

	second, ok := q.PopFrame("peer")
	require.True(t, ok)
	require.Equal(t, []byte{2}, second.Payload)

	third, ok := q.PopFrame("peer")
	require.True(t, ok)
	require.Equal(t, []byte{3}, third.Payload)

	_, ok = q.PopFrame("peer")
	require.False(t, ok)
	require.False(t, q.HasFrame("peer"))
}

func TestQueueManagerEmptyQueueReclaimed(t *testing.T) {
	q := NewQueueManager()
	q.EnqueueFrame("peer", framePayload(1))
	_, ok := q.PopFrame("peer")
	require.True(t, ok)

	require.False(t, q.HasFrame("peer"))
	_, ok = q.PopFrame("peer")
	require.False(t, ok)
}

func TestQueueManagerTryDrainFullySucceeds(t *testing.T) {
	q := NewQueueManager()
	q.EnqueueFrame("peer", framePayload(1))
	q.EnqueueFrame("peer", framePayload(2))

	sender := &recordingSender{}
	closed := q.TryDrain("peer", sender)

	require.False(t, closed)
	require.Len(t, sender.sent, 2)
	require.Equal(t, []byte{1}, sender.sent[0])
	require.Equal(t, []byte{2}, sender.sent[1])
	require.False(t, q.HasFrame("peer"))
}

func TestQueueManagerTryDrainRequeuesOnFailure(t *testing.T) {
	q := NewQueueManager()
	q.EnqueueFrame("peer", framePayload(1))
	q.EnqueueFrame("peer", framePayload(2))
	q.EnqueueFrame("peer", framePayload(3))

	sender := &recordingSender{accept: func(n int) bool { return n < 1 }}
	closed := q.TryDrain("peer", sender)

	require.True(t, closed)
	require.Len(t, sender.sent, 1)
	require.Equal(t, []byte{1}, sender.sent[0])

	require.True(t, q.HasFrame("peer"))
	next, ok := q.PopFrame("peer")
	require.True(t, ok)
	require.Equal(t, []byte{2}, next.Payload, "the frame that failed to send must be re-queued at the head")
}

func TestQueueManagerTryDrainOnEmptyQueueIsNotClosed(t *testing.T) {
	q := NewQueueManager()
	sender := &recordingSender{}
	closed := q.TryDrain("peer", sender)
	require.False(t, closed)
	require.Empty(t, sender.sent)
}
