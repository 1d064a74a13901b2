package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"welfare-chat/internal/protocol"
	"welfare-chat/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notification struct{ title, body string }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (r *recordingNotifier) Schedule(title, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification{title, body})
}

func msg(id, user, ts string) protocol.Message {
	return protocol.Message{ID: id, Type: protocol.TypeText, Text: "text " + id, UserName: user, Timestamp: ts}
}

func ids(messages []protocol.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}

func newStore(t *testing.T) (*Store, *storage.Memory, *recordingNotifier) {
	t.Helper()
	mem := storage.NewMemory()
	n := &recordingNotifier{}
	return New(mem, Options{Self: "Amina", Location: time.UTC, Notifier: n}), mem, n
}

func TestIncomingIsIdempotent(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()

	m := msg("1", "Juma", "2024-01-01T10:00:00.000Z")
	assert.True(t, s.ApplyIncoming(ctx, m))
	assert.False(t, s.ApplyIncoming(ctx, m))
	assert.Equal(t, 1, s.Len())
}

func TestOwnEchoIsDiscarded(t *testing.T) {
	s, _, n := newStore(t)
	ctx := context.Background()

	mine := msg("mine", "Amina", "2024-01-01T10:00:00.000Z")
	require.True(t, s.AppendLocal(ctx, mine))
	assert.False(t, s.ApplyIncoming(ctx, mine))
	assert.Equal(t, []string{"mine"}, ids(s.Messages()))
	assert.Empty(t, n.sent)
}

func TestSnapshotIsSuperset(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()

	s.ApplyIncoming(ctx, msg("b", "Juma", "2024-01-01T10:01:00.000Z"))
	s.AppendLocal(ctx, msg("local", "Amina", "2024-01-01T10:02:00.000Z"))

	snap := []protocol.Message{
		msg("a", "Juma", "2024-01-01T10:00:00.000Z"),
		msg("b", "Juma", "2024-01-01T10:01:00.000Z"),
		msg("c", "Wanjiru", "2024-01-01T10:03:00.000Z"),
	}
	assert.Equal(t, 2, s.ApplySnapshot(ctx, snap))

	got := ids(s.Messages())
	assert.Equal(t, []string{"b", "local", "a", "c"}, got, "arrival order, no re-sort")
	for _, m := range snap {
		assert.Contains(t, got, m.ID)
	}

	assert.Equal(t, 0, s.ApplySnapshot(ctx, snap))
}

func TestMessagesWithoutIDAreDropped(t *testing.T) {
	s, mem, _ := newStore(t)

	assert.False(t, s.ApplyIncoming(context.Background(), protocol.Message{Type: protocol.TypeText, Text: "x"}))
	assert.Zero(t, s.Len())
	assert.Zero(t, mem.Saves())
}

func TestUnknownTypeIsAcceptedAsText(t *testing.T) {
	s, _, _ := newStore(t)

	m := msg("odd", "Juma", "2024-01-01T10:00:00.000Z")
	m.Type = "unknown-xyz"
	require.True(t, s.ApplyIncoming(context.Background(), m))

	got := s.Messages()[0]
	assert.Equal(t, protocol.Type("unknown-xyz"), got.Type)
	assert.Equal(t, protocol.TypeText, got.Type.DisplayKind())
}

func TestEveryAcceptingMutationSavesOnce(t *testing.T) {
	s, mem, _ := newStore(t)
	ctx := context.Background()

	s.ApplyIncoming(ctx, msg("1", "Juma", "2024-01-01T10:00:00.000Z"))
	s.ApplyIncoming(ctx, msg("1", "Juma", "2024-01-01T10:00:00.000Z"))
	s.AppendLocal(ctx, msg("2", "Amina", "2024-01-01T10:01:00.000Z"))
	s.ApplySnapshot(ctx, []protocol.Message{
		msg("3", "Juma", "2024-01-01T10:02:00.000Z"),
		msg("4", "Juma", "2024-01-01T10:03:00.000Z"),
	})
	assert.Equal(t, 3, mem.Saves())

	persisted, err := mem.Load(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, s.Messages(), persisted)
}

func TestSaveFailureKeepsStoreWorking(t *testing.T) {
	s, mem, _ := newStore(t)
	mem.SaveErr = errors.New("disk full")

	assert.True(t, s.ApplyIncoming(context.Background(), msg("1", "Juma", "2024-01-01T10:00:00.000Z")))
	assert.Equal(t, 1, s.Len())
}

func TestLoadRunsOnce(t *testing.T) {
	mem := storage.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Save(ctx, "history", []protocol.Message{
		msg("old-1", "Juma", "2023-12-31T09:00:00.000Z"),
		msg("old-2", "Amina", "2023-12-31T09:05:00.000Z"),
	}))

	n := &recordingNotifier{}
	s := New(mem, Options{Key: "history", Self: "Amina", Notifier: n})
	require.NoError(t, s.Load(ctx))
	assert.ErrorIs(t, s.Load(ctx), ErrAlreadyLoaded)

	assert.Equal(t, []string{"old-1", "old-2"}, ids(s.Messages()))
	assert.Empty(t, n.sent, "persisted history does not notify")
	assert.Equal(t, 1, mem.Saves(), "loading is not a mutation")
}

func TestLoadMissingKeyIsEmpty(t *testing.T) {
	s := New(storage.NewMemory(), Options{})
	require.NoError(t, s.Load(context.Background()))
	assert.Zero(t, s.Len())
}

func TestLoadFailureLeavesStoreEmpty(t *testing.T) {
	mem := storage.NewMemory()
	mem.LoadErr = errors.New("corrupt")
	s := New(mem, Options{})

	err := s.Load(context.Background())
	require.Error(t, err)
	assert.Zero(t, s.Len())
	assert.True(t, s.ApplyIncoming(context.Background(), msg("1", "Juma", "2024-01-01T10:00:00.000Z")))
}

func TestNotificationsForOthersOnly(t *testing.T) {
	s, _, n := newStore(t)
	ctx := context.Background()

	s.ApplySnapshot(ctx, []protocol.Message{
		msg("1", "Juma", "2024-01-01T10:00:00.000Z"),
		msg("2", "Amina", "2024-01-01T10:01:00.000Z"),
	})
	s.ApplyIncoming(ctx, msg("3", "Wanjiru", "2024-01-01T10:02:00.000Z"))
	s.ApplyIncoming(ctx, msg("3", "Wanjiru", "2024-01-01T10:02:00.000Z"))

	assert.Equal(t, []notification{
		{"Juma", "text 1"},
		{"Wanjiru", "text 3"},
	}, n.sent)
}

func TestSubscribersSeeEveryChange(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()

	var lengths []int
	s.Subscribe(func(messages []protocol.Message) { lengths = append(lengths, len(messages)) })

	s.ApplyIncoming(ctx, msg("1", "Juma", "2024-01-01T10:00:00.000Z"))
	s.ApplyIncoming(ctx, msg("1", "Juma", "2024-01-01T10:00:00.000Z"))
	s.AppendLocal(ctx, msg("2", "Amina", "2024-01-01T10:01:00.000Z"))

	assert.Equal(t, []int{1, 2}, lengths)
}

func TestDateGroupingBoundary(t *testing.T) {
	messages := []protocol.Message{
		msg("1", "Juma", "2024-01-01T10:00"),
		msg("2", "Juma", "2024-01-01T23:59"),
		msg("3", "Juma", "2024-01-02T00:01"),
	}

	b := Boundaries(messages, time.UTC)
	assert.Equal(t, []bool{true, false, true}, b)

	groups := GroupByDay(messages, time.UTC)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"1", "2"}, ids(groups[0].Messages))
	assert.Equal(t, []string{"3"}, ids(groups[1].Messages))
	assert.Equal(t, "Tuesday, 2 January 2024", groups[1].Label())
}

func TestGroupingFollowsArrivalOrder(t *testing.T) {
	messages := []protocol.Message{
		msg("1", "Juma", "2024-01-02T09:00:00.000Z"),
		msg("2", "Juma", "2024-01-01T09:00:00.000Z"),
		msg("3", "Juma", "2024-01-02T10:00:00.000Z"),
	}
	assert.Equal(t, []bool{true, true, true}, Boundaries(messages, time.UTC))
}

func TestGroupingUsesLocation(t *testing.T) {
	nairobi := time.FixedZone("EAT", 3*60*60)
	messages := []protocol.Message{
		msg("1", "Juma", "2024-01-01T20:00:00.000Z"),
		msg("2", "Juma", "2024-01-01T22:00:00.000Z"),
	}

	assert.Equal(t, []bool{true, false}, Boundaries(messages, time.UTC))
	assert.Equal(t, []bool{true, true}, Boundaries(messages, nairobi))
}

func TestUnparseableTimestampsNeverOpenGroups(t *testing.T) {
	messages := []protocol.Message{
		msg("1", "Juma", "garbage"),
		msg("2", "Juma", "2024-01-01T10:00:00.000Z"),
		msg("3", "Juma", ""),
		msg("4", "Juma", "2024-01-01T11:00:00.000Z"),
	}

	assert.Equal(t, []bool{true, true, false, false}, Boundaries(messages, time.UTC))

	groups := GroupByDay(messages, time.UTC)
	require.Len(t, groups, 2)
	assert.Equal(t, "Unknown date", groups[0].Label())
	assert.Equal(t, []string{"2", "3", "4"}, ids(groups[1].Messages))
}

func TestStoreGroups(t *testing.T) {
	s, _, _ := newStore(t)
	s.ApplySnapshot(context.Background(), []protocol.Message{
		msg("1", "Juma", "2024-01-01T10:00:00.000Z"),
		msg("2", "Juma", "2024-01-02T10:00:00.000Z"),
	})
	assert.Len(t, s.Groups(), 2)
}
