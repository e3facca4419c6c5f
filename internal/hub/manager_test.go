package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NZmikeyG/messaging-app/internal/event"
	"github.com/NZmikeyG/messaging-app/internal/model"
)

type fakeVerifier struct {
	users map[string]string // token -> user id
}

func (f *fakeVerifier) Verify(token string) (string, error) {
	if id, ok := f.users[token]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

type fakeDirectory struct {
	channels map[string]bool
	members  map[string]map[string]bool
	users    map[string]bool
}

func (f *fakeDirectory) ChannelExists(_ context.Context, channelID string) (bool, error) {
	return f.channels[channelID], nil
}

func (f *fakeDirectory) IsChannelMember(_ context.Context, channelID, userID string) (bool, error) {
	return f.members[channelID][userID], nil
}

func (f *fakeDirectory) UserExists(_ context.Context, userID string) (bool, error) {
	return f.users[userID], nil
}

type fakeMessages struct {
	mu     sync.Mutex
	stored []model.Message
	err    error
}

func (f *fakeMessages) Store(_ context.Context, roomKey, senderID, content string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	msg := model.Message{
		MessageID: uuid.New().String(),
		RoomID:    roomKey,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	f.stored = append(f.stored, msg)
	return &msg, nil
}

func (f *fakeMessages) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

type fakeReceipts struct {
	mu      sync.Mutex
	set     map[string]bool
	creates int
}

func newFakeReceipts() *fakeReceipts {
	return &fakeReceipts{set: make(map[string]bool)}
}

func (f *fakeReceipts) Exists(_ context.Context, messageID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set[messageID+"|"+userID], nil
}

func (f *fakeReceipts) Create(_ context.Context, messageID, userID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set[messageID+"|"+userID] = true
	f.creates++
	return nil
}

type fakePresenceStore struct {
	mu    sync.Mutex
	saves []model.Presence
}

func (f *fakePresenceStore) Save(_ context.Context, rec model.Presence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, rec)
	return nil
}

func (f *fakePresenceStore) last() (model.Presence, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saves) == 0 {
		return model.Presence{}, false
	}
	return f.saves[len(f.saves)-1], true
}

type hubFixture struct {
	hub       *Hub
	verifier  *fakeVerifier
	directory *fakeDirectory
	messages  *fakeMessages
	receipts  *fakeReceipts
	presence  *fakePresenceStore
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()

	fx := &hubFixture{
		verifier: &fakeVerifier{users: map[string]string{}},
		directory: &fakeDirectory{
			channels: map[string]bool{},
			members:  map[string]map[string]bool{},
			users:    map[string]bool{},
		},
		messages: &fakeMessages{},
		receipts: newFakeReceipts(),
		presence: &fakePresenceStore{},
	}

	fx.hub = NewHub(Deps{
		Verifier:  fx.verifier,
		Directory: fx.directory,
		Messages:  fx.messages,
		Receipts:  fx.receipts,
		Presence:  fx.presence,
	}, Options{TypingTTL: time.Minute}, zap.NewNop())

	t.Cleanup(fx.hub.Stop)
	return fx
}

// join registers a client in a room without a real socket; frames are
// inspected straight off the egress buffer.
func (fx *hubFixture) join(t *testing.T, userID, roomKey string) *Client {
	t.Helper()

	c := newClient(userID, roomKey, nil, fx.hub)
	reg, err := fx.hub.registry.Register(roomKey, c)
	require.NoError(t, err)
	c.reg = reg
	fx.hub.presence.MarkOnline(userID)
	return c
}

func receiveFrame(t *testing.T, c *Client) event.Frame {
	t.Helper()

	select {
	case f := <-c.egress:
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return event.Frame{}
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()

	select {
	case f := <-c.egress:
		t.Fatalf("unexpected frame %q", f.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMessagePersistThenBroadcast(t *testing.T) {
	fx := newHubFixture(t)
	room := ChannelRoomKey("room-1")

	sender := fx.join(t, "user-a", room)
	other := fx.join(t, "user-b", room)

	fx.hub.typing.StartTyping(room, "user-a")
	fx.hub.handleFrame(sender, event.Frame{Type: event.TypeMessage, Content: "hi"})

	require.Equal(t, 1, fx.messages.count())
	assert.Equal(t, "hi", fx.messages.stored[0].Content)

	// Both connections, including the sender's own, get the message
	// and then the implicit stopped_typing.
	for _, c := range []*Client{sender, other} {
		msg := receiveFrame(t, c)
		require.Equal(t, event.TypeMessage, msg.Type)
		require.NotNil(t, msg.Message)
		assert.Equal(t, "hi", msg.Message.Content)
		assert.Equal(t, "user-a", msg.Message.SenderID)
		assert.False(t, msg.Timestamp.IsZero())

		stopped := receiveFrame(t, c)
		assert.Equal(t, event.TypeStoppedTyping, stopped.Type)
		assert.Equal(t, "user-a", stopped.UserID)
	}

	assert.Empty(t, fx.hub.typing.ListTyping(room))
}

func TestEmptyMessageRejectedWithoutSideEffects(t *testing.T) {
	fx := newHubFixture(t)
	room := ChannelRoomKey("room-1")

	sender := fx.join(t, "user-a", room)
	other := fx.join(t, "user-b", room)

	fx.hub.handleFrame(sender, event.Frame{Type: event.TypeMessage, Content: "   "})

	assert.Equal(t, 0, fx.messages.count())

	errFrame := receiveFrame(t, sender)
	require.Equal(t, event.TypeError, errFrame.Type)
	require.NotNil(t, errFrame.Error)
	assert.Equal(t, event.CodeEmptyMessage, errFrame.Error.Code)

	assertNoFrame(t, other)
	assert.False(t, sender.isClosed())
}

func TestStoreFailureSuppressesBroadcast(t *testing.T) {
	fx := newHubFixture(t)
	room := ChannelRoomKey("room-1")

	sender := fx.join(t, "user-a", room)
	other := fx.join(t, "user-b", room)

	fx.messages.err = errors.New("datastore down")
	fx.hub.handleFrame(sender, event.Frame{Type: event.TypeMessage, Content: "hi"})

	errFrame := receiveFrame(t, sender)
	require.Equal(t, event.TypeError, errFrame.Type)
	require.NotNil(t, errFrame.Error)
	assert.Equal(t, event.CodeStoreFailed, errFrame.Error.Code)

	// Nobody else saw a message the sender was told failed.
	assertNoFrame(t, other)
	assert.False(t, sender.isClosed())
}

func TestTypingFramesUpdateTrackerAndFanOut(t *testing.T) {
	fx := newHubFixture(t)
	room := ChannelRoomKey("room-1")

	sender := fx.join(t, "user-a", room)
	other := fx.join(t, "user-b", room)

	fx.hub.handleFrame(sender, event.Frame{Type: event.TypeTyping})

	ind := receiveFrame(t, other)
	require.Equal(t, event.TypeTypingIndicator, ind.Type)
	assert.Equal(t, []string{"user-a"}, ind.Typing)
	assert.Equal(t, []string{"user-a"}, fx.hub.typing.ListTyping(room))

	receiveFrame(t, sender) // sender sees the indicator too

	fx.hub.handleFrame(sender, event.Frame{Type: event.TypeStoppedTyping})

	stopped := receiveFrame(t, other)
	assert.Equal(t, event.TypeStoppedTyping, stopped.Type)
	assert.Equal(t, "user-a", stopped.UserID)
	assert.Empty(t, fx.hub.typing.ListTyping(room))
}

func TestPresenceFrameBroadcastsAndPersists(t *testing.T) {
	fx := newHubFixture(t)
	room := ChannelRoomKey("room-1")

	sender := fx.join(t, "user-a", room)
	other := fx.join(t, "user-b", room)

	fx.hub.handleFrame(sender, event.Frame{Type: event.TypePresence, Status: model.StatusDND})

	upd := receiveFrame(t, other)
	require.Equal(t, event.TypePresenceUpdate, upd.Type)
	assert.Equal(t, "user-a", upd.UserID)
	assert.Equal(t, model.StatusDND, upd.Status)

	rec, ok := fx.hub.presence.Get("user-a")
	require.True(t, ok)
	assert.Equal(t, model.StatusDND, rec.Status)

	require.Eventually(t, func() bool {
		last, ok := fx.presence.last()
		return ok && last.Status == model.StatusDND
	}, time.Second, 10*time.Millisecond)
}

func TestUnknownPresenceStatusIgnored(t *testing.T) {
	fx := newHubFixture(t)
	room := ChannelRoomKey("room-1")

	sender := fx.join(t, "user-a", room)
	other := fx.join(t, "user-b", room)

	fx.hub.handleFrame(sender, event.Frame{Type: event.TypePresence, Status: "invisible"})

	assertNoFrame(t, other)
	assertNoFrame(t, sender)
}

func TestReadReceiptIdempotent(t *testing.T) {
	fx := newHubFixture(t)
	room := ChannelRoomKey("room-1")

	sender := fx.join(t, "user-a", room)
	other := fx.join(t, "user-b", room)

	msgID := uuid.New().String()
	fx.hub.handleFrame(sender, event.Frame{Type: event.TypeReadReceipt, MessageID: msgID})

	read := receiveFrame(t, other)
	require.Equal(t, event.TypeMessageRead, read.Type)
	assert.Equal(t, msgID, read.MessageID)
	assert.Equal(t, "user-a", read.UserID)
	receiveFrame(t, sender)

	// Marking the same message read again does nothing.
	fx.hub.handleFrame(sender, event.Frame{Type: event.TypeReadReceipt, MessageID: msgID})

	assertNoFrame(t, other)
	assert.Equal(t, 1, fx.receipts.creates)

	exists, err := fx.receipts.Exists(context.Background(), msgID, "user-a")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUnknownFrameTypeSilentlyIgnored(t *testing.T) {
	fx := newHubFixture(t)
	room := ChannelRoomKey("room-1")

	sender := fx.join(t, "user-a", room)
	other := fx.join(t, "user-b", room)

	fx.hub.handleFrame(sender, event.Frame{Type: "reaction", Content: "🎉"})

	assertNoFrame(t, sender)
	assertNoFrame(t, other)
	assert.False(t, sender.isClosed())
}

func TestDetachRunsCleanupExactlyOnce(t *testing.T) {
	fx := newHubFixture(t)
	room := ChannelRoomKey("room-1")

	leaver := fx.join(t, "user-a", room)
	other := fx.join(t, "user-b", room)

	// Transport-error path and explicit-close path racing into detach
	// must still produce a single cleanup.
	fx.hub.detach(leaver)
	fx.hub.detach(leaver)

	left := receiveFrame(t, other)
	assert.Equal(t, event.TypeUserLeft, left.Type)
	assert.Equal(t, "user-a", left.UserID)
	assertNoFrame(t, other)

	rec, ok := fx.hub.presence.Get("user-a")
	require.True(t, ok)
	assert.False(t, rec.Online)

	live := fx.hub.registry.Clients(room)
	require.Len(t, live, 1)
	assert.Equal(t, other.ID, live[0].ID)
}
