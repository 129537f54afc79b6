package ws

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/turnsync/internal/engine"
	"github.com/DoyleJ11/turnsync/internal/session"
	"github.com/DoyleJ11/turnsync/internal/types"
	game "github.com/DoyleJ11/turnsync/pkg/types"
)

// quietAPI answers the first poll with an empty snapshot and parks every
// later poll until the session ends.
type quietAPI struct {
	polls  atomic.Int32
	mu     sync.Mutex
	inputs []url.Values
	chats  []string
}

func (q *quietAPI) NextTurn(ctx context.Context, id engine.Identity) ([]byte, error) {
	if q.polls.Add(1) == 1 {
		return []byte(`{}`), nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (q *quietAPI) ProcessInput(ctx context.Context, id engine.Identity, params url.Values, extra string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inputs = append(q.inputs, params)
	return nil
}

func (q *quietAPI) PopupContent(ctx context.Context, id engine.Identity, popupType string, index int) ([]byte, error) {
	return []byte(`{}`), nil
}

func (q *quietAPI) SubmitChat(ctx context.Context, id engine.Identity, text string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.chats = append(q.chats, text)
	return nil
}

func startSession(t *testing.T, api *quietAPI) *session.Session {
	t.Helper()
	s := session.Start(context.Background(), engine.Identity{GameID: 9, PlayerID: 1, AuthKey: "k"}, api,
		session.Options{Interval: time.Hour}, zap.NewNop())
	t.Cleanup(s.End)
	return s
}

func TestExecute_RejectsBadMessages(t *testing.T) {
	s := startSession(t, &quietAPI{})
	ctx := context.Background()

	tests := []struct {
		name string
		msg  types.ClientMessage
		want error
	}{
		{"unknown type", types.ClientMessage{Type: "Teleport"}, ErrUnknownType},
		{"play card without card", types.ClientMessage{Type: "PlayCard"}, ErrBadMessage},
		{"button without button", types.ClientMessage{Type: "SubmitButton"}, ErrBadMessage},
		{"empty chat", types.ClientMessage{Type: TypeSubmitChat}, ErrBadMessage},
		{"popup without card", types.ClientMessage{Type: "SetPopUp"}, ErrBadMessage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, Execute(ctx, s, tc.msg), tc.want)
		})
	}
}

func TestExecute_LocalMutation(t *testing.T) {
	s := startSession(t, &quietAPI{})
	ctx := context.Background()

	require.NoError(t, Execute(ctx, s, types.ClientMessage{Type: "OpenOptionsMenu"}))
	v, err := s.Store.View(ctx)
	require.NoError(t, err)
	assert.True(t, v.State.OptionsMenu.Active)

	x, y := 3, 4
	require.NoError(t, Execute(ctx, s, types.ClientMessage{Type: "SetPopUp", Card: &game.Card{CardNumber: "WTR001"}, X: &x, Y: &y}))
	v, err = s.Store.View(ctx)
	require.NoError(t, err)
	require.NotNil(t, v.State.Popup.Card)
	assert.Equal(t, "WTR001", v.State.Popup.Card.CardNumber)
}

func TestExecute_ActionsAndChatReachServer(t *testing.T) {
	api := &quietAPI{}
	s := startSession(t, api)
	ctx := context.Background()

	require.NoError(t, Execute(ctx, s, types.ClientMessage{Type: "SubmitButton", Button: &game.Button{Mode: 99, ButtonInput: "PASS"}}))
	require.NoError(t, Execute(ctx, s, types.ClientMessage{Type: TypeSubmitChat, Text: "gg"}))
	s.Dispatcher.Wait()

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.inputs, 1)
	assert.Equal(t, "99", api.inputs[0].Get("mode"))
	assert.Equal(t, "PASS", api.inputs[0].Get("buttonInput"))
	assert.Equal(t, []string{"gg"}, api.chats)
}
