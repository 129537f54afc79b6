package dispatch

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/turnsync/internal/engine"
	"github.com/DoyleJ11/turnsync/internal/store"
	"github.com/DoyleJ11/turnsync/pkg/types"
)

type call struct {
	id     engine.Identity
	params url.Values
	extra  string
}

type fakeSubmitter struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeSubmitter) ProcessInput(_ context.Context, id engine.Identity, params url.Values, extra string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{id: id, params: params, extra: extra})
	return f.err
}

// gatedSubmitter holds each request until its button input is released
// with the result to return.
type gatedSubmitter struct {
	mu    sync.Mutex
	gates map[string]chan error
	calls int
}

func newGatedSubmitter(inputs ...string) *gatedSubmitter {
	g := &gatedSubmitter{gates: make(map[string]chan error)}
	for _, in := range inputs {
		g.gates[in] = make(chan error, 1)
	}
	return g
}

func (g *gatedSubmitter) ProcessInput(ctx context.Context, _ engine.Identity, params url.Values, _ string) error {
	g.mu.Lock()
	g.calls++
	gate := g.gates[params.Get("buttonInput")]
	g.mu.Unlock()
	select {
	case err := <-gate:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSubmitter) only(t *testing.T) call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.calls, 1)
	return f.calls[0]
}

func setup(t *testing.T, sub Submitter, opts ...Option) (*Dispatcher, *store.Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := zaptest.NewLogger(t)
	st := store.New(ctx, engine.Identity{GameID: 50, PlayerID: 1, AuthKey: "key"}, log)
	return New(ctx, sub, st, log, opts...), st
}

func seedHand(t *testing.T, st *store.Store) {
	t.Helper()
	hand := []types.Card{
		{CardNumber: "WTR001", Action: 27, ActionDataOverride: "0"},
		{CardNumber: "WTR001", Action: 27, ActionDataOverride: "1"},
	}
	require.NoError(t, st.ApplySync(context.Background(), types.Snapshot{
		PlayerOne: types.Some(types.PlayerPatch{Hand: types.Some(hand)}),
	}))
	x := 1
	require.NoError(t, st.Mutate(context.Background(), engine.Mutation{Type: engine.MutSetPopUp, Card: &hand[0], X: &x}))
}

func view(t *testing.T, st *store.Store) engine.State {
	t.Helper()
	v, err := st.View(context.Background())
	require.NoError(t, err)
	return v.State
}

func TestPlayCard_OptimisticRemovalAndParams(t *testing.T) {
	sub := &fakeSubmitter{}
	var accepted atomic.Int32
	d, st := setup(t, sub, WithOnAccepted(func() { accepted.Add(1) }))
	seedHand(t, st)

	require.NoError(t, d.PlayCard(types.Card{CardNumber: "WTR001", Action: 27, ActionDataOverride: "1"}, 1))
	d.Wait()

	s := view(t, st)
	require.Len(t, s.PlayerOne.Hand, 1)
	assert.Equal(t, "0", s.PlayerOne.Hand[0].ActionDataOverride)
	assert.False(t, s.Popup.On)
	assert.True(t, s.PlayerInputInProgress, "flag stays set until the next sync")

	c := sub.only(t)
	assert.Equal(t, "27", c.params.Get("mode"))
	assert.Equal(t, "1", c.params.Get("cardID"))
	assert.Equal(t, 50, c.id.GameID)
	assert.Equal(t, int32(1), accepted.Load())

	// The next sync clears the flag whichever action set it.
	require.NoError(t, st.ApplySync(context.Background(), types.Snapshot{}))
	assert.False(t, view(t, st).PlayerInputInProgress)
}

func TestPlayCard_FallsBackToIndex(t *testing.T) {
	sub := &fakeSubmitter{}
	d, st := setup(t, sub)

	hand := []types.Card{{CardNumber: "ARC000"}, {CardNumber: "ARC001"}, {CardNumber: "ARC002"}}
	require.NoError(t, st.ApplySync(context.Background(), types.Snapshot{
		PlayerOne: types.Some(types.PlayerPatch{Hand: types.Some(hand)}),
	}))

	require.NoError(t, d.PlayCard(types.Card{CardNumber: "ARC002", Action: 27}, 2))
	d.Wait()
	assert.Equal(t, "2", sub.only(t).params.Get("cardID"))

	// Only the played position leaves the hand.
	left := view(t, st).PlayerOne.Hand
	require.Len(t, left, 2)
	assert.Equal(t, "ARC000", left[0].CardNumber)
	assert.Equal(t, "ARC001", left[1].CardNumber)
}

func TestSubmit_FailureClearsInputFlag(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("network down")}
	var accepted atomic.Int32
	d, st := setup(t, sub, WithOnAccepted(func() { accepted.Add(1) }))

	require.NoError(t, d.SubmitButton(types.Button{Mode: 99, ButtonInput: "PASS"}))
	d.Wait()

	assert.False(t, view(t, st).PlayerInputInProgress)
	assert.Equal(t, int32(0), accepted.Load())
	c := sub.only(t)
	assert.Equal(t, "99", c.params.Get("mode"))
	assert.Equal(t, "PASS", c.params.Get("buttonInput"))
}

func TestSubmitMultiButton_ExtraVerbatim(t *testing.T) {
	sub := &fakeSubmitter{}
	d, _ := setup(t, sub)

	require.NoError(t, d.SubmitMultiButton(19, "&chkCount=2&chk0=0&chk1=3"))
	d.Wait()

	c := sub.only(t)
	assert.Equal(t, "19", c.params.Get("mode"))
	assert.Equal(t, "&chkCount=2&chk0=0&chk1=3", c.extra)
	assert.Len(t, c.params, 1)
}

func TestGuard_RefusesSecondActionUntilSync(t *testing.T) {
	sub := &fakeSubmitter{}
	d, st := setup(t, sub, WithGuard(true))

	require.NoError(t, d.SubmitButton(types.Button{Mode: 1, ButtonInput: "A"}))
	d.Wait()
	require.ErrorIs(t, d.SubmitButton(types.Button{Mode: 1, ButtonInput: "B"}), store.ErrInputInProgress)
	d.Wait()
	assert.Len(t, sub.calls, 1)

	require.NoError(t, st.ApplySync(context.Background(), types.Snapshot{}))
	require.NoError(t, d.SubmitButton(types.Button{Mode: 1, ButtonInput: "C"}))
	d.Wait()
	assert.Len(t, sub.calls, 2)
}

func TestNoGuard_AllowsOverlappingActions(t *testing.T) {
	sub := &fakeSubmitter{}
	d, _ := setup(t, sub)

	require.NoError(t, d.SubmitButton(types.Button{Mode: 1, ButtonInput: "A"}))
	require.NoError(t, d.SubmitButton(types.Button{Mode: 1, ButtonInput: "B"}))
	d.Wait()
	assert.Len(t, sub.calls, 2)
}

func TestGuard_LateFailureOfOlderActionKeepsNewerOne(t *testing.T) {
	sub := newGatedSubmitter("A", "B")
	d, st := setup(t, sub, WithGuard(true))
	ctx := context.Background()

	require.NoError(t, d.SubmitButton(types.Button{Mode: 1, ButtonInput: "A"}))
	require.NoError(t, st.ApplySync(ctx, types.Snapshot{}))
	require.NoError(t, d.SubmitButton(types.Button{Mode: 1, ButtonInput: "B"}))

	// A fails only after B is on the wire; B goes through.
	sub.gates["A"] <- errors.New("timeout")
	sub.gates["B"] <- nil
	d.Wait()

	assert.True(t, view(t, st).PlayerInputInProgress, "B is still waiting for its sync")
	require.ErrorIs(t, d.SubmitButton(types.Button{Mode: 1, ButtonInput: "C"}), store.ErrInputInProgress)
	d.Wait()

	sub.mu.Lock()
	defer sub.mu.Unlock()
	assert.Equal(t, 2, sub.calls)
}
