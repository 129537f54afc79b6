// Package store owns the client mirror of one game session.
//
// All reads and writes go through a single goroutine fed by an inbox, so
// the sync loop, the action dispatcher and presentation readers never race on
// the state.
package store

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/turnsync/internal/engine"
	"github.com/DoyleJ11/turnsync/pkg/types"
)

var ErrClosed = errors.New("store closed")
var ErrInputInProgress = errors.New("player input already in progress")

type Msg interface{ isStoreMsg() }

// BeginUpdate marks a sync request as issued and replies with the identity
// to poll with.
type BeginUpdate struct {
	Reply chan engine.Identity
}

func (BeginUpdate) isStoreMsg() {}

type FailUpdate struct{}

func (FailUpdate) isStoreMsg() {}

// ApplySync merges a parsed response. It is dropped if Ctx is already done:
// a response for a cancelled request must never reach the state.
type ApplySync struct {
	Ctx      context.Context
	Snapshot types.Snapshot
}

func (ApplySync) isStoreMsg() {}

// BeginInput marks an action request as issued. With Guard set it is refused
// while another input is still outstanding.
type BeginInput struct {
	Guard bool
	Reply chan InputTicket
}

func (BeginInput) isStoreMsg() {}

type InputTicket struct {
	Identity engine.Identity
	Seq      uint64
	OK       bool
}

// FailInput clears the input flag, but only while Seq is still the latest
// input: a late failure of an older action must not release a newer one.
type FailInput struct {
	Seq uint64
}

func (FailInput) isStoreMsg() {}

type Mutate struct {
	Mutation engine.Mutation
	Reply    chan error
}

func (Mutate) isStoreMsg() {}

// Join subscribes Outbox to every new view. Outbox must be buffered: the
// store never blocks on it.
type Join struct {
	ClientID string
	Outbox   chan View // where this client wants to receive views
}

func (Join) isStoreMsg() {}

type Leave struct{ ClientID string }

func (Leave) isStoreMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isStoreMsg() {}

type Shutdown struct{}

func (Shutdown) isStoreMsg() {}

type View struct {
	Version    int          `json:"version"`
	NumClients int          `json:"numClients"`
	State      engine.State `json:"state"`
}

type Store struct {
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan View
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc

	// inputSeq numbers accepted inputs.
	inputSeq uint64
}

func New(parent context.Context, id engine.Identity, log *zap.Logger) *Store {
	ctx, cancel := context.WithCancel(parent)

	s := &Store{
		inbox:   make(chan Msg, 64),
		state:   engine.NewState(id),
		clients: make(map[string]chan View),
		log:     log.Named("store").With(zap.Int("game_id", id.GameID)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go s.loop()
	return s
}

func (s *Store) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case BeginUpdate:
				s.state.UpdateInProgress = true
				s.changed()
				msg.Reply <- s.state.Info

			case FailUpdate:
				s.state.UpdateInProgress = false
				s.changed()

			case ApplySync:
				if err := msg.Ctx.Err(); err != nil {
					s.log.Debug("dropping sync for cancelled request", zap.Error(err))
					break
				}
				s.state = engine.Merge(s.state, msg.Snapshot)
				s.changed()

			case BeginInput:
				if msg.Guard && s.state.PlayerInputInProgress {
					msg.Reply <- InputTicket{Identity: s.state.Info}
					break
				}
				s.inputSeq++
				s.state.PlayerInputInProgress = true
				s.changed()
				msg.Reply <- InputTicket{Identity: s.state.Info, Seq: s.inputSeq, OK: true}

			case FailInput:
				if msg.Seq != s.inputSeq {
					s.log.Debug("ignoring failure of superseded input", zap.Uint64("seq", msg.Seq), zap.Uint64("current", s.inputSeq))
					break
				}
				s.state.PlayerInputInProgress = false
				s.changed()

			case Mutate:
				next, err := engine.Apply(s.state, msg.Mutation)
				if err == nil {
					s.state = next
					s.changed()
				}
				msg.Reply <- err

			case Join:
				// Register client + send current view immediately. An outbox
				// with no room for it is treated like a slow client.
				s.clients[msg.ClientID] = msg.Outbox
				select {
				case msg.Outbox <- s.view():
				default:
					s.log.Debug("refusing subscriber without buffer room", zap.String("client_id", msg.ClientID))
					close(msg.Outbox)
					delete(s.clients, msg.ClientID)
				}

			case Leave:
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}

			case GetState:
				msg.Reply <- s.view()

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Store) changed() {
	s.version++
	s.broadcast(s.view())
}

func (s *Store) view() View {
	return View{Version: s.version, NumClients: len(s.clients), State: s.state}
}

func (s *Store) shutdown() {
	for id, ch := range s.clients {
		close(ch) // Tell client no more views
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Store) broadcast(v View) {
	for id, ch := range s.clients {
		select {
		case ch <- v:
			//ok
		default:
			// Client is slow/full - drop them.
			s.log.Debug("dropping slow subscriber", zap.String("client_id", id))
			close(ch)
			delete(s.clients, id)
		}
	}
}

// Done is closed once the store stops accepting messages.
func (s *Store) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Store) Close() { s.cancel() }

func (s *Store) send(ctx context.Context, m Msg) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.inbox <- m:
		return nil
	}
}

func await[T any](ctx context.Context, s *Store, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-s.ctx.Done():
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (s *Store) BeginUpdate(ctx context.Context) (engine.Identity, error) {
	reply := make(chan engine.Identity, 1)
	if err := s.send(ctx, BeginUpdate{Reply: reply}); err != nil {
		return engine.Identity{}, err
	}
	return await(ctx, s, reply)
}

func (s *Store) FailUpdate(ctx context.Context) error {
	return s.send(ctx, FailUpdate{})
}

func (s *Store) ApplySync(ctx context.Context, snap types.Snapshot) error {
	return s.send(ctx, ApplySync{Ctx: ctx, Snapshot: snap})
}

// BeginInput returns the identity to submit with and the input's sequence
// number, which FailInput takes back.
func (s *Store) BeginInput(ctx context.Context, guard bool) (engine.Identity, uint64, error) {
	reply := make(chan InputTicket, 1)
	if err := s.send(ctx, BeginInput{Guard: guard, Reply: reply}); err != nil {
		return engine.Identity{}, 0, err
	}
	t, err := await(ctx, s, reply)
	if err != nil {
		return engine.Identity{}, 0, err
	}
	if !t.OK {
		return t.Identity, 0, ErrInputInProgress
	}
	return t.Identity, t.Seq, nil
}

func (s *Store) FailInput(ctx context.Context, seq uint64) error {
	return s.send(ctx, FailInput{Seq: seq})
}

func (s *Store) Mutate(ctx context.Context, m engine.Mutation) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, Mutate{Mutation: m, Reply: reply}); err != nil {
		return err
	}
	err, waitErr := await(ctx, s, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

func (s *Store) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	return await(ctx, s, reply)
}

func (s *Store) Subscribe(ctx context.Context, clientID string, outbox chan View) error {
	return s.send(ctx, Join{ClientID: clientID, Outbox: outbox})
}

func (s *Store) Unsubscribe(ctx context.Context, clientID string) error {
	return s.send(ctx, Leave{ClientID: clientID})
}
