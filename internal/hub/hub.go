// Package hub keeps the running sessions, one per game id.
package hub

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/DoyleJ11/turnsync/internal/engine"
	"github.com/DoyleJ11/turnsync/internal/session"
)

var ErrHubClosed = errors.New("hub closed")

// ErrIdentityMismatch is returned when a game already runs under a
// different player or auth key.
var ErrIdentityMismatch = errors.New("game already running with another identity")

// Repo persists session identities so they can be resumed after a restart.
type Repo interface {
	SaveSession(ctx context.Context, id engine.Identity) error
	DeleteSession(ctx context.Context, gameID int) error
	ListSessions(ctx context.Context) ([]engine.Identity, error)
}

type HubMsg interface{ isHubMsg() }

// StartSession returns the running session for the game, starting one if
// there is none. An existing session keeps its original identity and is only
// handed out to the same player and auth key.
type StartSession struct {
	Identity engine.Identity
	Reply    chan StartResult
}

type StartResult struct {
	Session *session.Session
	Created bool
	Err     error
}

type GetSession struct {
	GameID int
	Reply  chan *session.Session
}

type EndSession struct {
	GameID int
	Reply  chan bool
}

type ListSessions struct {
	Reply chan []engine.Identity
}

type ShutdownHub struct{}

func (StartSession) isHubMsg() {}
func (GetSession) isHubMsg()   {}
func (EndSession) isHubMsg()   {}
func (ListSessions) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[int]*session.Session
	api      session.API
	opts     session.Options
	repo     Repo
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewHub starts the registry. repo may be nil.
func NewHub(parent context.Context, api session.API, opts session.Options, repo Repo, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[int]*session.Session),
		api:      api,
		opts:     opts,
		repo:     repo,
		log:      log.Named("hub"),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

// Done is closed once every session has ended and the hub has stopped.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case StartSession:
				if s := h.sessions[msg.Identity.GameID]; s != nil {
					cur := s.Identity()
					if cur.PlayerID != msg.Identity.PlayerID || cur.AuthKey != msg.Identity.AuthKey {
						msg.Reply <- StartResult{Err: ErrIdentityMismatch}
						break
					}
					msg.Reply <- StartResult{Session: s}
					break
				}
				s := session.Start(h.ctx, msg.Identity, h.api, h.opts, h.log)
				h.sessions[msg.Identity.GameID] = s
				if h.repo != nil {
					if err := h.repo.SaveSession(h.ctx, s.Identity()); err != nil {
						h.log.Warn("persist session", zap.Int("game_id", msg.Identity.GameID), zap.Error(err))
					}
				}
				msg.Reply <- StartResult{Session: s, Created: true}

			case GetSession:
				msg.Reply <- h.sessions[msg.GameID] // May be nil

			case EndSession:
				s := h.sessions[msg.GameID]
				if s == nil {
					msg.Reply <- false
					break
				}
				s.End()
				delete(h.sessions, msg.GameID)
				if h.repo != nil {
					if err := h.repo.DeleteSession(h.ctx, msg.GameID); err != nil {
						h.log.Warn("forget session", zap.Int("game_id", msg.GameID), zap.Error(err))
					}
				}
				msg.Reply <- true

			case ListSessions:
				ids := make([]engine.Identity, 0, len(h.sessions))
				for _, s := range h.sessions {
					ids = append(ids, s.Identity())
				}
				sort.Slice(ids, func(i, j int) bool { return ids[i].GameID < ids[j].GameID })
				msg.Reply <- ids

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

// shutdown ends every session but keeps them persisted for the next start.
func (h *Hub) shutdown() {
	for id, s := range h.sessions {
		s.End()
		delete(h.sessions, id)
	}
	h.cancel()
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	if h.ctx.Err() != nil {
		return ErrHubClosed
	}
	select {
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	case h.inbox <- m:
		return nil
	}
}

func await[T any](ctx context.Context, h *Hub, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-h.ctx.Done():
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Start reports whether the session was created by this call.
func (h *Hub) Start(ctx context.Context, id engine.Identity) (*session.Session, bool, error) {
	reply := make(chan StartResult, 1)
	if err := h.send(ctx, StartSession{Identity: id, Reply: reply}); err != nil {
		return nil, false, err
	}
	res, err := await(ctx, h, reply)
	if err != nil {
		return nil, false, err
	}
	if res.Err != nil {
		return nil, false, res.Err
	}
	return res.Session, res.Created, nil
}

// Get returns nil when no session runs for gameID.
func (h *Hub) Get(ctx context.Context, gameID int) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	if err := h.send(ctx, GetSession{GameID: gameID, Reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, h, reply)
}

func (h *Hub) End(ctx context.Context, gameID int) (bool, error) {
	reply := make(chan bool, 1)
	if err := h.send(ctx, EndSession{GameID: gameID, Reply: reply}); err != nil {
		return false, err
	}
	return await(ctx, h, reply)
}

func (h *Hub) List(ctx context.Context) ([]engine.Identity, error) {
	reply := make(chan []engine.Identity, 1)
	if err := h.send(ctx, ListSessions{Reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, h, reply)
}

// Resume starts every session the repo remembers.
func (h *Hub) Resume(ctx context.Context) (int, error) {
	if h.repo == nil {
		return 0, nil
	}
	ids, err := h.repo.ListSessions(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, _, err := h.Start(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// Shutdown ends all sessions and waits for the hub to stop. It also waits
// when the hub is already stopping because its parent context is done.
func (h *Hub) Shutdown(ctx context.Context) error {
	if err := h.send(ctx, ShutdownHub{}); err != nil && !errors.Is(err, ErrHubClosed) {
		return err
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
