// Package session runs everything one game needs: the store, the sync loop
// and the action dispatcher, all tied to one cancellable context.
package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/turnsync/internal/dispatch"
	"github.com/DoyleJ11/turnsync/internal/engine"
	"github.com/DoyleJ11/turnsync/internal/poller"
	"github.com/DoyleJ11/turnsync/internal/store"
)

// API is what a session needs from the game server.
type API interface {
	poller.Fetcher
	dispatch.Submitter
	PopupContent(ctx context.Context, id engine.Identity, popupType string, index int) ([]byte, error)
	SubmitChat(ctx context.Context, id engine.Identity, text string) error
}

type Options struct {
	Interval   time.Duration
	InputGuard bool
}

type Session struct {
	Store      *store.Store
	Poller     *poller.Poller
	Dispatcher *dispatch.Dispatcher

	id     engine.Identity
	api    API
	log    *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// Start establishes the game identity and begins polling immediately.
func Start(parent context.Context, id engine.Identity, api API, opts Options, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	log = log.Named("session").With(zap.Int("game_id", id.GameID), zap.Int("player_id", id.PlayerID))

	st := store.New(ctx, id, log)
	p := poller.New(api, st, opts.Interval, log)
	d := dispatch.New(ctx, api, st, log,
		dispatch.WithGuard(opts.InputGuard),
		dispatch.WithOnAccepted(p.Trigger),
	)

	s := &Session{
		Store:      st,
		Poller:     p,
		Dispatcher: d,
		id:         engine.NewState(id).Info,
		api:        api,
		log:        log,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("sync loop stopped", zap.Error(err))
		}
	}()

	log.Info("session started")
	return s
}

func (s *Session) Identity() engine.Identity { return s.id }

// End cancels everything in flight and waits for it, stops the poll timer
// and closes the store. Responses still on the wire are discarded.
func (s *Session) End() {
	s.cancel()
	<-s.done
	s.Dispatcher.Wait()
	s.Store.Close()
	s.log.Info("session ended")
}

// Done is closed once the sync loop has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) SubmitChat(ctx context.Context, text string) error {
	return s.api.SubmitChat(ctx, s.id, text)
}

func (s *Session) PopupContent(ctx context.Context, popupType string, index int) ([]byte, error) {
	return s.api.PopupContent(ctx, s.id, popupType, index)
}
