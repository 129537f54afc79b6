// Package poller keeps a session's store current by repeatedly asking the
// server for the next turn.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/DoyleJ11/turnsync/internal/engine"
	"github.com/DoyleJ11/turnsync/internal/wire"
	"github.com/DoyleJ11/turnsync/pkg/types"
)

const DefaultInterval = 2000 * time.Millisecond

const pollKey = "next-turn"

type Fetcher interface {
	NextTurn(ctx context.Context, id engine.Identity) ([]byte, error)
}

// Store is the part of store.Store the loop writes to.
type Store interface {
	BeginUpdate(ctx context.Context) (engine.Identity, error)
	FailUpdate(ctx context.Context) error
	ApplySync(ctx context.Context, snap types.Snapshot) error
}

type Poller struct {
	api      Fetcher
	store    Store
	log      *zap.Logger
	interval time.Duration
	trigger  chan struct{}
	group    singleflight.Group

	// inflight counts polls started by Run.
	inflight sync.WaitGroup
}

func New(api Fetcher, st Store, interval time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		api:      api,
		store:    st,
		log:      log.Named("poller"),
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Run polls once immediately, then on every tick and every Trigger, until
// ctx is done. ctx is the session context: cancelling it aborts the request
// in flight and keeps its response out of the store. Run returns only after
// the polls it started have finished.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.inflight.Wait()

	p.start(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.start(ctx)
		case <-p.trigger:
			p.start(ctx)
		}
	}
}

// Trigger asks for a poll as soon as possible. Triggers never queue up: if
// one is pending or a poll is running, this is a no-op.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// start joins the outstanding poll if there is one, otherwise begins a new one.
func (p *Poller) start(ctx context.Context) {
	done := p.group.DoChan(pollKey, func() (any, error) {
		return nil, p.poll(ctx)
	})
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		<-done
	}()
}

// Poll runs one poll to completion, sharing it with any poll already in
// flight.
func (p *Poller) Poll(ctx context.Context) error {
	_, err, _ := p.group.Do(pollKey, func() (any, error) {
		return nil, p.poll(ctx)
	})
	return err
}

func (p *Poller) poll(ctx context.Context) error {
	id, err := p.store.BeginUpdate(ctx)
	if err != nil {
		return err
	}
	log := p.log.With(zap.Int("game_id", id.GameID), zap.Int64("last_update", id.LastUpdate))

	for {
		res, err := p.fetch(ctx, id)
		if errors.Is(err, wire.ErrNoUpdate) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				log.Debug("poll cancelled", zap.Error(err))
				return ctx.Err()
			}
			log.Warn("poll failed", zap.Error(err))
			if ferr := p.store.FailUpdate(ctx); ferr != nil {
				log.Debug("clear update flag", zap.Error(ferr))
			}
			return err
		}

		if res.Prefix != "" {
			log.Debug("discarded response prefix", zap.String("prefix", res.Prefix))
		}
		return p.store.ApplySync(ctx, res.Snapshot)
	}
}

func (p *Poller) fetch(ctx context.Context, id engine.Identity) (wire.Result, error) {
	if err := ctx.Err(); err != nil {
		return wire.Result{}, err
	}
	body, err := p.api.NextTurn(ctx, id)
	if err != nil {
		return wire.Result{}, err
	}
	return wire.Parse(body)
}
