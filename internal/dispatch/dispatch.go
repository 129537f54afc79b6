// Package dispatch submits player actions. Requests are fire-and-forget:
// their responses carry no state, and the sync loop is what eventually
// brings the authoritative result back.
package dispatch

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/turnsync/internal/engine"
	"github.com/DoyleJ11/turnsync/pkg/types"
)

type Submitter interface {
	ProcessInput(ctx context.Context, id engine.Identity, params url.Values, extra string) error
}

// Store is the part of store.Store the dispatcher writes to.
type Store interface {
	BeginInput(ctx context.Context, guard bool) (engine.Identity, uint64, error)
	FailInput(ctx context.Context, seq uint64) error
	Mutate(ctx context.Context, m engine.Mutation) error
}

type Kind string

const (
	KindPlayCard          Kind = "PlayCard"
	KindSubmitButton      Kind = "SubmitButton"
	KindSubmitMultiButton Kind = "SubmitMultiButton"
)

type Dispatcher struct {
	api   Submitter
	store Store
	log   *zap.Logger
	ctx   context.Context

	// Guard refuses a new action while the previous one is still waiting
	// for a sync response.
	guard bool
	// OnAccepted runs after the server took an action, typically to poll
	// right away instead of waiting for the next tick.
	onAccepted func()

	wg sync.WaitGroup
}

type Option func(*Dispatcher)

func WithGuard(on bool) Option {
	return func(d *Dispatcher) { d.guard = on }
}

func WithOnAccepted(fn func()) Option {
	return func(d *Dispatcher) { d.onAccepted = fn }
}

// New returns a dispatcher whose requests live as long as ctx, the session
// context.
func New(ctx context.Context, api Submitter, st Store, log *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		api:   api,
		store: st,
		log:   log.Named("dispatch"),
		ctx:   ctx,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// PlayCard plays a hand card. The server identifies the card by its action
// data override, or by its hand index when there is none. The card leaves
// the local hand right away; the next sync is free to put it back.
func (d *Dispatcher) PlayCard(card types.Card, index int) error {
	id, seq, err := d.store.BeginInput(d.ctx, d.guard)
	if err != nil {
		return err
	}

	playNo := card.ActionDataOverride
	if playNo == "" {
		playNo = strconv.Itoa(index)
	}

	if err := d.store.Mutate(d.ctx, engine.Mutation{Type: engine.MutRemoveCardFromHand, Card: &card, Index: &index}); err != nil {
		d.log.Debug("optimistic hand removal", zap.Error(err))
	}
	if err := d.store.Mutate(d.ctx, engine.Mutation{Type: engine.MutClearPopUp}); err != nil {
		d.log.Debug("clear popup", zap.Error(err))
	}

	params := url.Values{}
	params.Set("mode", strconv.Itoa(card.Action))
	params.Set("cardID", playNo)
	d.submit(KindPlayCard, id, seq, params, "")
	return nil
}

func (d *Dispatcher) SubmitButton(b types.Button) error {
	id, seq, err := d.store.BeginInput(d.ctx, d.guard)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("mode", strconv.Itoa(b.Mode))
	params.Set("buttonInput", b.ButtonInput)
	d.submit(KindSubmitButton, id, seq, params, "")
	return nil
}

// SubmitMultiButton sends a mode plus a caller-built query fragment, used
// for follow-up inputs whose shape varies (checkbox sets, forms). extra is
// appended as is and must start with '&'.
func (d *Dispatcher) SubmitMultiButton(mode int, extra string) error {
	id, seq, err := d.store.BeginInput(d.ctx, d.guard)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("mode", strconv.Itoa(mode))
	d.submit(KindSubmitMultiButton, id, seq, params, extra)
	return nil
}

func (d *Dispatcher) submit(kind Kind, id engine.Identity, seq uint64, params url.Values, extra string) {
	log := d.log.With(zap.String("kind", string(kind)), zap.Int("game_id", id.GameID), zap.String("mode", params.Get("mode")))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if err := d.api.ProcessInput(d.ctx, id, params, extra); err != nil {
			if d.ctx.Err() != nil {
				log.Debug("action cancelled", zap.Error(err))
				return
			}
			log.Warn("action failed", zap.Error(err))
			if ferr := d.store.FailInput(d.ctx, seq); ferr != nil {
				log.Debug("clear input flag", zap.Error(ferr))
			}
			return
		}

		// playerInputInProgress stays set until the next sync lands.
		log.Debug("action accepted")
		if d.onAccepted != nil {
			d.onAccepted()
		}
	}()
}

// Wait blocks until every submitted request has settled.
func (d *Dispatcher) Wait() { d.wg.Wait() }
