package ws

import (
	"context"
	"errors"

	"github.com/DoyleJ11/turnsync/internal/dispatch"
	"github.com/DoyleJ11/turnsync/internal/engine"
	"github.com/DoyleJ11/turnsync/internal/session"
	"github.com/DoyleJ11/turnsync/internal/types"
)

var ErrUnknownType = errors.New("unknown message type")
var ErrBadMessage = errors.New("message is missing a required field")

const (
	TypeSubmitChat  = "SubmitChat"
	TypeRequestSync = "RequestSync"
)

// Execute routes one client message to the session: actions go to the
// dispatcher, chat to the server, everything else is a local mutation.
func Execute(ctx context.Context, s *session.Session, cm types.ClientMessage) error {
	switch cm.Type {
	case string(dispatch.KindPlayCard):
		if cm.Card == nil {
			return ErrBadMessage
		}
		return s.Dispatcher.PlayCard(*cm.Card, cm.CardIndex)

	case string(dispatch.KindSubmitButton):
		if cm.Button == nil {
			return ErrBadMessage
		}
		return s.Dispatcher.SubmitButton(*cm.Button)

	case string(dispatch.KindSubmitMultiButton):
		return s.Dispatcher.SubmitMultiButton(cm.Mode, cm.ExtraParams)

	case TypeSubmitChat:
		if cm.Text == "" {
			return ErrBadMessage
		}
		return s.SubmitChat(ctx, cm.Text)

	case TypeRequestSync:
		s.Poller.Trigger()
		return nil
	}

	err := s.Store.Mutate(ctx, toMutation(cm))
	if errors.Is(err, engine.ErrUnsupportedMutation) {
		return ErrUnknownType
	}
	if errors.Is(err, engine.ErrMissingCard) {
		return ErrBadMessage
	}
	return err
}

func toMutation(cm types.ClientMessage) engine.Mutation {
	return engine.Mutation{
		Type:      engine.MutationType(cm.Type),
		Card:      cm.Card,
		Cards:     cm.Cards,
		Name:      cm.Name,
		Query:     cm.Query,
		X:         cm.X,
		Y:         cm.Y,
		ChainLink: cm.ChainLink,
		Index:     &cm.CardIndex,
	}
}
