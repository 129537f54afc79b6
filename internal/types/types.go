package types

import (
	"github.com/DoyleJ11/turnsync/internal/engine"
	game "github.com/DoyleJ11/turnsync/pkg/types"
)

// ClientMessage is what presentation collaborators send, over the websocket
// or as an HTTP body. Type is an action kind, "SubmitChat", "RequestSync" or
// one of the engine mutation names.
type ClientMessage struct {
	Type        string       `json:"type"`
	Card        *game.Card   `json:"card,omitempty"`
	CardIndex   int          `json:"cardIndex,omitempty"`
	Button      *game.Button `json:"button,omitempty"`
	Mode        int          `json:"mode,omitempty"`
	ExtraParams string       `json:"extraParams,omitempty"`
	Text        string       `json:"text,omitempty"`
	Cards       []game.Card  `json:"cardList,omitempty"`
	Name        string       `json:"name,omitempty"`
	Query       string       `json:"query,omitempty"`
	X           *int         `json:"xCoord,omitempty"`
	Y           *int         `json:"yCoord,omitempty"`
	ChainLink   *int         `json:"chainLink,omitempty"`
}

type ServerMessage struct {
	Type    string        `json:"type"` // "StateSnapshot" | "Error"
	Version int           `json:"version,omitempty"`
	State   *engine.State `json:"state,omitempty"`
	Error   string        `json:"error,omitempty"`
}
