package engine

import (
	"errors"

	"github.com/DoyleJ11/turnsync/pkg/types"
)

var ErrUnsupportedMutation = errors.New("unsupported mutation")
var ErrMissingCard = errors.New("mutation needs a card")

// Identity names the session on the server. GameID, PlayerID and AuthKey are
// fixed when the session starts; the remaining fields only move forward with
// successful sync responses.
type Identity struct {
	GameID     int    `json:"gameID"`
	PlayerID   int    `json:"playerID"`
	AuthKey    string `json:"authKey"`
	LastUpdate int64  `json:"lastUpdate"`
	LastPlayed int64  `json:"lastPlayed"`
	TurnNo     int    `json:"turnNo"`
}

// State is the client mirror of one game plus the purely local UI substate
// that shares its lifetime. Slices are replaced, never edited in place, so a
// State copy handed to a reader stays stable.
type State struct {
	Info Identity `json:"gameInfo"`

	PlayerOne        types.Player            `json:"playerOne"`
	PlayerTwo        types.Player            `json:"playerTwo"`
	ActiveChainLink  *types.ChainLink        `json:"activeChainLink,omitempty"`
	ActiveLayers     *types.Layers           `json:"activeLayers,omitempty"`
	OldCombatChain   []types.Card            `json:"oldCombatChain,omitempty"`
	ChatLog          []string                `json:"chatLog,omitempty"`
	ActivePlayer     int                     `json:"activePlayer"`
	TurnPhase        *types.TurnPhase        `json:"turnPhase,omitempty"`
	PlayerInputPopUp *types.PlayerInputPopUp `json:"playerInputPopUp,omitempty"`
	PlayerPrompt     *types.PlayerPrompt     `json:"playerPrompt,omitempty"`
	CanPassPhase     bool                    `json:"canPassPhase"`
	Events           []types.Event           `json:"events,omitempty"`

	UpdateInProgress      bool `json:"isUpdateInProgress"`
	PlayerInputInProgress bool `json:"isPlayerInputInProgress"`

	// Local only. Never sent to the server and never touched by Merge.
	Popup            Popup             `json:"popup"`
	PlayCardMessage  PlayCardMessage   `json:"playCardMessage"`
	CardListFocus    *CardListFocus    `json:"cardListFocus,omitempty"`
	OptionsMenu      OptionsMenu       `json:"optionsMenu"`
	ChainLinkSummary *ChainLinkSummary `json:"chainLinkSummary,omitempty"`
}

type Popup struct {
	On   bool        `json:"popupOn"`
	X    *int        `json:"xCoord,omitempty"`
	Y    *int        `json:"yCoord,omitempty"`
	Card *types.Card `json:"popupCard,omitempty"`
}

type PlayCardMessage struct {
	On      bool   `json:"popUpOn"`
	Message string `json:"message,omitempty"`
}

type CardListFocus struct {
	Active bool         `json:"active"`
	Cards  []types.Card `json:"cardList,omitempty"`
	Name   string       `json:"name,omitempty"`
	// APICall marks a list the presentation layer must fetch with Query.
	APICall bool   `json:"apiCall"`
	Query   string `json:"apiQuery,omitempty"`
}

type OptionsMenu struct {
	Active bool `json:"active"`
}

type ChainLinkSummary struct {
	Show  bool `json:"show"`
	Index int  `json:"index"`
}

type MutationType string

const (
	MutSetPopUp                 MutationType = "SetPopUp"
	MutClearPopUp               MutationType = "ClearPopUp"
	MutSetPlayCardMessage       MutationType = "SetPlayCardMessage"
	MutClearPlayCardMessage     MutationType = "ClearPlayCardMessage"
	MutSetCardListFocus         MutationType = "SetCardListFocus"
	MutSetCardListLoadFocus     MutationType = "SetCardListLoadFocus"
	MutClearCardListFocus       MutationType = "ClearCardListFocus"
	MutOpenOptionsMenu          MutationType = "OpenOptionsMenu"
	MutCloseOptionsMenu         MutationType = "CloseOptionsMenu"
	MutRemoveCardFromHand       MutationType = "RemoveCardFromHand"
	MutShowChainLinkSummary     MutationType = "ShowChainLinkSummary"
	MutHideChainLinkSummary     MutationType = "HideChainLinkSummary"
	MutSetUpdateInProgressFalse MutationType = "SetUpdateInProgressFalse"
	MutShowActiveLayer          MutationType = "ShowActiveLayer"
	MutHideActiveLayer          MutationType = "HideActiveLayer"
)

const playCardPrompt = "Release to play this card"

// Mutation is a named local change. Only the fields its Type reads matter.
type Mutation struct {
	Type      MutationType
	Card      *types.Card
	Cards     []types.Card
	Name      string
	Query     string
	X, Y      *int
	ChainLink *int
	// Index is the hand position, used when Card has no action data override.
	Index *int
}

// Apply returns the state after m. The input state is not modified.
func Apply(s State, m Mutation) (State, error) {
	switch m.Type {
	case MutSetPopUp:
		if m.Card == nil {
			return s, ErrMissingCard
		}
		s.Popup = Popup{On: true, X: m.X, Y: m.Y, Card: &types.Card{CardNumber: m.Card.CardNumber}}

	case MutClearPopUp:
		s.Popup = Popup{}

	case MutSetPlayCardMessage:
		s.PlayCardMessage = PlayCardMessage{On: true, Message: playCardPrompt}

	case MutClearPlayCardMessage:
		s.PlayCardMessage = PlayCardMessage{}

	case MutSetCardListFocus:
		s.CardListFocus = &CardListFocus{Active: true, Cards: cloneCards(m.Cards), Name: m.Name}

	case MutSetCardListLoadFocus:
		s.CardListFocus = &CardListFocus{Active: true, Name: m.Name, Query: m.Query, APICall: true}

	case MutClearCardListFocus:
		s.CardListFocus = nil

	case MutOpenOptionsMenu:
		s.OptionsMenu = OptionsMenu{Active: true}

	case MutCloseOptionsMenu:
		s.OptionsMenu = OptionsMenu{}

	case MutRemoveCardFromHand:
		if m.Card == nil {
			return s, ErrMissingCard
		}
		if m.Card.ActionDataOverride != "" {
			s.PlayerOne.Hand = removeByOverride(s.PlayerOne.Hand, m.Card.ActionDataOverride)
			break
		}
		if m.Index != nil {
			s.PlayerOne.Hand = removeAt(s.PlayerOne.Hand, *m.Index)
		}

	case MutShowChainLinkSummary:
		idx := -1
		if m.ChainLink != nil {
			idx = *m.ChainLink
		}
		s.ChainLinkSummary = &ChainLinkSummary{Show: true, Index: idx}

	case MutHideChainLinkSummary:
		s.ChainLinkSummary = nil

	case MutSetUpdateInProgressFalse:
		s.UpdateInProgress = false

	case MutShowActiveLayer, MutHideActiveLayer:
		layers := types.Layers{}
		if s.ActiveLayers != nil {
			layers = *s.ActiveLayers
		}
		layers.Active = m.Type == MutShowActiveLayer
		s.ActiveLayers = &layers

	default:
		return s, ErrUnsupportedMutation
	}
	return s, nil
}
