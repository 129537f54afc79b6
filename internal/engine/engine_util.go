package engine

import "github.com/DoyleJ11/turnsync/pkg/types"

// NewState is the state right after game start: identity set, nothing
// mirrored yet.
func NewState(id Identity) State {
	return State{
		Info: Identity{
			GameID:   id.GameID,
			PlayerID: id.PlayerID,
			AuthKey:  id.AuthKey,
		},
	}
}

func removeByOverride(cards []types.Card, override string) []types.Card {
	out := make([]types.Card, 0, len(cards))
	for _, c := range cards {
		if c.ActionDataOverride != override {
			out = append(out, c)
		}
	}
	return out
}

// removeAt drops the card at i. Out of range leaves the hand as is.
func removeAt(cards []types.Card, i int) []types.Card {
	if i < 0 || i >= len(cards) {
		return cards
	}
	out := make([]types.Card, 0, len(cards)-1)
	out = append(out, cards[:i]...)
	return append(out, cards[i+1:]...)
}

func cloneCards(cards []types.Card) []types.Card {
	if cards == nil {
		return nil
	}
	return append([]types.Card(nil), cards...)
}
