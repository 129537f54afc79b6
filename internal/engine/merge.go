package engine

import "github.com/DoyleJ11/turnsync/pkg/types"

// Merge folds one sync response into s. Both in-flight flags are cleared no
// matter what the snapshot holds. Top-level fields present in the snapshot
// replace local ones; player sub-states are overlaid zone by zone. Local UI
// substate is left alone and nothing is validated.
func Merge(s State, snap types.Snapshot) State {
	s.UpdateInProgress = false
	s.PlayerInputInProgress = false

	if snap.PlayerOne.Set {
		s.PlayerOne = snap.PlayerOne.Value.Overlay(s.PlayerOne)
	}
	if snap.PlayerTwo.Set {
		s.PlayerTwo = snap.PlayerTwo.Value.Overlay(s.PlayerTwo)
	}
	snap.ActiveChainLink.ApplyTo(&s.ActiveChainLink)
	snap.ActiveLayers.ApplyTo(&s.ActiveLayers)
	snap.OldCombatChain.ApplyTo(&s.OldCombatChain)
	snap.ChatLog.ApplyTo(&s.ChatLog)
	snap.ActivePlayer.ApplyTo(&s.ActivePlayer)
	snap.TurnPhase.ApplyTo(&s.TurnPhase)
	snap.PlayerInputPopUp.ApplyTo(&s.PlayerInputPopUp)
	snap.PlayerPrompt.ApplyTo(&s.PlayerPrompt)
	snap.CanPassPhase.ApplyTo(&s.CanPassPhase)
	snap.Events.ApplyTo(&s.Events)

	if snap.GameInfo.Set {
		info := snap.GameInfo.Value
		info.LastUpdate.ApplyTo(&s.Info.LastUpdate)
		info.LastPlayed.ApplyTo(&s.Info.LastPlayed)
		info.TurnNo.ApplyTo(&s.Info.TurnNo)
	}
	return s
}
