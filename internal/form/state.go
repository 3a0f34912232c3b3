package form

import (
	"battlelog/internal/resolver"
	"battlelog/internal/types"
)

// DefaultBattleType is used after a reset when no battle types were loaded.
const DefaultBattleType = "Single"

// TrainerField is one trainer slot of the form.
type TrainerField struct {
	Trainer  types.Trainer
	Validity types.TrainerValidity
	Enabled  bool
	Checking bool
}

// Options are the selectable values loaded from the gateway.
type Options struct {
	Playthroughs []types.Playthrough
	Regions      []string
	BattleTypes  []string
}

// State is a snapshot of the battle form.
type State struct {
	PlaythroughIDNo  string
	Location         types.Location
	LocationValid    bool
	LocationChecking bool
	BattleType       string
	Opponent1        TrainerField
	Opponent2        TrainerField
	Partner          TrainerField
	Round            int
	Lost             bool
	Submitting       bool
	Options          Options
}

// Trainer returns the field for slot, or nil for SlotNone.
func (s *State) Trainer(slot resolver.Slot) *TrainerField {
	switch slot {
	case resolver.SlotOpponent1:
		return &s.Opponent1
	case resolver.SlotOpponent2:
		return &s.Opponent2
	case resolver.SlotPartner:
		return &s.Partner
	default:
		return nil
	}
}

// Checking reports whether any validity check is still in flight.
func (s State) Checking() bool {
	return s.LocationChecking || s.Opponent1.Checking || s.Opponent2.Checking || s.Partner.Checking
}

// Submission converts the state into the resolver's input. Disabled slots are
// left out.
func (s State) Submission() resolver.Submission {
	sub := resolver.Submission{
		PlaythroughIDNo: s.PlaythroughIDNo,
		Location:        s.Location,
		LocationValid:   s.LocationValid,
		BattleType:      s.BattleType,
		Opponent1:       input(resolver.SlotOpponent1, s.Opponent1),
		Round:           s.Round,
		Lost:            s.Lost,
	}
	if s.Opponent2.Enabled {
		in := input(resolver.SlotOpponent2, s.Opponent2)
		sub.Opponent2 = &in
	}
	if s.Partner.Enabled {
		in := input(resolver.SlotPartner, s.Partner)
		sub.Partner = &in
	}
	return sub
}

func input(slot resolver.Slot, f TrainerField) resolver.TrainerInput {
	return resolver.TrainerInput{Slot: slot, Trainer: f.Trainer, Validity: f.Validity}
}

// reset clears the transient fields after a battle was created. Playthrough,
// location and round are kept.
func (s *State) reset() {
	s.BattleType = DefaultBattleType
	if len(s.Options.BattleTypes) > 0 {
		s.BattleType = s.Options.BattleTypes[0]
	}
	s.Opponent1 = TrainerField{Enabled: true}
	s.Opponent2 = TrainerField{}
	s.Partner = TrainerField{}
	s.Lost = false
}
