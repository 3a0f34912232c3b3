// Package resolver makes sure every record a battle refers to exists before
// the battle is submitted.
//
// Each dependent record (the location, then every enabled trainer slot) is
// resolved in a fixed order. A record already known to exist is left alone.
// A missing one is created only after the user confirms it through the
// Prompter; declining aborts the whole submission. Trainers resolve in two
// phases, class strictly before name, since a trainer cannot exist without
// its class.
//
// Nothing is retried and nothing created before a later failure is rolled
// back.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"battlelog/internal/logging"
	"battlelog/internal/types"
)

// Slot identifies a trainer field of the battle form.
type Slot int

const (
	SlotNone Slot = iota
	SlotOpponent1
	SlotOpponent2
	SlotPartner
)

func (s Slot) String() string {
	switch s {
	case SlotOpponent1:
		return "opponent1"
	case SlotOpponent2:
		return "opponent2"
	case SlotPartner:
		return "partner"
	default:
		return "none"
	}
}

// Gateway is the set of commands the resolver issues.
type Gateway interface {
	CreateLocation(ctx context.Context, l types.Location) error
	CreateTrainerClass(ctx context.Context, name string) error
	CreateTrainer(ctx context.Context, t types.Trainer) error
	CreateBattle(ctx context.Context, p types.CreateBattleParams) (int64, error)
}

// Marker records that a record is now known to exist, so the caller's
// validity flags stay in step with what the resolver created.
type Marker interface {
	MarkLocationValid(l types.Location)
	MarkClassValid(slot Slot, class string)
	MarkNameValid(slot Slot, t types.Trainer)
}

type noopMarker struct{}

func (noopMarker) MarkLocationValid(types.Location)  {}
func (noopMarker) MarkClassValid(Slot, string)       {}
func (noopMarker) MarkNameValid(Slot, types.Trainer) {}

// TrainerInput is one trainer slot as the form holds it.
type TrainerInput struct {
	Slot     Slot
	Trainer  types.Trainer
	Validity types.TrainerValidity
}

// Submission is a snapshot of the battle form at submit time. Opponent2 and
// Partner are nil when their slot is disabled.
type Submission struct {
	PlaythroughIDNo string
	Location        types.Location
	LocationValid   bool
	BattleType      string
	Opponent1       TrainerInput
	Opponent2       *TrainerInput
	Partner         *TrainerInput
	Round           int
	Lost            bool
}

// Resolver resolves dependent records and submits battles.
type Resolver struct {
	gw     Gateway
	prompt Prompter
	marker Marker
}

// New creates a resolver. m may be nil.
func New(gw Gateway, p Prompter, m Marker) *Resolver {
	if m == nil {
		m = noopMarker{}
	}
	return &Resolver{gw: gw, prompt: p, marker: m}
}

// Validate checks every field the submission needs without touching the
// gateway. The first blank required field is returned as *ValidationError.
func Validate(sub Submission) error {
	if strings.TrimSpace(sub.PlaythroughIDNo) == "" {
		return &ValidationError{Field: "playthrough", Message: "no playthrough selected"}
	}
	if strings.TrimSpace(sub.BattleType) == "" {
		return &ValidationError{Field: "battle_type", Message: "no battle type selected"}
	}
	if !sub.LocationValid {
		if blank(sub.Location.Name) {
			return &ValidationError{Field: "location.name", Message: "blank location name"}
		}
		if blank(sub.Location.Region) {
			return &ValidationError{Field: "location.region", Message: "blank location region"}
		}
	}
	for _, in := range sub.trainers() {
		if !in.Validity.Class && blank(in.Trainer.Class) {
			return &ValidationError{Field: in.Slot.String() + ".class", Message: "blank trainer class"}
		}
		if !in.Validity.Name && blank(in.Trainer.Name) {
			return &ValidationError{Field: in.Slot.String() + ".name", Message: "blank trainer name"}
		}
	}
	if sub.Round < 0 {
		return &ValidationError{Field: "round", Message: "round must not be negative"}
	}
	return nil
}

func (sub Submission) trainers() []TrainerInput {
	out := []TrainerInput{sub.Opponent1}
	if sub.Opponent2 != nil {
		out = append(out, *sub.Opponent2)
	}
	if sub.Partner != nil {
		out = append(out, *sub.Partner)
	}
	return out
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Submit resolves the location, then opponent 1, opponent 2 and the partner
// (when enabled), then creates the battle. It stops at the first failure and
// returns that error unchanged alongside the trace so far.
func (r *Resolver) Submit(ctx context.Context, sub Submission) (*Report, error) {
	report := &Report{}

	if err := Validate(sub); err != nil {
		logging.ResolverDebug("Submission rejected: %v", err)
		return report, err
	}

	locOutcome := r.ResolveLocation(ctx, sub.Location, sub.LocationValid)
	report.add(Step{Entity: "location", Name: sub.Location.String(), Outcome: locOutcome})
	if !locOutcome.OK() {
		return report, locOutcome.Err
	}

	for _, in := range sub.trainers() {
		classOutcome, nameOutcome := r.ResolveTrainer(ctx, in)
		report.add(Step{Entity: "trainer class", Name: in.Trainer.Class, Slot: in.Slot, Outcome: classOutcome})
		if !classOutcome.OK() {
			return report, classOutcome.Err
		}
		report.add(Step{Entity: "trainer", Name: in.Trainer.String(), Slot: in.Slot, Outcome: nameOutcome})
		if !nameOutcome.OK() {
			return report, nameOutcome.Err
		}
	}

	params := battleParams(sub)
	no, err := r.gw.CreateBattle(ctx, params)
	if err != nil {
		report.add(Step{Entity: "battle", Name: sub.Opponent1.Trainer.String(), Outcome: failed(err)})
		logging.Get(logging.CategoryResolver).Error("create_battle failed: %v", err)
		return report, err
	}
	report.BattleNo = no
	report.add(Step{Entity: "battle", Name: sub.Opponent1.Trainer.String(), Outcome: created()})
	logging.Resolver("Battle %d created against %s", no, sub.Opponent1.Trainer)
	return report, nil
}

func battleParams(sub Submission) types.CreateBattleParams {
	p := types.CreateBattleParams{
		PlaythroughIDNo: sub.PlaythroughIDNo,
		LocationName:    sub.Location.Name,
		LocationRegion:  sub.Location.Region,
		BattleType:      sub.BattleType,
		Opponent1Name:   sub.Opponent1.Trainer.Name,
		Opponent1Class:  sub.Opponent1.Trainer.Class,
		Round:           sub.Round,
		Lost:            sub.Lost,
	}
	if sub.Opponent2 != nil {
		p.Opponent2Class = types.StringPtr(sub.Opponent2.Trainer.Class)
		p.Opponent2Name = types.StringPtr(sub.Opponent2.Trainer.Name)
	}
	if sub.Partner != nil {
		p.PartnerClass = types.StringPtr(sub.Partner.Trainer.Class)
		p.PartnerName = types.StringPtr(sub.Partner.Trainer.Name)
	}
	return p
}

// ResolveLocation ensures the location exists.
func (r *Resolver) ResolveLocation(ctx context.Context, l types.Location, valid bool) Outcome {
	if valid {
		return resolved()
	}
	if blank(l.Name) {
		return failed(&ValidationError{Field: "location.name", Message: "blank location name"})
	}

	return r.confirmAndCreate(ctx,
		"location", l.String(),
		"Create Location?", fmt.Sprintf("'%s' does not exist. Create it?", l.String()),
		func() error { return r.gw.CreateLocation(ctx, l) },
		func() { r.marker.MarkLocationValid(l) },
	)
}

// ResolveTrainer runs the class phase and, only if it succeeds, the name
// phase. When the class phase fails the name outcome carries the same error.
func (r *Resolver) ResolveTrainer(ctx context.Context, in TrainerInput) (class, name Outcome) {
	if in.Validity.Valid() {
		logging.ResolverDebug("%s '%s' already known", in.Slot, in.Trainer)
		return resolved(), resolved()
	}
	class = r.ResolveTrainerClass(ctx, in.Slot, in.Trainer.Class, in.Validity.Class)
	if !class.OK() {
		return class, failed(class.Err)
	}
	name = r.ResolveTrainerName(ctx, in.Slot, in.Trainer, in.Validity.Name)
	return class, name
}

// ResolveTrainerClass ensures the class exists.
func (r *Resolver) ResolveTrainerClass(ctx context.Context, slot Slot, class string, valid bool) Outcome {
	if valid {
		return resolved()
	}
	if blank(class) {
		return failed(&ValidationError{Field: slot.String() + ".class", Message: "blank trainer class"})
	}

	return r.confirmAndCreate(ctx,
		"trainer class", class,
		"Create Trainer Class?", fmt.Sprintf("'%s' does not exist. Create it?", class),
		func() error { return r.gw.CreateTrainerClass(ctx, class) },
		func() { r.marker.MarkClassValid(slot, class) },
	)
}

// ResolveTrainerName ensures the trainer exists. Its class must already exist.
func (r *Resolver) ResolveTrainerName(ctx context.Context, slot Slot, t types.Trainer, valid bool) Outcome {
	if valid {
		return resolved()
	}
	if blank(t.Name) {
		return failed(&ValidationError{Field: slot.String() + ".name", Message: "blank trainer name"})
	}

	return r.confirmAndCreate(ctx,
		"trainer", t.String(),
		"Create Trainer?", fmt.Sprintf("'%s %s' does not exist. Create them?", t.Class, t.Name),
		func() error { return r.gw.CreateTrainer(ctx, t) },
		func() { r.marker.MarkNameValid(slot, t) },
	)
}

func (r *Resolver) confirmAndCreate(ctx context.Context, entity, name, title, message string, create func() error, mark func()) Outcome {
	ok, err := r.prompt.Confirm(ctx, title, message)
	if err != nil {
		logging.ResolverWarn("Confirmation for %s '%s' failed: %v", entity, name, err)
		return failed(err)
	}
	if !ok {
		logging.Resolver("User declined to create %s '%s'", entity, name)
		return failed(&UserCancelledError{Entity: entity, Name: name})
	}

	if err := create(); err != nil {
		return failed(err)
	}
	mark()
	logging.Resolver("Created %s '%s'", entity, name)
	return created()
}
