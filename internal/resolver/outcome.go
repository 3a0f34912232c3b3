package resolver

import (
	"fmt"
	"strings"
)

// OutcomeKind tags the result of resolving one dependent record.
type OutcomeKind int

const (
	// Resolved means the record was already known to exist.
	Resolved OutcomeKind = iota
	// Created means the record was missing and has just been created.
	Created
	// Failed means resolution stopped; Outcome.Err says why.
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case Created:
		return "created"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the tagged result of one resolution phase.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

// OK reports whether the phase succeeded.
func (o Outcome) OK() bool {
	return o.Kind != Failed
}

func resolved() Outcome        { return Outcome{Kind: Resolved} }
func created() Outcome         { return Outcome{Kind: Created} }
func failed(err error) Outcome { return Outcome{Kind: Failed, Err: err} }

// Step is one entry of a submission trace.
type Step struct {
	Entity  string // "location", "trainer class", "trainer" or "battle"
	Name    string
	Slot    Slot
	Outcome Outcome
}

func (s Step) String() string {
	label := s.Entity
	if s.Slot != SlotNone {
		label = s.Slot.String() + " " + s.Entity
	}
	if s.Outcome.Err != nil {
		return fmt.Sprintf("%s '%s': %s (%v)", label, s.Name, s.Outcome.Kind, s.Outcome.Err)
	}
	return fmt.Sprintf("%s '%s': %s", label, s.Name, s.Outcome.Kind)
}

// Report traces every step of one submission in order.
type Report struct {
	Steps    []Step
	BattleNo int64
}

func (r *Report) add(s Step) {
	r.Steps = append(r.Steps, s)
}

// Created returns the steps that created a record.
func (r *Report) Created() []Step {
	var out []Step
	for _, s := range r.Steps {
		if s.Outcome.Kind == Created {
			out = append(out, s)
		}
	}
	return out
}

func (r *Report) String() string {
	lines := make([]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		lines = append(lines, s.String())
	}
	return strings.Join(lines, "\n")
}
