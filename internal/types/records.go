// Package types defines the records tracked by battlelog and the wire shapes
// exchanged with the command backend.
package types

import (
	"strings"
	"time"
)

// Trainer is identified by its (class, name) pair.
type Trainer struct {
	Name  string `json:"name" validate:"required"`
	Class string `json:"class" validate:"required"`
}

// String renders the trainer the way prompts and titles show it: "Class Name".
func (t Trainer) String() string {
	return strings.TrimSpace(t.Class + " " + t.Name)
}

// Location is identified by its (name, region) pair.
type Location struct {
	Name   string `json:"name" validate:"required"`
	Region string `json:"region" validate:"required"`
}

func (l Location) String() string {
	return l.Name + ", " + l.Region
}

// Playthrough is a single run of a game version.
type Playthrough struct {
	IDNo             string    `json:"id_no" validate:"required"`
	Name             string    `json:"name"`
	Version          string    `json:"version" validate:"required"`
	AdventureStarted time.Time `json:"adventure_started"`
}

// Label is the option text used by playthrough selectors: "Version (YYYY-MM-DD)".
func (p Playthrough) Label() string {
	return p.Version + " (" + p.AdventureStarted.UTC().Format("2006-01-02") + ")"
}

// TrainerValidity caches whether a trainer slot's class and full trainer
// are known to exist in the backing store.
type TrainerValidity struct {
	Class bool `json:"class"`
	Name  bool `json:"name"`
}

// Valid is true once both halves are known to exist.
func (v TrainerValidity) Valid() bool {
	return v.Class && v.Name
}

// BattleEvent is the event row nested inside a read_battles record.
type BattleEvent struct {
	No              int64  `json:"no" validate:"gt=0"`
	PlaythroughIDNo string `json:"playthrough_id_no" validate:"required"`
	LocationName    string `json:"location_name" validate:"required"`
	LocationRegion  string `json:"location_region" validate:"required"`
}

// BattleRecord is one row of read_battles as the backend returns it. Lost
// and Round are pointers so a row that omits them fails validation instead
// of decoding as false and 0.
type BattleRecord struct {
	No             int64       `json:"no" validate:"gt=0"`
	BattleType     string      `json:"battle_type" validate:"required"`
	Lost           *bool       `json:"lost" validate:"required"`
	Opponent1Class string      `json:"opponent1_class" validate:"required"`
	Opponent1Name  string      `json:"opponent1_name" validate:"required"`
	Opponent2Class *string     `json:"opponent2_class"`
	Opponent2Name  *string     `json:"opponent2_name"`
	PartnerClass   *string     `json:"partner_class"`
	PartnerName    *string     `json:"partner_name"`
	Round          *int        `json:"round" validate:"required,gte=0"`
	Event          BattleEvent `json:"event"`
}

// Battle is the composite record as the application works with it.
type Battle struct {
	No              int64
	Type            string
	Lost            bool
	Round           int
	Opponent1       Trainer
	Opponent2       *Trainer
	Partner         *Trainer
	Location        Location
	PlaythroughIDNo string
}

// Battle converts the wire record into its application shape.
func (r BattleRecord) Battle() Battle {
	return Battle{
		No:              r.No,
		Type:            r.BattleType,
		Lost:            r.Lost != nil && *r.Lost,
		Round:           deref(r.Round),
		Opponent1:       Trainer{Class: r.Opponent1Class, Name: r.Opponent1Name},
		Opponent2:       optionalTrainer(r.Opponent2Class, r.Opponent2Name),
		Partner:         optionalTrainer(r.PartnerClass, r.PartnerName),
		Location:        Location{Name: r.Event.LocationName, Region: r.Event.LocationRegion},
		PlaythroughIDNo: r.Event.PlaythroughIDNo,
	}
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

func optionalTrainer(class, name *string) *Trainer {
	if class == nil {
		return nil
	}
	t := &Trainer{Class: *class}
	if name != nil {
		t.Name = *name
	}
	return t
}

// Title renders "<c1> <n1>[ and <c2>[ <n2>]][ with <pc>[ <pn>]][ (lost)]".
func (b Battle) Title() string {
	var sb strings.Builder
	sb.WriteString(b.Opponent1.Class + " " + b.Opponent1.Name)
	if b.Opponent2 != nil {
		sb.WriteString(" and " + b.Opponent2.Class)
		if b.Opponent2.Name != "" {
			sb.WriteString(" " + b.Opponent2.Name)
		}
	}
	if b.Partner != nil {
		sb.WriteString(" with " + b.Partner.Class)
		if b.Partner.Name != "" {
			sb.WriteString(" " + b.Partner.Name)
		}
	}
	if b.Lost {
		sb.WriteString(" (lost)")
	}
	return sb.String()
}

// Battles converts a slice of wire records.
func Battles(records []BattleRecord) []Battle {
	out := make([]Battle, 0, len(records))
	for _, r := range records {
		out = append(out, r.Battle())
	}
	return out
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
