// Package form holds the in-progress battle form and keeps its validity flags
// in step with the gateway.
//
// Every edit to a location or trainer field starts a background read that
// refreshes the field's flags. Checks are tagged with a per-slot generation
// and a result is applied only while its generation is still current, so a
// slow answer for an old value never overwrites a newer one.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"battlelog/internal/logging"
	"battlelog/internal/resolver"
	"battlelog/internal/types"

	"golang.org/x/sync/errgroup"
)

// ErrSubmitInProgress is returned by Submit while another submit is running.
var ErrSubmitInProgress = errors.New("a battle is already being submitted")

// Gateway is the set of commands the form needs.
type Gateway interface {
	resolver.Gateway
	ReadLocations(ctx context.Context, name, region *string) ([]types.Location, error)
	ReadTrainerClasses(ctx context.Context, name *string) ([]string, error)
	ReadTrainers(ctx context.Context, name, class *string) ([]types.Trainer, error)
	ReadPlaythroughs(ctx context.Context) ([]types.Playthrough, error)
	ReadRegions(ctx context.Context) ([]string, error)
	ReadBattleTypes(ctx context.Context) ([]string, error)
}

// Hooks receive state changes and background errors. Both are optional and
// are called without the controller's lock held.
type Hooks struct {
	OnChange func(State)
	OnError  func(title string, err error)
}

// key identifies a slot whose checks carry a generation.
type key int

const (
	keyLocation key = iota
	keyOpponent1
	keyOpponent2
	keyPartner
	numKeys
)

func slotKey(slot resolver.Slot) key {
	switch slot {
	case resolver.SlotOpponent2:
		return keyOpponent2
	case resolver.SlotPartner:
		return keyPartner
	default:
		return keyOpponent1
	}
}

// Controller owns the form state.
type Controller struct {
	gw     Gateway
	prompt resolver.Prompter
	hooks  Hooks

	mu       sync.Mutex
	state    State
	gens     [numKeys]uint64
	inflight int
	idle     chan struct{} // closed while no check is running

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a controller with an empty form.
func New(gw Gateway, p resolver.Prompter, hooks Hooks) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		gw:     gw,
		prompt: p,
		hooks:  hooks,
		ctx:    ctx,
		cancel: cancel,
		idle:   make(chan struct{}),
	}
	close(c.idle)
	c.state.Opponent1.Enabled = true
	c.state.BattleType = DefaultBattleType
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LoadOptions reads playthroughs, regions and battle types in parallel and
// fills in defaults: the first playthrough, the first region of the reversed
// region list and the first battle type.
func (c *Controller) LoadOptions(ctx context.Context) error {
	var opts Options
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ps, err := c.gw.ReadPlaythroughs(gctx)
		if err != nil {
			return fmt.Errorf("read playthroughs: %w", err)
		}
		opts.Playthroughs = ps
		return nil
	})
	g.Go(func() error {
		regions, err := c.gw.ReadRegions(gctx)
		if err != nil {
			return fmt.Errorf("read regions: %w", err)
		}
		opts.Regions = reversed(regions)
		return nil
	})
	g.Go(func() error {
		bts, err := c.gw.ReadBattleTypes(gctx)
		if err != nil {
			return fmt.Errorf("read battle types: %w", err)
		}
		opts.BattleTypes = bts
		return nil
	})
	if err := g.Wait(); err != nil {
		logging.FormError("Loading options failed: %v", err)
		return err
	}

	c.mu.Lock()
	c.state.Options = opts
	if c.state.PlaythroughIDNo == "" && len(opts.Playthroughs) > 0 {
		c.state.PlaythroughIDNo = opts.Playthroughs[0].IDNo
	}
	if len(opts.BattleTypes) > 0 {
		c.state.BattleType = opts.BattleTypes[0]
	}
	regionChanged := false
	if c.state.Location.Region == "" && len(opts.Regions) > 0 {
		c.state.Location.Region = opts.Regions[0]
		regionChanged = true
	}
	c.mu.Unlock()

	logging.Form("Loaded %d playthroughs, %d regions, %d battle types",
		len(opts.Playthroughs), len(opts.Regions), len(opts.BattleTypes))
	if regionChanged {
		c.checkLocation()
	} else {
		c.changed()
	}
	return nil
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

// SetPlaythrough selects the playthrough by id.
func (c *Controller) SetPlaythrough(idNo string) {
	c.update(func(s *State) { s.PlaythroughIDNo = idNo })
}

// SetBattleType selects the battle type.
func (c *Controller) SetBattleType(t string) {
	c.update(func(s *State) { s.BattleType = t })
}

// SetRound sets the round number.
func (c *Controller) SetRound(round int) {
	c.update(func(s *State) { s.Round = round })
}

// SetLost sets the lost flag.
func (c *Controller) SetLost(lost bool) {
	c.update(func(s *State) { s.Lost = lost })
}

// SetLocation replaces the location and re-checks it.
func (c *Controller) SetLocation(l types.Location) {
	c.mu.Lock()
	if c.state.Location == l {
		c.mu.Unlock()
		return
	}
	c.state.Location = l
	c.mu.Unlock()
	c.checkLocation()
}

// SetLocationName edits the location name and re-checks it.
func (c *Controller) SetLocationName(name string) {
	l := c.Snapshot().Location
	l.Name = name
	c.SetLocation(l)
}

// SetLocationRegion edits the location region and re-checks it.
func (c *Controller) SetLocationRegion(region string) {
	l := c.Snapshot().Location
	l.Region = region
	c.SetLocation(l)
}

// SetTrainer replaces a slot's trainer and re-checks it.
func (c *Controller) SetTrainer(slot resolver.Slot, t types.Trainer) {
	c.mu.Lock()
	f := c.state.Trainer(slot)
	if f == nil || f.Trainer == t {
		c.mu.Unlock()
		return
	}
	f.Trainer = t
	c.mu.Unlock()
	c.checkTrainer(slot)
}

// SetTrainerClass edits a slot's class and re-checks it.
func (c *Controller) SetTrainerClass(slot resolver.Slot, class string) {
	s := c.Snapshot()
	if f := s.Trainer(slot); f != nil {
		t := f.Trainer
		t.Class = class
		c.SetTrainer(slot, t)
	}
}

// SetTrainerName edits a slot's name and re-checks it.
func (c *Controller) SetTrainerName(slot resolver.Slot, name string) {
	s := c.Snapshot()
	if f := s.Trainer(slot); f != nil {
		t := f.Trainer
		t.Name = name
		c.SetTrainer(slot, t)
	}
}

// SetEnabled turns opponent 2 or the partner on or off. Opponent 1 is always
// enabled.
func (c *Controller) SetEnabled(slot resolver.Slot, enabled bool) {
	if slot != resolver.SlotOpponent2 && slot != resolver.SlotPartner {
		return
	}
	c.mu.Lock()
	f := c.state.Trainer(slot)
	if f.Enabled == enabled {
		c.mu.Unlock()
		return
	}
	f.Enabled = enabled
	c.mu.Unlock()
	c.checkTrainer(slot)
}

func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) changed() {
	if c.hooks.OnChange != nil {
		c.hooks.OnChange(c.Snapshot())
	}
}

func (c *Controller) fail(title string, err error) {
	logging.FormError("%s: %v", title, err)
	if c.hooks.OnError != nil {
		c.hooks.OnError(title, err)
	}
}

func (c *Controller) spawn(fn func(ctx context.Context)) {
	c.mu.Lock()
	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.settle()
		fn(c.ctx)
	}()
}

func (c *Controller) settle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if c.inflight == 0 {
		close(c.idle)
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// checkLocation invalidates the location and, unless a field is blank,
// starts a read_locations check for it.
func (c *Controller) checkLocation() {
	c.mu.Lock()
	c.gens[keyLocation]++
	gen := c.gens[keyLocation]
	loc := c.state.Location
	c.state.LocationValid = false
	c.state.LocationChecking = !blank(loc.Name) && !blank(loc.Region)
	start := c.state.LocationChecking
	c.mu.Unlock()
	c.changed()

	if !start {
		return
	}
	c.spawn(func(ctx context.Context) {
		locs, err := c.gw.ReadLocations(ctx, &loc.Name, &loc.Region)

		c.mu.Lock()
		if c.gens[keyLocation] != gen {
			c.mu.Unlock()
			logging.FormDebug("Discarding stale location check for %s", loc)
			return
		}
		c.state.LocationChecking = false
		c.state.LocationValid = err == nil && len(locs) > 0
		c.mu.Unlock()

		if err != nil {
			if ctx.Err() == nil {
				c.fail("Error Reading Locations", err)
			}
			return
		}
		c.changed()
	})
}

// checkTrainer invalidates a slot and starts the class and trainer reads for
// it. A blank class leaves both flags false and a blank name leaves the name
// flag false, without a round trip. Disabled slots are not checked.
func (c *Controller) checkTrainer(slot resolver.Slot) {
	k := slotKey(slot)

	c.mu.Lock()
	c.gens[k]++
	gen := c.gens[k]
	f := c.state.Trainer(slot)
	t := f.Trainer
	f.Validity = types.TrainerValidity{}
	f.Checking = f.Enabled && !blank(t.Class)
	start := f.Checking
	c.mu.Unlock()
	c.changed()

	if !start {
		return
	}
	c.spawn(func(ctx context.Context) {
		var validity types.TrainerValidity

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			classes, err := c.gw.ReadTrainerClasses(gctx, &t.Class)
			if err != nil {
				return &readError{title: "Error Reading Trainer Classes", err: err}
			}
			validity.Class = len(classes) > 0
			return nil
		})
		if !blank(t.Name) {
			g.Go(func() error {
				trainers, err := c.gw.ReadTrainers(gctx, &t.Name, &t.Class)
				if err != nil {
					return &readError{title: "Error Reading Trainers", err: err}
				}
				validity.Name = len(trainers) > 0
				return nil
			})
		}
		err := g.Wait()

		c.mu.Lock()
		if c.gens[k] != gen {
			c.mu.Unlock()
			logging.FormDebug("Discarding stale %s check for %s", slot, t)
			return
		}
		f := c.state.Trainer(slot)
		f.Checking = false
		if err == nil {
			f.Validity = validity
		}
		c.mu.Unlock()

		if err != nil {
			var re *readError
			if ctx.Err() == nil && errors.As(err, &re) {
				c.fail(re.title, re.err)
			}
			return
		}
		c.changed()
	})
}

// readError carries the dialog title for a failed background read.
type readError struct {
	title string
	err   error
}

func (e *readError) Error() string { return e.title + ": " + e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

// MarkLocationValid records that l now exists. It only applies while the
// form still holds l.
func (c *Controller) MarkLocationValid(l types.Location) {
	c.mu.Lock()
	if c.state.Location != l {
		c.mu.Unlock()
		return
	}
	c.gens[keyLocation]++
	c.state.LocationValid = true
	c.state.LocationChecking = false
	c.mu.Unlock()
	c.changed()
}

// MarkClassValid records that class now exists for slot.
func (c *Controller) MarkClassValid(slot resolver.Slot, class string) {
	c.mu.Lock()
	f := c.state.Trainer(slot)
	if f == nil || f.Trainer.Class != class {
		c.mu.Unlock()
		return
	}
	c.gens[slotKey(slot)]++
	f.Validity.Class = true
	f.Checking = false
	c.mu.Unlock()
	c.changed()
}

// MarkNameValid records that trainer t now exists for slot.
func (c *Controller) MarkNameValid(slot resolver.Slot, t types.Trainer) {
	c.mu.Lock()
	f := c.state.Trainer(slot)
	if f == nil || f.Trainer != t {
		c.mu.Unlock()
		return
	}
	c.gens[slotKey(slot)]++
	f.Validity = types.TrainerValidity{Class: true, Name: true}
	f.Checking = false
	c.mu.Unlock()
	c.changed()
}

// Submit runs the resolver over a snapshot of the form. On success the
// transient fields are reset; on failure the form is left as it was, apart
// from flags flipped by records created before the failure. Validity checks
// still running are waited for first.
func (c *Controller) Submit(ctx context.Context) (*resolver.Report, error) {
	c.mu.Lock()
	if c.state.Submitting {
		c.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	// Flags of a running check are still false; resolving against them
	// would prompt for records that exist.
	for c.inflight > 0 {
		idle := c.idle
		c.mu.Unlock()
		logging.FormDebug("Submit waiting for validity checks")
		select {
		case <-idle:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		c.mu.Lock()
		if c.state.Submitting {
			c.mu.Unlock()
			return nil, ErrSubmitInProgress
		}
	}
	c.state.Submitting = true
	sub := c.state.Submission()
	c.mu.Unlock()
	c.changed()

	timer := logging.StartTimer(logging.CategoryForm, "Submit")
	report, err := resolver.New(c.gw, c.prompt, c).Submit(ctx, sub)
	timer.Stop()

	c.mu.Lock()
	c.state.Submitting = false
	if err == nil {
		for _, k := range []key{keyOpponent1, keyOpponent2, keyPartner} {
			c.gens[k]++
		}
		c.state.reset()
	}
	c.mu.Unlock()
	c.changed()

	if err != nil {
		logging.FormError("Submit failed: %v", err)
		return report, err
	}
	logging.Form("Battle %d submitted", report.BattleNo)
	return report, nil
}

// Wait blocks until every in-flight check has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight checks and waits for them to exit.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}
