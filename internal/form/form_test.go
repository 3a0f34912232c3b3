package form

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"battlelog/internal/resolver"
	"battlelog/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeGateway answers reads from in-memory sets. A class listed in gates
// blocks its read until the gate is closed.
type fakeGateway struct {
	mu        sync.Mutex
	classes   map[string]bool
	trainers  map[types.Trainer]bool
	locations map[types.Location]bool
	gates     map[string]chan struct{}
	entered   chan string
	readErr   error
	battleErr error
	reads     []string
	creates   []string

	playthroughs []types.Playthrough
	regions      []string
	battleTypes  []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		classes:   map[string]bool{"Youngster": true},
		trainers:  map[types.Trainer]bool{{Class: "Youngster", Name: "Joey"}: true},
		locations: map[types.Location]bool{{Name: "Route 1", Region: "Kanto"}: true},
		gates:     map[string]chan struct{}{},
		entered:   make(chan string, 8),
	}
}

func (g *fakeGateway) record(list *[]string, s string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	*list = append(*list, s)
}

func (g *fakeGateway) snapshot() (reads, creates []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.reads...), append([]string(nil), g.creates...)
}

func (g *fakeGateway) ReadLocations(_ context.Context, name, region *string) ([]types.Location, error) {
	g.record(&g.reads, "read_locations")
	g.mu.Lock()
	defer g.mu.Unlock()
	l := types.Location{Name: *name, Region: *region}
	if g.locations[l] {
		return []types.Location{l}, nil
	}
	return []types.Location{}, nil
}

func (g *fakeGateway) ReadTrainerClasses(ctx context.Context, name *string) ([]string, error) {
	g.record(&g.reads, "read_trainer_classes:"+*name)
	g.mu.Lock()
	gate := g.gates[*name]
	err := g.readErr
	g.mu.Unlock()

	if gate != nil {
		g.entered <- *name
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.classes[*name] {
		return []string{*name}, nil
	}
	return []string{}, nil
}

func (g *fakeGateway) ReadTrainers(_ context.Context, name, class *string) ([]types.Trainer, error) {
	g.record(&g.reads, "read_trainers:"+*class+" "+*name)
	g.mu.Lock()
	defer g.mu.Unlock()
	t := types.Trainer{Class: *class, Name: *name}
	if g.trainers[t] {
		return []types.Trainer{t}, nil
	}
	return []types.Trainer{}, nil
}

func (g *fakeGateway) ReadPlaythroughs(context.Context) ([]types.Playthrough, error) {
	return g.playthroughs, nil
}

func (g *fakeGateway) ReadRegions(context.Context) ([]string, error) {
	return g.regions, nil
}

func (g *fakeGateway) ReadBattleTypes(context.Context) ([]string, error) {
	return g.battleTypes, nil
}

func (g *fakeGateway) CreateLocation(_ context.Context, l types.Location) error {
	g.record(&g.creates, "create_location")
	g.mu.Lock()
	defer g.mu.Unlock()
	g.locations[l] = true
	return nil
}

func (g *fakeGateway) CreateTrainerClass(_ context.Context, name string) error {
	g.record(&g.creates, "create_trainer_class")
	g.mu.Lock()
	defer g.mu.Unlock()
	g.classes[name] = true
	return nil
}

func (g *fakeGateway) CreateTrainer(_ context.Context, t types.Trainer) error {
	g.record(&g.creates, "create_trainer")
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trainers[t] = true
	return nil
}

func (g *fakeGateway) CreateBattle(context.Context, types.CreateBattleParams) (int64, error) {
	g.record(&g.creates, "create_battle")
	if g.battleErr != nil {
		return 0, g.battleErr
	}
	return 7, nil
}

type errorSink struct {
	mu     sync.Mutex
	titles []string
}

func (s *errorSink) hook(title string, _ error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = append(s.titles, title)
}

func (s *errorSink) get() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.titles...)
}

func newController(t *testing.T, gw *fakeGateway) *Controller {
	t.Helper()
	c := New(gw, resolver.AutoConfirm{}, Hooks{})
	t.Cleanup(c.Close)
	return c
}

func TestTrainerCheck(t *testing.T) {
	gw := newFakeGateway()
	c := newController(t, gw)

	c.SetTrainer(resolver.SlotOpponent1, types.Trainer{Class: "Youngster", Name: "Joey"})
	c.Wait()
	s := c.Snapshot()
	assert.Equal(t, types.TrainerValidity{Class: true, Name: true}, s.Opponent1.Validity)
	assert.False(t, s.Opponent1.Checking)

	c.SetTrainerName(resolver.SlotOpponent1, "Ben")
	c.Wait()
	assert.Equal(t, types.TrainerValidity{Class: true}, c.Snapshot().Opponent1.Validity)

	c.SetTrainerClass(resolver.SlotOpponent1, "Lass")
	c.Wait()
	assert.Equal(t, types.TrainerValidity{}, c.Snapshot().Opponent1.Validity)
}

func TestBlankValuesSkipRoundTrip(t *testing.T) {
	gw := newFakeGateway()
	c := newController(t, gw)

	c.SetTrainerName(resolver.SlotOpponent1, "Joey")
	c.SetLocationName("Route 1")
	c.Wait()

	reads, _ := gw.snapshot()
	assert.Empty(t, reads, "blank class and region need no read")
	s := c.Snapshot()
	assert.False(t, s.Opponent1.Validity.Class)
	assert.False(t, s.Opponent1.Validity.Name)
	assert.False(t, s.LocationValid)
}

func TestBlankNameChecksClassOnly(t *testing.T) {
	gw := newFakeGateway()
	c := newController(t, gw)

	c.SetTrainerClass(resolver.SlotOpponent1, "Youngster")
	c.Wait()

	reads, _ := gw.snapshot()
	assert.Equal(t, []string{"read_trainer_classes:Youngster"}, reads)
	assert.Equal(t, types.TrainerValidity{Class: true}, c.Snapshot().Opponent1.Validity)
}

func TestDisabledSlotNotChecked(t *testing.T) {
	gw := newFakeGateway()
	c := newController(t, gw)

	c.SetTrainer(resolver.SlotPartner, types.Trainer{Class: "Youngster", Name: "Joey"})
	c.Wait()
	reads, _ := gw.snapshot()
	assert.Empty(t, reads)

	c.SetEnabled(resolver.SlotPartner, true)
	c.Wait()
	s := c.Snapshot()
	assert.True(t, s.Partner.Enabled)
	assert.True(t, s.Partner.Validity.Valid())
}

func TestLocationCheck(t *testing.T) {
	gw := newFakeGateway()
	c := newController(t, gw)

	c.SetLocation(types.Location{Name: "Route 1", Region: "Kanto"})
	c.Wait()
	assert.True(t, c.Snapshot().LocationValid)

	c.SetLocationRegion("Johto")
	c.Wait()
	assert.False(t, c.Snapshot().LocationValid)
}

func TestStaleResponseDiscarded(t *testing.T) {
	gw := newFakeGateway()
	gate := make(chan struct{})
	gw.gates["Youngster"] = gate
	c := newController(t, gw)

	c.SetTrainerClass(resolver.SlotOpponent1, "Youngster")
	require.Equal(t, "Youngster", <-gw.entered)

	// The newer value resolves first, then the old read comes back "valid".
	c.SetTrainerClass(resolver.SlotOpponent1, "Lass")
	close(gate)
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, "Lass", s.Opponent1.Trainer.Class)
	assert.False(t, s.Opponent1.Validity.Class, "stale result for Youngster must not apply")
	assert.False(t, s.Opponent1.Checking)
}

func TestCheckErrorReported(t *testing.T) {
	gw := newFakeGateway()
	gw.readErr = errors.New("backend unavailable")
	sink := &errorSink{}
	c := New(gw, resolver.AutoConfirm{}, Hooks{OnError: sink.hook})
	defer c.Close()

	c.SetTrainerClass(resolver.SlotOpponent1, "Youngster")
	c.Wait()

	assert.Equal(t, []string{"Error Reading Trainer Classes"}, sink.get())
	s := c.Snapshot()
	assert.False(t, s.Opponent1.Validity.Class)
	assert.False(t, s.Opponent1.Checking)
}

func TestCloseCancelsInFlightCheck(t *testing.T) {
	gw := newFakeGateway()
	gw.gates["Youngster"] = make(chan struct{})
	sink := &errorSink{}
	c := New(gw, resolver.AutoConfirm{}, Hooks{OnError: sink.hook})

	c.SetTrainerClass(resolver.SlotOpponent1, "Youngster")
	<-gw.entered
	c.Close()

	assert.Empty(t, sink.get(), "cancellation is not an error")
}

func TestLoadOptions(t *testing.T) {
	gw := newFakeGateway()
	gw.playthroughs = []types.Playthrough{
		{IDNo: "pt-2", Version: "Crystal"},
		{IDNo: "pt-1", Version: "Red"},
	}
	gw.regions = []string{"Kanto", "Johto", "Hoenn"}
	gw.battleTypes = []string{"Double", "Single"}
	c := newController(t, gw)

	require.NoError(t, c.LoadOptions(context.Background()))
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, "pt-2", s.PlaythroughIDNo)
	assert.Equal(t, []string{"Hoenn", "Johto", "Kanto"}, s.Options.Regions)
	assert.Equal(t, "Hoenn", s.Location.Region)
	assert.Equal(t, "Double", s.BattleType)
}

func fillJoey(c *Controller) {
	c.SetPlaythrough("pt-1")
	c.SetLocation(types.Location{Name: "Route 1", Region: "Kanto"})
	c.SetBattleType("Double")
	c.SetTrainer(resolver.SlotOpponent1, types.Trainer{Class: "Youngster", Name: "Joey"})
	c.SetEnabled(resolver.SlotOpponent2, true)
	c.SetTrainer(resolver.SlotOpponent2, types.Trainer{Class: "Youngster", Name: "Joey"})
	c.SetRound(3)
	c.SetLost(true)
	c.Wait()
}

func TestSubmit_ResetsAfterSuccess(t *testing.T) {
	gw := newFakeGateway()
	c := newController(t, gw)
	fillJoey(c)

	report, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), report.BattleNo)

	_, creates := gw.snapshot()
	assert.Equal(t, []string{"create_battle"}, creates)

	s := c.Snapshot()
	assert.Equal(t, TrainerField{Enabled: true}, s.Opponent1)
	assert.Equal(t, TrainerField{}, s.Opponent2)
	assert.Equal(t, TrainerField{}, s.Partner)
	assert.False(t, s.Lost)
	assert.Equal(t, DefaultBattleType, s.BattleType)
	assert.Equal(t, 3, s.Round, "round is kept")
	assert.Equal(t, "Route 1", s.Location.Name, "location is kept")
	assert.Equal(t, "pt-1", s.PlaythroughIDNo)
	assert.False(t, s.Submitting)
}

func TestSubmit_FailureKeepsStateAndCreatedFlags(t *testing.T) {
	gw := newFakeGateway()
	gw.battleErr = errors.New("disk full")
	c := newController(t, gw)
	fillJoey(c)
	c.SetTrainer(resolver.SlotOpponent1, types.Trainer{Class: "Lass", Name: "Janice"})
	c.Wait()
	require.False(t, c.Snapshot().Opponent1.Validity.Class)

	_, err := c.Submit(context.Background())
	assert.EqualError(t, err, "disk full")

	_, creates := gw.snapshot()
	assert.Equal(t, []string{"create_trainer_class", "create_trainer", "create_battle"}, creates)

	s := c.Snapshot()
	assert.Equal(t, types.Trainer{Class: "Lass", Name: "Janice"}, s.Opponent1.Trainer)
	assert.Equal(t, types.TrainerValidity{Class: true, Name: true}, s.Opponent1.Validity, "created records stay marked")
	assert.True(t, s.Lost)
	assert.True(t, s.Opponent2.Enabled)
}

func TestSubmit_Declined(t *testing.T) {
	gw := newFakeGateway()
	c := New(gw, resolver.PrompterFunc(func(context.Context, string, string) (bool, error) {
		return false, nil
	}), Hooks{})
	defer c.Close()
	fillJoey(c)
	c.SetLocationName("Route 2")
	c.Wait()

	_, err := c.Submit(context.Background())
	var cancelled *resolver.UserCancelledError
	require.ErrorAs(t, err, &cancelled)

	_, creates := gw.snapshot()
	assert.Empty(t, creates)
	assert.Equal(t, "Route 2", c.Snapshot().Location.Name)
}

func TestSubmit_InProgress(t *testing.T) {
	gw := newFakeGateway()
	asked := make(chan struct{})
	release := make(chan struct{})
	c := New(gw, resolver.PrompterFunc(func(context.Context, string, string) (bool, error) {
		close(asked)
		<-release
		return true, nil
	}), Hooks{})
	defer c.Close()
	fillJoey(c)
	c.SetLocationName("Route 2")
	c.Wait()

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()

	select {
	case <-asked:
	case <-time.After(5 * time.Second):
		t.Fatal("prompt never shown")
	}
	assert.True(t, c.Snapshot().Submitting)
	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, c.Snapshot().Submitting)
}

func TestSubmit_WaitsForRunningChecks(t *testing.T) {
	gw := newFakeGateway()
	gate := make(chan struct{})
	gw.gates["Youngster"] = gate

	var (
		mu      sync.Mutex
		prompts []string
	)
	c := New(gw, resolver.PrompterFunc(func(_ context.Context, title, _ string) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		prompts = append(prompts, title)
		return true, nil
	}), Hooks{})
	defer c.Close()

	c.SetPlaythrough("pt-1")
	c.SetLocation(types.Location{Name: "Route 1", Region: "Kanto"})
	c.SetBattleType("Single")
	c.SetTrainer(resolver.SlotOpponent1, types.Trainer{Class: "Youngster", Name: "Joey"})

	select {
	case <-gw.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("class check never started")
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("submit finished before the check: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	require.NoError(t, <-done)

	mu.Lock()
	assert.Empty(t, prompts, "existing records must not be offered for creation")
	mu.Unlock()
	_, creates := gw.snapshot()
	assert.Equal(t, []string{"create_battle"}, creates)
}

func TestSubmit_WaitHonoursContext(t *testing.T) {
	gw := newFakeGateway()
	gate := make(chan struct{})
	gw.gates["Youngster"] = gate
	c := newController(t, gw)

	c.SetTrainer(resolver.SlotOpponent1, types.Trainer{Class: "Youngster", Name: "Joey"})
	<-gw.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Submit(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, c.Snapshot().Submitting)

	close(gate)
}

func TestMarkIgnoresChangedValue(t *testing.T) {
	gw := newFakeGateway()
	c := newController(t, gw)
	c.SetTrainer(resolver.SlotOpponent1, types.Trainer{Class: "Lass", Name: "Janice"})
	c.Wait()

	c.MarkClassValid(resolver.SlotOpponent1, "Youngster")
	c.MarkLocationValid(types.Location{Name: "Route 1", Region: "Kanto"})
	s := c.Snapshot()
	assert.False(t, s.Opponent1.Validity.Class)
	assert.False(t, s.LocationValid)

	c.MarkNameValid(resolver.SlotOpponent1, types.Trainer{Class: "Lass", Name: "Janice"})
	assert.True(t, c.Snapshot().Opponent1.Validity.Valid())
}

func TestOnChangeCalled(t *testing.T) {
	gw := newFakeGateway()
	var mu sync.Mutex
	var last State
	c := New(gw, resolver.AutoConfirm{}, Hooks{OnChange: func(s State) {
		mu.Lock()
		defer mu.Unlock()
		last = s
	}})
	defer c.Close()

	c.SetRound(4)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 4, last.Round)
}

func TestSubmissionLeavesOutDisabledSlots(t *testing.T) {
	s := State{
		Opponent1: TrainerField{Enabled: true, Trainer: types.Trainer{Class: "Youngster", Name: "Joey"}},
		Opponent2: TrainerField{Trainer: types.Trainer{Class: "Lass", Name: "Janice"}},
		Partner:   TrainerField{Enabled: true, Trainer: types.Trainer{Class: "Rival", Name: "Blue"}},
	}
	sub := s.Submission()
	assert.Nil(t, sub.Opponent2)
	require.NotNil(t, sub.Partner)
	assert.Equal(t, resolver.SlotPartner, sub.Partner.Slot)
	assert.Equal(t, "Rival", sub.Partner.Trainer.Class)
}
