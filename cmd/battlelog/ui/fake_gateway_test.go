package ui

import (
	"context"
	"sync"

	"battlelog/internal/types"
)

// fakeGateway is an in-memory Gateway. Every record it is asked about exists
// unless listed in missing.
type fakeGateway struct {
	mu      sync.Mutex
	missing map[string]bool
	deleted []int64
	created []types.CreateBattleParams
	nextNo  int64
	err     error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{missing: map[string]bool{}, nextNo: 1}
}

func (g *fakeGateway) has(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.missing[key]
}

func (g *fakeGateway) ReadLocations(_ context.Context, name, region *string) ([]types.Location, error) {
	l := types.Location{Name: *name, Region: *region}
	if g.has("location:" + l.Name) {
		return []types.Location{l}, nil
	}
	return []types.Location{}, nil
}

func (g *fakeGateway) ReadTrainerClasses(_ context.Context, name *string) ([]string, error) {
	if g.has("class:" + *name) {
		return []string{*name}, nil
	}
	return []string{}, nil
}

func (g *fakeGateway) ReadTrainers(_ context.Context, name, class *string) ([]types.Trainer, error) {
	if g.has("trainer:" + *name) {
		return []types.Trainer{{Class: *class, Name: *name}}, nil
	}
	return []types.Trainer{}, nil
}

func (g *fakeGateway) ReadPlaythroughs(context.Context) ([]types.Playthrough, error) {
	return []types.Playthrough{{IDNo: "pt-1", Version: "Red"}}, nil
}

func (g *fakeGateway) ReadRegions(context.Context) ([]string, error) {
	return []string{"Johto", "Kanto"}, nil
}

func (g *fakeGateway) ReadBattleTypes(context.Context) ([]string, error) {
	return []string{"Single", "Double"}, nil
}

func (g *fakeGateway) ReadBattles(context.Context, int) ([]types.BattleRecord, error) {
	return []types.BattleRecord{}, nil
}

func (g *fakeGateway) CreateLocation(context.Context, types.Location) error { return nil }
func (g *fakeGateway) CreateTrainerClass(context.Context, string) error { return nil }
func (g *fakeGateway) CreateTrainer(context.Context, types.Trainer) error { return nil }

func (g *fakeGateway) CreateBattle(_ context.Context, p types.CreateBattleParams) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return 0, g.err
	}
	g.created = append(g.created, p)
	no := g.nextNo
	g.nextNo++
	return no, nil
}

func (g *fakeGateway) DeleteBattle(_ context.Context, no int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.deleted = append(g.deleted, no)
	return nil
}

// fakeSubscription counts Start and Stop calls.
type fakeSubscription struct {
	mu      sync.Mutex
	starts  int
	stops   int
	running bool
}

func (s *fakeSubscription) Start(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	s.running = true
}

func (s *fakeSubscription) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	s.running = false
}

func (s *fakeSubscription) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
