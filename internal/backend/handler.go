// Package backend implements the battlelog command set over a Store.
//
// Every command takes a JSON parameter object and returns a JSON-encodable
// result. The same Handler serves the in-process gateway transport and the
// HTTP server, so both see identical validation and error codes.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"battlelog/internal/logging"
	"battlelog/internal/store"
	"battlelog/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Error codes carried by CommandError. They follow JSON-RPC where a matching
// code exists.
const (
	CodeParseError       = -32700
	CodeUnknownCommand   = -32601
	CodeInvalidParams    = -32602
	CodeInternal         = -32603
	CodeNotFound         = -32004
	CodeConflict         = -32009
	CodeMissingReference = -32010
)

// CommandError is a failure reported by a command.
type CommandError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command error %d: %s", e.Code, e.Message)
}

// Store is the subset of *store.Store the handler uses.
type Store interface {
	Battles(ctx context.Context, howMany int) ([]types.BattleRecord, error)
	CreateBattle(ctx context.Context, p types.CreateBattleParams) (int64, error)
	DeleteBattle(ctx context.Context, no int64) error
	Regions(ctx context.Context) ([]string, error)
	Locations(ctx context.Context, name, region *string) ([]types.Location, error)
	CreateLocation(ctx context.Context, l types.Location) (int64, error)
	TrainerClasses(ctx context.Context, name *string) ([]string, error)
	CreateTrainerClass(ctx context.Context, name string) error
	Trainers(ctx context.Context, name, class *string) ([]types.Trainer, error)
	CreateTrainer(ctx context.Context, t types.Trainer) (int64, error)
	Playthroughs(ctx context.Context) ([]types.Playthrough, error)
	CreatePlaythrough(ctx context.Context, p types.Playthrough) error
	BattleTypes(ctx context.Context) ([]string, error)
}

type commandFunc func(ctx context.Context, raw json.RawMessage) (interface{}, error)

// Handler dispatches named commands to the store.
type Handler struct {
	store    Store
	validate *validator.Validate
	commands map[string]commandFunc
	now      func() time.Time
	newID    func() string
}

// NewHandler creates a handler over s.
func NewHandler(s Store) *Handler {
	h := &Handler{
		store:    s,
		validate: validator.New(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	h.commands = map[string]commandFunc{
		types.CmdReadBattles:        bind(h, h.readBattles),
		types.CmdCreateBattle:       bind(h, h.createBattle),
		types.CmdDeleteBattle:       bind(h, h.deleteBattle),
		types.CmdReadRegions:        bind(h, h.readRegions),
		types.CmdReadLocations:      bind(h, h.readLocations),
		types.CmdCreateLocation:     bind(h, h.createLocation),
		types.CmdReadTrainerClasses: bind(h, h.readTrainerClasses),
		types.CmdCreateTrainerClass: bind(h, h.createTrainerClass),
		types.CmdReadTrainers:       bind(h, h.readTrainers),
		types.CmdCreateTrainer:      bind(h, h.createTrainer),
		types.CmdReadPlaythroughs:   bind(h, h.readPlaythroughs),
		types.CmdCreatePlaythrough:  bind(h, h.createPlaythrough),
		types.CmdReadBattleTypes:    bind(h, h.readBattleTypes),
	}
	return h
}

// Commands returns the sorted names of every supported command.
func (h *Handler) Commands() []string {
	names := make([]string, 0, len(h.commands))
	for name := range h.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs command with its raw JSON parameters. Failures are always
// returned as *CommandError.
func (h *Handler) Dispatch(ctx context.Context, command string, raw json.RawMessage) (interface{}, error) {
	timer := logging.StartTimer(logging.CategoryBackend, command)
	defer timer.StopWithThreshold(500 * time.Millisecond)

	fn, ok := h.commands[command]
	if !ok {
		logging.BackendWarn("Unknown command: %s", command)
		return nil, &CommandError{Code: CodeUnknownCommand, Message: fmt.Sprintf("unknown command %q", command)}
	}

	logging.BackendDebug("Dispatching %s params=%s", command, string(raw))
	result, err := fn(ctx, raw)
	if err != nil {
		cerr := toCommandError(err)
		logging.BackendWarn("%s failed: %s", command, cerr.Message)
		return nil, cerr
	}
	return result, nil
}

// bind decodes and validates the parameter object before calling fn.
func bind[P any](h *Handler, fn func(context.Context, P) (interface{}, error)) commandFunc {
	return func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var params P
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &params); err != nil {
				return nil, &CommandError{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
			}
		}
		if err := h.validate.Struct(params); err != nil {
			return nil, &CommandError{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
		}
		return fn(ctx, params)
	}
}

func toCommandError(err error) *CommandError {
	var cerr *CommandError
	if errors.As(err, &cerr) {
		return cerr
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &CommandError{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, store.ErrAlreadyExists):
		return &CommandError{Code: CodeConflict, Message: err.Error()}
	case errors.Is(err, store.ErrMissingReference):
		return &CommandError{Code: CodeMissingReference, Message: err.Error()}
	}
	return &CommandError{Code: CodeInternal, Message: err.Error()}
}

func (h *Handler) readBattles(ctx context.Context, p types.ReadBattlesParams) (interface{}, error) {
	howMany := 0
	if p.HowMany != nil {
		howMany = *p.HowMany
	}
	return h.store.Battles(ctx, howMany)
}

func (h *Handler) createBattle(ctx context.Context, p types.CreateBattleParams) (interface{}, error) {
	no, err := h.store.CreateBattle(ctx, p)
	if err != nil {
		return nil, err
	}
	logging.Backend("Stored battle %d against %s %s", no, p.Opponent1Class, p.Opponent1Name)
	return no, nil
}

func (h *Handler) deleteBattle(ctx context.Context, p types.DeleteBattleParams) (interface{}, error) {
	if err := h.store.DeleteBattle(ctx, p.No); err != nil {
		return nil, err
	}
	logging.Backend("Deleted battle %d", p.No)
	return nil, nil
}

func (h *Handler) readRegions(ctx context.Context, _ types.Empty) (interface{}, error) {
	return h.store.Regions(ctx)
}

func (h *Handler) readLocations(ctx context.Context, p types.ReadLocationsParams) (interface{}, error) {
	return h.store.Locations(ctx, p.Name, p.Region)
}

func (h *Handler) createLocation(ctx context.Context, p types.LocationParams) (interface{}, error) {
	return h.store.CreateLocation(ctx, types.Location{Name: p.Name, Region: p.Region})
}

func (h *Handler) readTrainerClasses(ctx context.Context, p types.ReadTrainerClassesParams) (interface{}, error) {
	return h.store.TrainerClasses(ctx, p.Name)
}

func (h *Handler) createTrainerClass(ctx context.Context, p types.NameParams) (interface{}, error) {
	return nil, h.store.CreateTrainerClass(ctx, p.Name)
}

func (h *Handler) readTrainers(ctx context.Context, p types.ReadTrainersParams) (interface{}, error) {
	return h.store.Trainers(ctx, p.Name, p.Class)
}

func (h *Handler) createTrainer(ctx context.Context, p types.TrainerParams) (interface{}, error) {
	return h.store.CreateTrainer(ctx, types.Trainer{Name: p.Name, Class: p.Class})
}

func (h *Handler) readPlaythroughs(ctx context.Context, _ types.Empty) (interface{}, error) {
	return h.store.Playthroughs(ctx)
}

func (h *Handler) createPlaythrough(ctx context.Context, p types.CreatePlaythroughParams) (interface{}, error) {
	started := p.AdventureStarted
	if started.IsZero() {
		started = h.now()
	}
	pt := types.Playthrough{
		IDNo:             h.newID(),
		Name:             p.Name,
		Version:          p.Version,
		AdventureStarted: started,
	}
	if err := h.store.CreatePlaythrough(ctx, pt); err != nil {
		return nil, err
	}
	return pt.IDNo, nil
}

func (h *Handler) readBattleTypes(ctx context.Context, _ types.Empty) (interface{}, error) {
	return h.store.BattleTypes(ctx)
}
