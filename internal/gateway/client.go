package gateway

import (
	"context"

	"battlelog/internal/logging"
	"battlelog/internal/types"
)

// The command set.
var (
	ReadBattles        = Command[types.ReadBattlesParams, []types.BattleRecord]{Name: types.CmdReadBattles}
	CreateBattle       = Command[types.CreateBattleParams, int64]{Name: types.CmdCreateBattle}
	DeleteBattle       = Command[types.DeleteBattleParams, Null]{Name: types.CmdDeleteBattle}
	ReadRegions        = Command[types.Empty, []string]{Name: types.CmdReadRegions}
	ReadLocations      = Command[types.ReadLocationsParams, []types.Location]{Name: types.CmdReadLocations}
	CreateLocation     = Command[types.LocationParams, int64]{Name: types.CmdCreateLocation}
	ReadTrainerClasses = Command[types.ReadTrainerClassesParams, []string]{Name: types.CmdReadTrainerClasses}
	CreateTrainerClass = Command[types.NameParams, Ignored]{Name: types.CmdCreateTrainerClass}
	ReadTrainers       = Command[types.ReadTrainersParams, []types.Trainer]{Name: types.CmdReadTrainers}
	CreateTrainer      = Command[types.TrainerParams, int64]{Name: types.CmdCreateTrainer}
	ReadPlaythroughs   = Command[types.Empty, []types.Playthrough]{Name: types.CmdReadPlaythroughs}
	CreatePlaythrough  = Command[types.CreatePlaythroughParams, string]{Name: types.CmdCreatePlaythrough}
	ReadBattleTypes    = Command[types.Empty, []string]{Name: types.CmdReadBattleTypes}
)

// Client exposes the command set as methods over one Invoker.
type Client struct {
	inv Invoker
}

// NewClient creates a client over inv.
func NewClient(inv Invoker) *Client {
	return &Client{inv: inv}
}

// ReadBattles returns battles newest first; howMany <= 0 means all.
func (c *Client) ReadBattles(ctx context.Context, howMany int) ([]types.BattleRecord, error) {
	var p types.ReadBattlesParams
	if howMany > 0 {
		p.HowMany = &howMany
	}
	return ReadBattles.Call(ctx, c.inv, p)
}

// CreateBattle submits a battle and returns its number.
func (c *Client) CreateBattle(ctx context.Context, p types.CreateBattleParams) (int64, error) {
	no, err := CreateBattle.Call(ctx, c.inv, p)
	if err != nil {
		return 0, err
	}
	logging.Gateway("Battle %d created", no)
	return no, nil
}

// DeleteBattle deletes battle no.
func (c *Client) DeleteBattle(ctx context.Context, no int64) error {
	if _, err := DeleteBattle.Call(ctx, c.inv, types.DeleteBattleParams{No: no}); err != nil {
		return err
	}
	logging.Gateway("Battle %d deleted", no)
	return nil
}

func (c *Client) ReadRegions(ctx context.Context) ([]string, error) {
	return ReadRegions.Call(ctx, c.inv, types.Empty{})
}

// ReadLocations lists locations; nil filters match anything.
func (c *Client) ReadLocations(ctx context.Context, name, region *string) ([]types.Location, error) {
	return ReadLocations.Call(ctx, c.inv, types.ReadLocationsParams{Name: name, Region: region})
}

func (c *Client) CreateLocation(ctx context.Context, l types.Location) error {
	_, err := CreateLocation.Call(ctx, c.inv, types.LocationParams{Name: l.Name, Region: l.Region})
	return err
}

// ReadTrainerClasses lists classes; a nil name matches every class.
func (c *Client) ReadTrainerClasses(ctx context.Context, name *string) ([]string, error) {
	return ReadTrainerClasses.Call(ctx, c.inv, types.ReadTrainerClassesParams{Name: name})
}

func (c *Client) CreateTrainerClass(ctx context.Context, name string) error {
	_, err := CreateTrainerClass.Call(ctx, c.inv, types.NameParams{Name: name})
	return err
}

// ReadTrainers lists trainers; nil filters match anything.
func (c *Client) ReadTrainers(ctx context.Context, name, class *string) ([]types.Trainer, error) {
	return ReadTrainers.Call(ctx, c.inv, types.ReadTrainersParams{Name: name, Class: class})
}

func (c *Client) CreateTrainer(ctx context.Context, t types.Trainer) error {
	_, err := CreateTrainer.Call(ctx, c.inv, types.TrainerParams{Name: t.Name, Class: t.Class})
	return err
}

func (c *Client) ReadPlaythroughs(ctx context.Context) ([]types.Playthrough, error) {
	return ReadPlaythroughs.Call(ctx, c.inv, types.Empty{})
}

// CreatePlaythrough creates a playthrough and returns its id.
func (c *Client) CreatePlaythrough(ctx context.Context, p types.CreatePlaythroughParams) (string, error) {
	return CreatePlaythrough.Call(ctx, c.inv, p)
}

func (c *Client) ReadBattleTypes(ctx context.Context) ([]string, error) {
	return ReadBattleTypes.Call(ctx, c.inv, types.Empty{})
}
