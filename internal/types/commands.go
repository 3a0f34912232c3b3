package types

import "time"

// Command names understood by the backend.
const (
	CmdReadBattles        = "read_battles"
	CmdCreateBattle       = "create_battle"
	CmdDeleteBattle       = "delete_battle"
	CmdReadRegions        = "read_regions"
	CmdReadLocations      = "read_locations"
	CmdCreateLocation     = "create_location"
	CmdReadTrainerClasses = "read_trainer_classes"
	CmdCreateTrainerClass = "create_trainer_class"
	CmdReadTrainers       = "read_trainers"
	CmdCreateTrainer      = "create_trainer"
	CmdReadPlaythroughs   = "read_playthroughs"
	CmdCreatePlaythrough  = "create_playthrough"
	CmdReadBattleTypes    = "read_battle_types"
)

// Empty is the parameter object of commands that take none.
type Empty struct{}

// ReadBattlesParams limits read_battles to the newest HowMany rows when set.
type ReadBattlesParams struct {
	HowMany *int `json:"howMany,omitempty" validate:"omitempty,gt=0"`
}

// CreateBattleParams is the composite record submitted by create_battle.
type CreateBattleParams struct {
	PlaythroughIDNo string  `json:"playthroughIdNo" validate:"required"`
	LocationName    string  `json:"locationName" validate:"required"`
	LocationRegion  string  `json:"locationRegion" validate:"required"`
	BattleType      string  `json:"battleType" validate:"required"`
	Opponent1Name   string  `json:"opponent1Name" validate:"required"`
	Opponent1Class  string  `json:"opponent1Class" validate:"required"`
	Opponent2Name   *string `json:"opponent2Name,omitempty"`
	Opponent2Class  *string `json:"opponent2Class,omitempty" validate:"required_with=Opponent2Name"`
	PartnerName     *string `json:"partnerName,omitempty"`
	PartnerClass    *string `json:"partnerClass,omitempty" validate:"required_with=PartnerName"`
	Round           int     `json:"round" validate:"gte=0"`
	Lost            bool    `json:"lost"`
}

// DeleteBattleParams identifies a battle by its event number.
type DeleteBattleParams struct {
	No int64 `json:"no" validate:"gt=0"`
}

// ReadLocationsParams filters read_locations. A nil field matches anything;
// a set field matches exactly, including the empty string.
type ReadLocationsParams struct {
	Name   *string `json:"name,omitempty"`
	Region *string `json:"region,omitempty"`
}

// LocationParams is the parameter object of create_location.
type LocationParams struct {
	Name   string `json:"name" validate:"required"`
	Region string `json:"region" validate:"required"`
}

// ReadTrainerClassesParams filters read_trainer_classes by exact name.
type ReadTrainerClassesParams struct {
	Name *string `json:"name,omitempty"`
}

// NameParams is the parameter object of create_trainer_class.
type NameParams struct {
	Name string `json:"name" validate:"required"`
}

// ReadTrainersParams filters read_trainers by exact name and class.
type ReadTrainersParams struct {
	Name  *string `json:"name,omitempty"`
	Class *string `json:"class,omitempty"`
}

// TrainerParams is the parameter object of create_trainer.
type TrainerParams struct {
	Name  string `json:"name" validate:"required"`
	Class string `json:"class" validate:"required"`
}

// CreatePlaythroughParams is the parameter object of create_playthrough.
type CreatePlaythroughParams struct {
	Name             string    `json:"name" validate:"required"`
	Version          string    `json:"version" validate:"required"`
	AdventureStarted time.Time `json:"adventureStarted"`
}
