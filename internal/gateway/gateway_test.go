package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"battlelog/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// canned returns an Invoker that always answers with raw.
func canned(raw string) Invoker {
	return InvokerFunc(func(context.Context, string, interface{}) (json.RawMessage, error) {
		return json.RawMessage(raw), nil
	})
}

func TestCall_DecodesResult(t *testing.T) {
	raw := `[{"no":3,"battle_type":"Single","lost":false,"opponent1_class":"Youngster","opponent1_name":"Joey",
		"opponent2_class":null,"opponent2_name":null,"partner_class":null,"partner_name":null,"round":1,
		"event":{"no":3,"playthrough_id_no":"pt-1","location_name":"Route 1","location_region":"Kanto"}}]`

	got, err := ReadBattles.Call(context.Background(), canned(raw), types.ReadBattlesParams{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Youngster Joey", got[0].Battle().Title())
	assert.Equal(t, "Kanto", got[0].Event.LocationRegion)
}

func TestCall_FalseAndZeroAreValid(t *testing.T) {
	raw := `[{"no":1,"battle_type":"Single","lost":false,"opponent1_class":"A","opponent1_name":"B","round":0,
		"event":{"no":1,"playthrough_id_no":"p","location_name":"l","location_region":"r"}}]`

	got, err := ReadBattles.Call(context.Background(), canned(raw), types.ReadBattlesParams{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	b := got[0].Battle()
	assert.False(t, b.Lost)
	assert.Equal(t, 0, b.Round)
}

func TestCall_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		call func(Invoker) error
		raw  string
	}{
		{
			name: "missing required field",
			raw:  `[{"no":1,"battle_type":"","opponent1_class":"A","opponent1_name":"B","round":0,"event":{"no":1,"playthrough_id_no":"p","location_name":"l","location_region":"r"}}]`,
			call: func(inv Invoker) error {
				_, err := ReadBattles.Call(context.Background(), inv, types.ReadBattlesParams{})
				return err
			},
		},
		{
			name: "nested event invalid",
			raw:  `[{"no":1,"battle_type":"Single","opponent1_class":"A","opponent1_name":"B","round":0,"event":{"no":0}}]`,
			call: func(inv Invoker) error {
				_, err := ReadBattles.Call(context.Background(), inv, types.ReadBattlesParams{})
				return err
			},
		},
		{
			name: "missing lost",
			raw:  `[{"no":1,"battle_type":"Single","opponent1_class":"A","opponent1_name":"B","round":0,"event":{"no":1,"playthrough_id_no":"p","location_name":"l","location_region":"r"}}]`,
			call: func(inv Invoker) error {
				_, err := ReadBattles.Call(context.Background(), inv, types.ReadBattlesParams{})
				return err
			},
		},
		{
			name: "missing round",
			raw:  `[{"no":1,"battle_type":"Single","lost":true,"opponent1_class":"A","opponent1_name":"B","event":{"no":1,"playthrough_id_no":"p","location_name":"l","location_region":"r"}}]`,
			call: func(inv Invoker) error {
				_, err := ReadBattles.Call(context.Background(), inv, types.ReadBattlesParams{})
				return err
			},
		},
		{
			name: "null round",
			raw:  `[{"no":1,"battle_type":"Single","lost":false,"opponent1_class":"A","opponent1_name":"B","round":null,"event":{"no":1,"playthrough_id_no":"p","location_name":"l","location_region":"r"}}]`,
			call: func(inv Invoker) error {
				_, err := ReadBattles.Call(context.Background(), inv, types.ReadBattlesParams{})
				return err
			},
		},
		{
			name: "negative round",
			raw:  `[{"no":1,"battle_type":"Single","lost":false,"opponent1_class":"A","opponent1_name":"B","round":-1,"event":{"no":1,"playthrough_id_no":"p","location_name":"l","location_region":"r"}}]`,
			call: func(inv Invoker) error {
				_, err := ReadBattles.Call(context.Background(), inv, types.ReadBattlesParams{})
				return err
			},
		},
		{
			name: "null where array expected",
			raw:  `null`,
			call: func(inv Invoker) error {
				_, err := ReadRegions.Call(context.Background(), inv, types.Empty{})
				return err
			},
		},
		{
			name: "wrong element type",
			raw:  `[1, 2]`,
			call: func(inv Invoker) error {
				_, err := ReadTrainerClasses.Call(context.Background(), inv, types.ReadTrainerClassesParams{})
				return err
			},
		},
		{
			name: "blank name in list",
			raw:  `["Youngster", ""]`,
			call: func(inv Invoker) error {
				_, err := ReadTrainerClasses.Call(context.Background(), inv, types.ReadTrainerClassesParams{})
				return err
			},
		},
		{
			name: "number expected",
			raw:  `"seven"`,
			call: func(inv Invoker) error {
				_, err := CreateBattle.Call(context.Background(), inv, types.CreateBattleParams{})
				return err
			},
		},
		{
			name: "null expected",
			raw:  `{}`,
			call: func(inv Invoker) error {
				_, err := DeleteBattle.Call(context.Background(), inv, types.DeleteBattleParams{No: 1})
				return err
			},
		},
		{
			name: "null number",
			raw:  `null`,
			call: func(inv Invoker) error {
				_, err := CreateTrainer.Call(context.Background(), inv, types.TrainerParams{})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(canned(tt.raw))
			var schemaErr *SchemaValidationError
			require.True(t, errors.As(err, &schemaErr), "expected SchemaValidationError, got %v", err)
			assert.NotEmpty(t, schemaErr.Command)
		})
	}
}

func TestCall_NullAndIgnoredResults(t *testing.T) {
	_, err := DeleteBattle.Call(context.Background(), canned("null"), types.DeleteBattleParams{No: 1})
	assert.NoError(t, err)

	_, err = CreateTrainerClass.Call(context.Background(), canned(`{"anything": true}`), types.NameParams{Name: "Lass"})
	assert.NoError(t, err)

	_, err = CreateTrainerClass.Call(context.Background(), canned(""), types.NameParams{Name: "Lass"})
	assert.NoError(t, err)
}

func TestCall_PropagatesGatewayError(t *testing.T) {
	want := &GatewayError{Command: types.CmdReadRegions, Code: -32603, Message: "boom"}
	inv := InvokerFunc(func(context.Context, string, interface{}) (json.RawMessage, error) {
		return nil, want
	})

	_, err := ReadRegions.Call(context.Background(), inv, types.Empty{})
	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Same(t, want, gwErr)
}

func TestClient_SendsParams(t *testing.T) {
	var gotCommand string
	var gotParams interface{}
	inv := InvokerFunc(func(_ context.Context, command string, params interface{}) (json.RawMessage, error) {
		gotCommand, gotParams = command, params
		return json.RawMessage(`[]`), nil
	})
	c := NewClient(inv)

	_, err := c.ReadBattles(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, types.CmdReadBattles, gotCommand)
	assert.Nil(t, gotParams.(types.ReadBattlesParams).HowMany)

	_, err = c.ReadBattles(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 10, *gotParams.(types.ReadBattlesParams).HowMany)

	_, err = c.ReadTrainers(context.Background(), types.StringPtr("Joey"), types.StringPtr("Youngster"))
	require.NoError(t, err)
	assert.Equal(t, types.CmdReadTrainers, gotCommand)
	encoded, err := json.Marshal(gotParams)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Joey","class":"Youngster"}`, string(encoded))
}

func TestGatewayError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&GatewayError{Command: "read_battles", Code: CodeTransport, Message: "request failed", Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "read_battles")
}
