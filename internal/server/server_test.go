package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"battlelog/internal/backend"
	"battlelog/internal/gateway"
	"battlelog/internal/store"
	"battlelog/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, metrics bool) *httptest.Server {
	t.Helper()
	s, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "battlelog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	_, err = s.Seed(context.Background(), store.DefaultRegions, store.DefaultBattleTypes)
	require.NoError(t, err)

	srv := New(backend.NewHandler(s), Options{Metrics: metrics, Registry: prometheus.NewRegistry()})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestServer_EndToEndWithHTTPTransport(t *testing.T) {
	ts := newTestServer(t, false)
	c := gateway.NewClient(gateway.NewHTTPTransport(ts.URL, 2*time.Second))
	ctx := context.Background()

	require.NoError(t, c.CreateLocation(ctx, types.Location{Name: "Route 1", Region: "Kanto"}))
	require.NoError(t, c.CreateTrainerClass(ctx, "Youngster"))
	require.NoError(t, c.CreateTrainer(ctx, types.Trainer{Class: "Youngster", Name: "Joey"}))
	id, err := c.CreatePlaythrough(ctx, types.CreatePlaythroughParams{Name: "Run", Version: "Red"})
	require.NoError(t, err)

	no, err := c.CreateBattle(ctx, types.CreateBattleParams{
		PlaythroughIDNo: id,
		LocationName:    "Route 1",
		LocationRegion:  "Kanto",
		BattleType:      "Single",
		Opponent1Name:   "Joey",
		Opponent1Class:  "Youngster",
	})
	require.NoError(t, err)

	battles, err := c.ReadBattles(ctx, 0)
	require.NoError(t, err)
	require.Len(t, battles, 1)
	assert.Equal(t, no, battles[0].No)

	require.NoError(t, c.DeleteBattle(ctx, no))

	err = c.DeleteBattle(ctx, no)
	var gwErr *gateway.GatewayError
	require.True(t, errors.As(err, &gwErr), "got %v", err)
	assert.Equal(t, backend.CodeNotFound, gwErr.Code)
}

func TestServer_MalformedRequest(t *testing.T) {
	ts := newTestServer(t, false)

	resp, err := http.Post(ts.URL+gateway.InvokePath, "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body gateway.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Error)
	assert.Equal(t, backend.CodeParseError, body.Error.Code)
}

func TestServer_UnknownCommand(t *testing.T) {
	ts := newTestServer(t, false)

	resp, err := http.Post(ts.URL+gateway.InvokePath, "application/json",
		strings.NewReader(`{"id":7,"command":"drop_tables","params":{}}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body gateway.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(7), body.ID)
	require.NotNil(t, body.Error)
	assert.Equal(t, backend.CodeUnknownCommand, body.Error.Code)
}

func TestServer_HealthAndCommands(t *testing.T) {
	ts := newTestServer(t, false)

	require.NoError(t, gateway.NewHTTPTransport(ts.URL, time.Second).Ping(context.Background()))

	resp, err := http.Get(ts.URL + "/commands")
	require.NoError(t, err)
	defer resp.Body.Close()
	var commands []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&commands))
	assert.Contains(t, commands, types.CmdCreateBattle)

	resp2, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode, "metrics disabled")
}

func TestServer_Metrics(t *testing.T) {
	ts := newTestServer(t, true)
	c := gateway.NewClient(gateway.NewHTTPTransport(ts.URL, time.Second))
	_, err := c.ReadRegions(context.Background())
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `battlelog_server_commands_total{code="0",command="read_regions"} 1`)
}
