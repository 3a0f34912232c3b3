package main

import (
	"context"
	"fmt"
	"sort"

	"battlelog/internal/backend"
	"battlelog/internal/config"
	"battlelog/internal/gateway"
	"battlelog/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// session is an open gateway plus whatever backs it.
type session struct {
	client   *gateway.Client
	registry *prometheus.Registry
	store    *store.Store // nil in http mode
}

// openSession connects to the backend selected by gateway.mode. In local mode
// the SQLite store is opened in-process.
func openSession(c *config.Config) (*session, error) {
	var inv gateway.Invoker
	s := &session{registry: prometheus.NewRegistry()}

	switch c.Gateway.Mode {
	case config.ModeHTTP:
		inv = gateway.NewHTTPTransport(c.Gateway.BaseURL, c.GetGatewayTimeout())
		logger.Debug("Using HTTP gateway", zap.String("url", c.Gateway.BaseURL))
	default:
		st, err := store.Open(c.Store.Driver, c.DatabasePath())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		s.store = st
		inv = gateway.NewLocalTransport(backend.NewHandler(st))
		logger.Debug("Using local gateway", zap.String("db", st.Path()), zap.String("driver", st.Driver()))
	}

	s.client = gateway.NewClient(gateway.Instrument(inv, gateway.NewMetrics(s.registry)))
	return s, nil
}

// Close logs the call counts at debug level and closes the store.
func (s *session) Close() error {
	if families, err := s.registry.Gather(); err == nil {
		for _, mf := range families {
			if mf.GetName() != "battlelog_gateway_calls_total" {
				continue
			}
			for _, m := range mf.GetMetric() {
				fields := []zap.Field{zap.Float64("count", m.GetCounter().GetValue())}
				for _, lp := range m.GetLabel() {
					fields = append(fields, zap.String(lp.GetName(), lp.GetValue()))
				}
				logger.Debug("Gateway calls", fields...)
			}
		}
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// commandContext returns a context bounded by --timeout.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
