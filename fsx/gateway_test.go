package fsx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"

	"github.com/fsxlabs/fsx-sdk-go/fsx/session"
)

func jsonDecode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// newGateway spins up a fake gateway for one test. Routes are registered by
// the caller on the provided router.
func newGateway(t *testing.T, register func(router *httprouter.Router)) *httptest.Server {
	t.Helper()
	router := httprouter.New()
	register(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func newTestStore(t *testing.T) *session.SQLiteStore {
	t.Helper()
	store, err := session.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// newTestClient builds a client against the fake gateway with all view
// delays zeroed so scheduled events fire synchronously.
func newTestClient(t *testing.T, gatewayURL string) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.GatewayURL = gatewayURL
	cfg.NoticeTTL = 0
	cfg.SignInSwitchDelay = 0
	cfg.LoginRedirectDelay = 0
	cfg.ModalCloseDelay = 0
	return NewClientWithStore(cfg, newTestStore(t))
}
