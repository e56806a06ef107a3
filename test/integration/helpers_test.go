package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"actually-colab-be/internal/bootstrap"
	"actually-colab-be/internal/config"
	"actually-colab-be/internal/pkg/serverutils"
	"actually-colab-be/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "integration-secret"

type testEnv struct {
	cfg       *config.Config
	container *bootstrap.Container
	app       *fiber.App
	demo      *bootstrap.DemoData
}

// newMemoryEnv boots the whole stack on the in-memory store with no NATS or Redis.
func newMemoryEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("NATS_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("GO_ENV", "test")
	t.Setenv("LOG_FILE_PATH", filepath.Join(dir, "app.log"))
	t.Setenv("SOCKET_LOG_FILE_PATH", filepath.Join(dir, "socket.log"))
	t.Setenv("DISCONNECT_RETRY_WAIT", "20ms")

	cfg := config.Load()
	container := bootstrap.NewContainer(nil, cfg)
	t.Cleanup(container.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, container.Start(ctx))

	demo, err := bootstrap.SeedDemo(ctx, container.RepositoryFactory, "Alice", "Bob")
	require.NoError(t, err)

	return &testEnv{
		cfg:       cfg,
		container: container,
		app:       server.New(cfg, container).GetApp(),
		demo:      demo,
	}
}

func (e *testEnv) token(t *testing.T, userId uuid.UUID) string {
	t.Helper()
	token, err := serverutils.IssueToken(testSecret, userId, time.Hour)
	require.NoError(t, err)
	return token
}

type apiResponse struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}
