package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"actually-colab-be/internal/dto"
	"actually-colab-be/pkg/protocol"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	env := newMemoryEnv(t)

	status, res := env.do(t, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, res.Success)
	assert.Contains(t, string(res.Data), `"memory"`)
}

func TestNotebookRoutesRequireToken(t *testing.T) {
	env := newMemoryEnv(t)

	status, _ := env.do(t, http.MethodGet, "/api/notebook/v1", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodGet, "/api/notebook/v1", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCreateAndListNotebooks(t *testing.T) {
	env := newMemoryEnv(t)
	alice := env.token(t, env.demo.Users[0].Id)

	status, res := env.do(t, http.MethodPost, "/api/notebook/v1", alice, `{"name":"scratch"}`)
	require.Equal(t, http.StatusCreated, status, res.Message)
	var created dto.CreateNotebookResponse
	require.NoError(t, json.Unmarshal(res.Data, &created))
	assert.NotEqual(t, uuid.Nil, created.Id)

	status, res = env.do(t, http.MethodGet, "/api/notebook/v1", alice, "")
	require.Equal(t, http.StatusOK, status)
	var listed []dto.GetAllNotebookResponse
	require.NoError(t, json.Unmarshal(res.Data, &listed))

	ids := map[uuid.UUID]bool{}
	for _, nb := range listed {
		ids[nb.Id] = true
	}
	assert.True(t, ids[created.Id])
	assert.True(t, ids[env.demo.NotebookId])

	// Bob only sees the shared demo notebook.
	bob := env.token(t, env.demo.Users[1].Id)
	status, res = env.do(t, http.MethodGet, "/api/notebook/v1", bob, "")
	require.Equal(t, http.StatusOK, status)
	listed = nil
	require.NoError(t, json.Unmarshal(res.Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, env.demo.NotebookId, listed[0].Id)
}

func TestCreateNotebookValidation(t *testing.T) {
	env := newMemoryEnv(t)
	alice := env.token(t, env.demo.Users[0].Id)

	status, _ := env.do(t, http.MethodPost, "/api/notebook/v1", alice, `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNotebookContents(t *testing.T) {
	env := newMemoryEnv(t)
	alice := env.token(t, env.demo.Users[0].Id)

	status, res := env.do(t, http.MethodGet, "/api/notebook/v1/"+env.demo.NotebookId.String()+"/contents", alice, "")
	require.Equal(t, http.StatusOK, status)
	var contents protocol.NotebookContents
	require.NoError(t, json.Unmarshal(res.Data, &contents))
	assert.Equal(t, env.demo.NotebookId, contents.NbId)
	assert.Len(t, contents.Cells, 2)
	assert.Len(t, contents.Users, 2)
	assert.Empty(t, contents.ConnectedUsers)

	status, _ = env.do(t, http.MethodGet, "/api/notebook/v1/not-a-uuid/contents", alice, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNotebookContentsForbiddenWithoutGrant(t *testing.T) {
	env := newMemoryEnv(t)
	alice := env.token(t, env.demo.Users[0].Id)
	bob := env.token(t, env.demo.Users[1].Id)

	status, res := env.do(t, http.MethodPost, "/api/notebook/v1", alice, `{"name":"private"}`)
	require.Equal(t, http.StatusCreated, status)
	var created dto.CreateNotebookResponse
	require.NoError(t, json.Unmarshal(res.Data, &created))

	status, _ = env.do(t, http.MethodGet, "/api/notebook/v1/"+created.Id.String()+"/contents", bob, "")
	assert.Equal(t, http.StatusForbidden, status)
}

func TestProfile(t *testing.T) {
	env := newMemoryEnv(t)
	alice := env.token(t, env.demo.Users[0].Id)

	status, res := env.do(t, http.MethodGet, "/api/user/v1/profile", alice, "")
	require.Equal(t, http.StatusOK, status)
	var profile dto.UserProfileResponse
	require.NoError(t, json.Unmarshal(res.Data, &profile))
	assert.Equal(t, "Alice", profile.Name)
	assert.Equal(t, 1, profile.NotebookCount)

	status, res = env.do(t, http.MethodPut, "/api/user/v1/profile", alice, `{"name":"Alice Liddell"}`)
	require.Equal(t, http.StatusOK, status, res.Message)
	require.NoError(t, json.Unmarshal(res.Data, &profile))
	assert.Equal(t, "Alice Liddell", profile.Name)

	status, _ = env.do(t, http.MethodPut, "/api/user/v1/profile", alice, `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodGet, "/api/user/v1/profile", env.token(t, uuid.New()), "")
	assert.Equal(t, http.StatusUnauthorized, status)
}
