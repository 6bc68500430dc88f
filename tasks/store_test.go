package tasks_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-todo-client/api"
	"github.com/jrsteele09/go-todo-client/internal/apitest"
	"github.com/jrsteele09/go-todo-client/tasks"
)

// staticTokens is a TokenSource with a fixed access token and no refresh
// capability, enough to pass the fake server's bearer check.
type staticTokens struct {
	token string
}

func (s staticTokens) AccessToken() string                      { return s.token }
func (s staticTokens) CanRefresh() bool                         { return false }
func (s staticTokens) RefreshAccessToken(context.Context) error { return nil }

type storeFixture struct {
	server *apitest.Server
	store  *tasks.Store
}

func setupStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	server := apitest.NewServer()
	t.Cleanup(server.Close)
	server.AddAccount("a@b.com", "validpass123")
	server.SeedToken("a@b.com", "access-static", "")

	client, err := api.NewClient(api.ClientConfig{BaseURL: server.URL})
	require.NoError(t, err)
	pipeline, err := api.NewPipeline(client, staticTokens{token: "access-static"})
	require.NoError(t, err)
	svc, err := tasks.NewService(pipeline)
	require.NoError(t, err)
	store, err := tasks.NewStore(svc)
	require.NoError(t, err)

	return &storeFixture{server: server, store: store}
}

func TestRefreshLoadsServerTasks(t *testing.T) {
	f := setupStoreFixture(t)
	f.server.SeedTask(tasks.Task{ID: "task-9", Title: "Water the plants"})

	require.NoError(t, f.store.Refresh(context.Background()))

	list := f.store.Tasks()
	require.Len(t, list, 1)
	require.Equal(t, "task-9", list[0].ID)
	require.False(t, f.store.Loading())
}

func TestCreateConfirmReplacesPlaceholderID(t *testing.T) {
	f := setupStoreFixture(t)

	created, err := f.store.Create(context.Background(), tasks.Draft{Title: "Buy milk", Priority: 2})
	require.NoError(t, err)
	require.Equal(t, "task-1", created.ID)
	require.Equal(t, "user-1", created.UserID)

	list := f.store.Tasks()
	require.Len(t, list, 1)
	require.Equal(t, "task-1", list[0].ID)
	for _, task := range list {
		require.False(t, strings.HasPrefix(task.ID, "pending-"))
	}
	require.Zero(t, f.store.PendingMutations())
}

func TestCreateRolledBackOnServerFailure(t *testing.T) {
	f := setupStoreFixture(t)
	f.server.FailTaskWrites = true

	_, err := f.store.Create(context.Background(), tasks.Draft{Title: "Buy milk"})
	require.Error(t, err)
	require.Empty(t, f.store.Tasks())
	require.Zero(t, f.store.PendingMutations())
	require.NotEmpty(t, f.store.Err())
	require.Zero(t, f.server.TaskCount())
}

func TestUpdateAppliesServerMerge(t *testing.T) {
	f := setupStoreFixture(t)
	f.server.SeedTask(tasks.Task{ID: "task-1", Title: "Old title", Priority: 1})
	require.NoError(t, f.store.Refresh(context.Background()))

	title := "New title"
	updated, err := f.store.Update(context.Background(), "task-1", tasks.Patch{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "New title", updated.Title)
	require.Equal(t, 1, updated.Priority)

	local, ok := f.store.Get("task-1")
	require.True(t, ok)
	require.Equal(t, "New title", local.Title)
	require.Zero(t, f.store.PendingMutations())
}

func TestUpdateRolledBackOnServerFailure(t *testing.T) {
	f := setupStoreFixture(t)
	f.server.SeedTask(tasks.Task{ID: "task-1", Title: "Old title"})
	require.NoError(t, f.store.Refresh(context.Background()))
	f.server.FailTaskWrites = true

	title := "New title"
	_, err := f.store.Update(context.Background(), "task-1", tasks.Patch{Title: &title})
	require.Error(t, err)

	local, ok := f.store.Get("task-1")
	require.True(t, ok)
	require.Equal(t, "Old title", local.Title)
	require.Zero(t, f.store.PendingMutations())
}

func TestUpdateUnknownTask(t *testing.T) {
	f := setupStoreFixture(t)

	title := "New title"
	_, err := f.store.Update(context.Background(), "task-404", tasks.Patch{Title: &title})
	require.ErrorIs(t, err, tasks.TaskNotFoundErr)
}

func TestDeleteRemovesTask(t *testing.T) {
	f := setupStoreFixture(t)
	f.server.SeedTask(tasks.Task{ID: "task-1", Title: "Buy milk"})
	require.NoError(t, f.store.Refresh(context.Background()))

	require.NoError(t, f.store.Delete(context.Background(), "task-1"))
	require.Empty(t, f.store.Tasks())
	require.Zero(t, f.store.PendingMutations())
	require.Zero(t, f.server.TaskCount())
}

func TestDeleteRestoredOnServerFailure(t *testing.T) {
	f := setupStoreFixture(t)
	f.server.SeedTask(tasks.Task{ID: "task-1", Title: "Buy milk"})
	require.NoError(t, f.store.Refresh(context.Background()))
	f.server.FailTaskWrites = true

	require.Error(t, f.store.Delete(context.Background(), "task-1"))

	local, ok := f.store.Get("task-1")
	require.True(t, ok)
	require.Equal(t, "Buy milk", local.Title)
	require.Equal(t, 1, f.server.TaskCount())
}

func TestToggleFlipsCompletion(t *testing.T) {
	f := setupStoreFixture(t)
	f.server.SeedTask(tasks.Task{ID: "task-1", Title: "Buy milk"})
	require.NoError(t, f.store.Refresh(context.Background()))

	require.NoError(t, f.store.Toggle(context.Background(), "task-1"))
	local, _ := f.store.Get("task-1")
	require.True(t, local.Done)

	require.NoError(t, f.store.Toggle(context.Background(), "task-1"))
	local, _ = f.store.Get("task-1")
	require.False(t, local.Done)
}
