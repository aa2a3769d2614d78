package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/NeRF-or-Nothing/go-user-server/internal/common"
	"github.com/NeRF-or-Nothing/go-user-server/internal/log"
	"github.com/NeRF-or-Nothing/go-user-server/internal/models/user"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []UserEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, event UserEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

// countingStore wraps a store and counts calls, to prove invalid ids never reach it.
type countingStore struct {
	UserStore
	calls int
}

func (c *countingStore) GetUserByID(ctx context.Context, id primitive.ObjectID) (*user.User, error) {
	c.calls++
	return c.UserStore.GetUserByID(ctx, id)
}

func (c *countingStore) UpdateUser(ctx context.Context, id primitive.ObjectID, up user.UserUpdate) (*user.User, error) {
	c.calls++
	return c.UserStore.UpdateUser(ctx, id, up)
}

func (c *countingStore) DeleteUser(ctx context.Context, id primitive.ObjectID) (*user.User, error) {
	c.calls++
	return c.UserStore.DeleteUser(ctx, id)
}

func newRequest(email, mobile string) *common.CreateUserRequest {
	return &common.CreateUserRequest{
		Firstname: "Ada",
		Lastname:  "Lovelace",
		Email:     email,
		Mobile:    mobile,
		Password:  "analytical",
		Gender:    "female",
		Role:      "admin",
	}
}

func newTestService() (*UserService, *user.MemoryUserManager, *recordingPublisher) {
	store := user.NewMemoryUserManager()
	events := &recordingPublisher{}
	return NewUserService(store, events, log.NewNopLogger()), store, events
}

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()
	svc, store, events := newTestService()

	u, err := svc.RegisterUser(ctx, newRequest("ada@example.com", "100"))
	require.NoError(t, err)
	assert.False(t, u.ID.IsZero())
	assert.NotEqual(t, "analytical", u.Password)
	assert.NoError(t, u.CheckPassword("analytical"))

	stored, err := store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, *u, *stored)

	_, err = svc.RegisterUser(ctx, newRequest("ada@example.com", "999"))
	assert.ErrorIs(t, err, user.ErrUserExists)
	_, err = svc.RegisterUser(ctx, newRequest("other@example.com", "100"))
	assert.ErrorIs(t, err, user.ErrUserExists)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, []string{EventUserCreated}, events.types())
}

func TestAddUserStillRejectsStoreConflicts(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, err := svc.AddUser(ctx, newRequest("ada@example.com", "100"))
	require.NoError(t, err)

	_, err = svc.AddUser(ctx, newRequest("ada@example.com", "200"))
	assert.ErrorIs(t, err, user.ErrUserExists)
}

func TestLoginUser(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	created, err := svc.RegisterUser(ctx, newRequest("ada@example.com", "100"))
	require.NoError(t, err)

	u, err := svc.LoginUser(ctx, "ada@example.com", "analytical")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, err = svc.LoginUser(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.LoginUser(ctx, "nobody@example.com", "analytical")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateUserPatchesPresentFields(t *testing.T) {
	ctx := context.Background()
	svc, _, events := newTestService()

	created, err := svc.RegisterUser(ctx, newRequest("ada@example.com", "100"))
	require.NoError(t, err)

	status := "inactive"
	password := "difference-engine"
	u, err := svc.UpdateUser(ctx, created.ID.Hex(), &common.UpdateUserRequest{Status: &status, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "inactive", u.Status)
	assert.Equal(t, "Ada", u.Firstname)
	assert.Equal(t, "ada@example.com", u.Email)

	_, err = svc.LoginUser(ctx, "ada@example.com", "difference-engine")
	assert.NoError(t, err)

	empty := ""
	u, err = svc.UpdateUser(ctx, created.ID.Hex(), &common.UpdateUserRequest{Password: &empty})
	require.NoError(t, err)
	assert.NoError(t, u.CheckPassword("difference-engine"))

	assert.Equal(t, []string{EventUserCreated, EventUserUpdated}, events.types())
}

func TestUpdateUserNotFound(t *testing.T) {
	svc, store, _ := newTestService()

	role := "admin"
	_, err := svc.UpdateUser(context.Background(), primitive.NewObjectID().Hex(), &common.UpdateUserRequest{Role: &role})
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	users, err := store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestDeleteThenGet(t *testing.T) {
	ctx := context.Background()
	svc, _, events := newTestService()

	created, err := svc.AddUser(ctx, newRequest("ada@example.com", "100"))
	require.NoError(t, err)

	deleted, err := svc.DeleteUser(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = svc.GetUser(ctx, created.ID.Hex())
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	_, err = svc.DeleteUser(ctx, created.ID.Hex())
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	assert.Equal(t, []string{EventUserCreated, EventUserDeleted}, events.types())
}

func TestInvalidIDNeverReachesStore(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{UserStore: user.NewMemoryUserManager()}
	svc := NewUserService(store, nil, log.NewNopLogger())

	for _, id := range []string{"", "not-an-id", "zzzzzzzzzzzzzzzzzzzzzzzz"} {
		_, err := svc.GetUser(ctx, id)
		assert.ErrorIs(t, err, user.ErrInvalidID)
		_, err = svc.UpdateUser(ctx, id, &common.UpdateUserRequest{})
		assert.ErrorIs(t, err, user.ErrInvalidID)
		_, err = svc.DeleteUser(ctx, id)
		assert.ErrorIs(t, err, user.ErrInvalidID)
	}
	assert.Zero(t, store.calls)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	store := user.NewMemoryUserManager()
	events := &recordingPublisher{err: errors.New("broker down")}
	svc := NewUserService(store, events, log.NewNopLogger())

	u, err := svc.AddUser(context.Background(), newRequest("ada@example.com", "100"))
	require.NoError(t, err)

	_, err = store.GetUserByID(context.Background(), u.ID)
	assert.NoError(t, err)
}
