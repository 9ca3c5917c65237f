package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savinggrace-backend/infrastructure/directory"
)

func newUserHandler(env *testEnv) *UserHandler {
	return NewUserHandler(env.store, env.planner, directory.NewStatic(env.logger), env.logger, env.errHandler)
}

type userPayload struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

func createUser(t *testing.T, handler *UserHandler, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.CreateUser(rec, jsonRequest(t, http.MethodPost, "/users", body))
	return rec
}

func TestCreateUserDefaultsToReadOnly(t *testing.T) {
	env := newTestEnv(t)
	handler := newUserHandler(env)

	rec := createUser(t, handler, map[string]string{
		"email": "Volunteer@Example.org",
		"name":  "Pat Volunteer",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	user := decodeData[userPayload](t, rec)
	assert.NotEmpty(t, user.UserID)
	assert.Equal(t, "volunteer@example.org", user.Email)
	assert.Equal(t, "ReadOnly", user.Role)
	assert.True(t, user.Active)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t)

	rec := createUser(t, newUserHandler(env), map[string]string{
		"email": "admin@example.org",
		"name":  "Sam Admin",
		"role":  "superuser",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env2 := decodeEnvelope(t, rec)
	assert.Equal(t, "role", env2.Error.Details["field"])
}

func TestUpdateRole(t *testing.T) {
	env := newTestEnv(t)
	handler := newUserHandler(env)

	rec := createUser(t, handler, map[string]string{
		"email": "coord@example.org",
		"name":  "Dana Coordinator",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeData[userPayload](t, rec).UserID

	rec = httptest.NewRecorder()
	handler.UpdateRole(rec, jsonRequest(t, http.MethodPut, "/users/"+id+"/role",
		map[string]string{"role": "DonorCoordinator"}, "id", id))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "DonorCoordinator", decodeData[userPayload](t, rec).Role)

	rec = httptest.NewRecorder()
	handler.UpdateRole(rec, jsonRequest(t, http.MethodPut, "/users/"+id+"/role",
		map[string]string{"role": "root"}, "id", id))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDisableUserIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	handler := newUserHandler(env)

	rec := createUser(t, handler, map[string]string{
		"email": "vol@example.org",
		"name":  "Pat Volunteer",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeData[userPayload](t, rec).UserID

	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		handler.DisableUser(rec, jsonRequest(t, http.MethodDelete, "/users/"+id, nil, "id", id))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.GetUser(rec, getRequest("/users/"+id, "id", id))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeData[userPayload](t, rec).Active)
}

func TestListUsersOrderedByEmail(t *testing.T) {
	env := newTestEnv(t)
	handler := newUserHandler(env)

	for _, u := range []struct{ email, name string }{
		{"zoe@example.org", "Zoe"},
		{"amir@example.org", "Amir"},
	} {
		rec := createUser(t, handler, map[string]string{"email": u.email, "name": u.name})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ListUsers(rec, getRequest("/users"))
	require.Equal(t, http.StatusOK, rec.Code)

	page := decodeData[struct {
		Items []userPayload `json:"items"`
	}](t, rec)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "amir@example.org", page.Items[0].Email)
	assert.Equal(t, "zoe@example.org", page.Items[1].Email)
}
