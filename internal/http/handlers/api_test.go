package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maxjung/messagely-be/internal/auth"
	"github.com/maxjung/messagely-be/internal/models"
	"github.com/maxjung/messagely-be/internal/server"
	"github.com/maxjung/messagely-be/internal/storage/memory"
)

type testAPI struct {
	ts     *httptest.Server
	store  *memory.Store
	tokens *auth.TokenManager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.NewStore()
	tokens := auth.NewTokenManager("test-secret", "messagely-test", 0)
	ts := httptest.NewServer(server.Routes(store, tokens))
	t.Cleanup(ts.Close)
	return &testAPI{ts: ts, store: store, tokens: tokens}
}

// do sends a JSON request, optionally with a bearer token, and decodes the
// response body into out when out is non-nil.
func (a *testAPI) do(t *testing.T, method, path, token string, payload, out any) int {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.ts.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *testAPI) register(t *testing.T, username string) string {
	t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	status := a.do(t, http.MethodPost, "/register", "", map[string]string{
		"username":   username,
		"password":   "secret",
		"first_name": "first-" + username,
		"last_name":  "last-" + username,
		"phone":      "555-0100",
	}, &out)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (a *testAPI) login(t *testing.T, username, password string) (int, string) {
	t.Helper()
	var out struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	status := a.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	return status, out.Token
}

func (a *testAPI) send(t *testing.T, token, to, body string) models.Message {
	t.Helper()
	var out struct {
		Message models.Message `json:"message"`
	}
	status := a.do(t, http.MethodPost, "/messages", token, map[string]string{
		"to_username": to,
		"body":        body,
	}, &out)
	require.Equal(t, http.StatusOK, status)
	return out.Message
}

func TestRegister(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	token := api.register(t, "test1")

	// Registration logs the user in; its token resolves to the username.
	username, err := api.tokens.Resolve(token)
	require.NoError(t, err)
	require.Equal(t, "test1", username)

	var out struct {
		Error string `json:"error"`
	}
	status := api.do(t, http.MethodPost, "/register", "", map[string]string{
		"username":   "test1",
		"password":   "other",
		"first_name": "f",
		"last_name":  "l",
		"phone":      "555-0101",
	}, &out)
	require.Equal(t, http.StatusConflict, status)
	require.NotEmpty(t, out.Error)
}

func TestRegister_MissingFields(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	status := api.do(t, http.MethodPost, "/register", "", map[string]string{
		"username": "test1",
		"password": "secret",
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestLogin_UniformFailures(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	api.register(t, "test1")

	status, token := api.login(t, "test1", "secret")
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, token)

	// Wrong password and unknown username are indistinguishable.
	wrongBody := map[string]string{}
	wrongStatus := api.do(t, http.MethodPost, "/login", "",
		map[string]string{"username": "test1", "password": "nope"}, &wrongBody)
	unknownBody := map[string]string{}
	unknownStatus := api.do(t, http.MethodPost, "/login", "",
		map[string]string{"username": "ghost", "password": "nope"}, &unknownBody)

	require.Equal(t, http.StatusBadRequest, wrongStatus)
	require.Equal(t, wrongStatus, unknownStatus)
	require.Equal(t, wrongBody, unknownBody)
}

func TestLogin_UpdatesLastLogin(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	api.register(t, "test1")

	before, err := api.store.FindByUsername(context.Background(), "test1")
	require.NoError(t, err)

	status, _ := api.login(t, "test1", "secret")
	require.Equal(t, http.StatusOK, status)

	after, err := api.store.FindByUsername(context.Background(), "test1")
	require.NoError(t, err)
	require.True(t, after.LastLoginAt.After(before.LastLoginAt))
	require.Equal(t, before.JoinedAt, after.JoinedAt)
}

func TestUsers_ListRequiresClaim(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	token := api.register(t, "test1")
	api.register(t, "test2")

	require.Equal(t, http.StatusUnauthorized,
		api.do(t, http.MethodGet, "/users", "", nil, nil))
	require.Equal(t, http.StatusUnauthorized,
		api.do(t, http.MethodGet, "/users", "not-a-token", nil, nil))

	var out struct {
		Users []models.PublicUser `json:"users"`
	}
	status := api.do(t, http.MethodGet, "/users", token, nil, &out)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, out.Users, 2)
	require.Equal(t, "test1", out.Users[0].Username)
	require.Equal(t, "test2", out.Users[1].Username)
}

func TestUsers_ProfileCorrectUserOnly(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	token1 := api.register(t, "test1")
	token2 := api.register(t, "test2")

	// A valid identity is still denied another user's detail record.
	require.Equal(t, http.StatusUnauthorized,
		api.do(t, http.MethodGet, "/users/test2", token1, nil, nil))

	var out struct {
		User struct {
			Username    string    `json:"username"`
			FirstName   string    `json:"first_name"`
			JoinedAt    time.Time `json:"joined_at"`
			LastLoginAt time.Time `json:"last_login_at"`
		} `json:"user"`
	}
	status := api.do(t, http.MethodGet, "/users/test2", token2, nil, &out)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "test2", out.User.Username)
	require.Equal(t, "first-test2", out.User.FirstName)
	require.False(t, out.User.JoinedAt.IsZero())
	require.False(t, out.User.LastLoginAt.IsZero())
}

func TestMessages_EndToEnd(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	token1 := api.register(t, "test1")
	token2 := api.register(t, "test2")
	token3 := api.register(t, "test3")

	msg := api.send(t, token1, "test2", "hi")
	require.NotEmpty(t, msg.ID)
	require.Equal(t, "test1", msg.FromUsername)
	require.Equal(t, "test2", msg.ToUsername)
	require.Equal(t, "hi", msg.Body)
	require.Nil(t, msg.ReadAt)

	// Both participants may read; a third valid identity may not.
	var detail struct {
		Message models.MessageDetail `json:"message"`
	}
	path := "/messages/" + msg.ID
	require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, path, token1, nil, nil))
	require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, path, token2, nil, &detail))
	require.Equal(t, "test1", detail.Message.FromUser.Username)
	require.Equal(t, "test2", detail.Message.ToUser.Username)
	require.Nil(t, detail.Message.ReadAt)
	require.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, path, token3, nil, nil))

	// Only the recipient can mark read.
	readPath := path + "/read"
	require.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodPost, readPath, token1, nil, nil))
	require.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodPost, readPath, token3, nil, nil))

	var receipt struct {
		Message struct {
			ID     string     `json:"id"`
			ReadAt *time.Time `json:"read_at"`
		} `json:"message"`
	}
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, readPath, token2, nil, &receipt))
	require.Equal(t, msg.ID, receipt.Message.ID)
	require.NotNil(t, receipt.Message.ReadAt)
	first := *receipt.Message.ReadAt

	// Marking again preserves the original read_at.
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, readPath, token2, nil, &receipt))
	require.NotNil(t, receipt.Message.ReadAt)
	require.Equal(t, first, *receipt.Message.ReadAt)
}

func TestMessages_SendValidation(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	token1 := api.register(t, "test1")
	api.register(t, "test2")

	require.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, "/messages", token1,
		map[string]string{"to_username": "test2"}, nil))
	require.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, "/messages", token1,
		map[string]string{"body": "hi"}, nil))
	require.Equal(t, http.StatusNotFound, api.do(t, http.MethodPost, "/messages", token1,
		map[string]string{"to_username": "ghost", "body": "hi"}, nil))
	require.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodPost, "/messages", "",
		map[string]string{"to_username": "test2", "body": "hi"}, nil))
}

func TestMessages_SenderBoundToClaim(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	token1 := api.register(t, "test1")
	api.register(t, "test2")

	// A from_username in the payload is ignored; the claim decides.
	var out struct {
		Message models.Message `json:"message"`
	}
	status := api.do(t, http.MethodPost, "/messages", token1, map[string]string{
		"from_username": "test2",
		"to_username":   "test2",
		"body":          "spoof attempt",
	}, &out)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "test1", out.Message.FromUsername)
}

func TestMessages_GetNotFound(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	token1 := api.register(t, "test1")

	require.Equal(t, http.StatusNotFound,
		api.do(t, http.MethodGet, "/messages/nope", token1, nil, nil))
}

func TestUsers_InboxAndOutbox(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	token1 := api.register(t, "test1")
	token2 := api.register(t, "test2")

	api.send(t, token1, "test2", "hello")
	api.send(t, token1, "test2", "hello again")
	api.send(t, token2, "test1", "hey")

	var inbox struct {
		Messages []models.InboxMessage `json:"messages"`
	}
	status := api.do(t, http.MethodGet, "/users/test2/to", token2, nil, &inbox)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, inbox.Messages, 2)
	require.Equal(t, "hello", inbox.Messages[0].Body)
	require.Equal(t, "hello again", inbox.Messages[1].Body)
	require.Equal(t, "test1", inbox.Messages[0].FromUser.Username)

	var outbox struct {
		Messages []models.OutboxMessage `json:"messages"`
	}
	status = api.do(t, http.MethodGet, "/users/test2/from", token2, nil, &outbox)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, outbox.Messages, 1)
	require.Equal(t, "hey", outbox.Messages[0].Body)
	require.Equal(t, "test1", outbox.Messages[0].ToUser.Username)

	// Another user's inbox is off limits even to a logged-in identity.
	require.Equal(t, http.StatusUnauthorized,
		api.do(t, http.MethodGet, "/users/test2/to", token1, nil, nil))
	require.Equal(t, http.StatusUnauthorized,
		api.do(t, http.MethodGet, "/users/test2/to", "", nil, nil))
}
