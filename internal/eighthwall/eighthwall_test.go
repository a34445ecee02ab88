package eighthwall

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock(t *testing.T) {
	old := timeNow
	timeNow = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	defer func() { timeNow = old }()

	c := New("", "", false)
	require.True(t, c.Mock())

	apps, err := c.ListApps(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "app_123", apps[0].ID)
	assert.Equal(t, "2026-01-02T03:04:05Z", apps[0].CreatedAt)
	assert.Len(t, apps[0].Scenes, 2)

	app, err := c.GetApp(context.Background(), "app_123")
	require.NoError(t, err)
	assert.Equal(t, "Sample AR App", app.Name)

	_, err = c.GetApp(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrAppNotFound)

	assert.True(t, New("https://api.example", "", true).Mock())
}

func TestLive(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/apps":
			w.Write([]byte(`[{"id":"a1","name":"One"}]`))
		case "/apps/a1/scenes":
			if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			io.Copy(w, r.Body)
		case "/apps/a 2":
			w.Write([]byte(`{"id":"a 2","name":"Two"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "secret", false)
	require.False(t, c.Mock())

	apps, err := c.ListApps(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []App{{ID: "a1", Name: "One"}}, apps)
	assert.Equal(t, "Bearer secret", auth)

	app, err := c.GetApp(context.Background(), "a 2")
	require.NoError(t, err)
	assert.Equal(t, "Two", app.Name)

	var scene Scene
	require.NoError(t, c.Post(context.Background(), "/apps/a1/scenes", Scene{ID: "s1", Name: "Lobby"}, &scene))
	assert.Equal(t, "Lobby", scene.Name)

	_, err = c.GetApp(context.Background(), "zzz")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}
