package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dias221467/Streak_Tracker/internal/models"
	"github.com/Dias221467/Streak_Tracker/internal/repository"
	"github.com/Dias221467/Streak_Tracker/internal/services"
	jwtutil "github.com/Dias221467/Streak_Tracker/pkg/jwt"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testEnv struct {
	router  *mux.Router
	gateway *repository.MemoryGateway
	service *services.HabitService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gw := repository.NewMemoryGateway()
	svc := services.NewHabitService(gw, services.Options{CacheTTL: time.Minute, RecentLogLimit: 5})
	router := NewRouter(NewHabitHandler(svc), NewElapsedHandler(svc, testSecret, 20*time.Millisecond), testSecret)
	return &testEnv{router: router, gateway: gw, service: svc}
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwtutil.GenerateToken(userID, userID+"@example.com", testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createHabit(t *testing.T, userID, title string) models.Habit {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/habits", userID, map[string]string{"title": title})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var habit models.Habit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &habit))
	return habit
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/session", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestHabitsRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/habits", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateHabit(t *testing.T) {
	env := newTestEnv(t)

	habit := env.createHabit(t, "alice", "  Smoking ")
	assert.Equal(t, "Smoking", habit.Title)
	assert.NotEmpty(t, habit.ID)
	assert.Zero(t, habit.CurrentStreak)

	rec := env.do(t, http.MethodPost, "/habits", "alice", map[string]string{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/habits", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "alice"))
	raw := httptest.NewRecorder()
	env.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestListHabits(t *testing.T) {
	env := newTestEnv(t)
	env.createHabit(t, "alice", "Smoking")
	env.createHabit(t, "bob", "Gaming")

	rec := env.do(t, http.MethodGet, "/habits", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cards []models.HabitCard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cards))
	require.Len(t, cards, 1)
	assert.Equal(t, "Smoking", cards[0].Habit.Title)

	rec = env.do(t, http.MethodGet, "/habits", "carol", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestProgressAndReset(t *testing.T) {
	env := newTestEnv(t)
	habit := env.createHabit(t, "alice", "Smoking")
	base := "/habits/" + habit.ID

	for i := 0; i < 3; i++ {
		rec := env.do(t, http.MethodPost, base+"/progress", "alice", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := env.do(t, http.MethodPost, base+"/reset", "alice", map[string]string{"reason": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/reset", "alice", map[string]string{"reason": "slipped up"})
	require.Equal(t, http.StatusOK, rec.Code)

	var card models.HabitCard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	assert.Zero(t, card.Habit.CurrentStreak)
	assert.Equal(t, 3, card.Habit.LongestStreak)
	assert.Equal(t, 4, env.gateway.CountLogs(habit.ID))

	rec = env.do(t, http.MethodGet, base+"/logs", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []models.HabitLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	require.Len(t, logs, 4)
	assert.Equal(t, models.LogStatusReset, logs[0].Status)
}

func TestProgressWithNotes(t *testing.T) {
	env := newTestEnv(t)
	habit := env.createHabit(t, "alice", "Drinking")

	rec := env.do(t, http.MethodPost, "/habits/"+habit.ID+"/progress", "alice", map[string]string{"notes": "easy day"})
	require.Equal(t, http.StatusOK, rec.Code)

	var card models.HabitCard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	require.Len(t, card.RecentLogs, 1)
	assert.Equal(t, "easy day", card.RecentLogs[0].Notes)
}

func TestAddNote(t *testing.T) {
	env := newTestEnv(t)
	habit := env.createHabit(t, "alice", "Gaming")
	path := "/habits/" + habit.ID + "/notes"

	rec := env.do(t, http.MethodPost, path, "alice", map[string]string{"notes": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.gateway.CountLogs(habit.ID))

	rec = env.do(t, http.MethodPost, path, "alice", map[string]string{"notes": "felt good"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.gateway.CountLogs(habit.ID))
}

func TestStartTracking(t *testing.T) {
	env := newTestEnv(t)
	habit := env.createHabit(t, "alice", "Gaming")

	rec := env.do(t, http.MethodPost, "/habits/"+habit.ID+"/tracking", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var card models.HabitCard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	assert.NotNil(t, card.Habit.LastTrackedAt)
	assert.Zero(t, card.Habit.CurrentStreak)
}

func TestForeignHabitIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	habit := env.createHabit(t, "alice", "Smoking")
	base := "/habits/" + habit.ID

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, base, "mallory", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, base+"/logs", "mallory", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, base+"/progress", "mallory", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, base, "mallory", nil).Code)
}

func TestDeleteHabit(t *testing.T) {
	env := newTestEnv(t)
	habit := env.createHabit(t, "alice", "Smoking")
	base := "/habits/" + habit.ID
	env.do(t, http.MethodPost, base+"/progress", "alice", nil)

	rec := env.do(t, http.MethodDelete, base, "alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, env.gateway.CountLogs(habit.ID))

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, base, "alice", nil).Code)
}

func TestElapsedWebSocket(t *testing.T) {
	env := newTestEnv(t)
	habit := env.createHabit(t, "alice", "Smoking")
	env.do(t, http.MethodPost, "/habits/"+habit.ID+"/tracking", "alice", nil)

	srv := httptest.NewServer(env.router)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/habits/" + habit.ID + "/elapsed/ws"

	t.Run("rejects missing token", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects foreign habit", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token="+tokenFor(t, "mallory"), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("streams frames", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+tokenFor(t, "alice"), nil)
		require.NoError(t, err)
		defer conn.Close()

		for i := 0; i < 2; i++ {
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
			var frame ElapsedFrame
			require.NoError(t, conn.ReadJSON(&frame))
			assert.Equal(t, habit.ID, frame.HabitID)
			assert.NotEmpty(t, frame.Stats.LastTrackedLabel)
		}
	})

	t.Run("closes when habit is deleted", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+tokenFor(t, "alice"), nil)
		require.NoError(t, err)
		defer conn.Close()

		require.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/habits/"+habit.ID, "alice", nil).Code)

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		for {
			var frame ElapsedFrame
			if err := conn.ReadJSON(&frame); err != nil {
				assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err)
				return
			}
		}
	})
}

// unsizedReader hides its length so the request goes out with
// ContentLength -1, as a chunked upload does.
type unsizedReader struct{ io.Reader }

func TestProgressWithEmptyChunkedBody(t *testing.T) {
	env := newTestEnv(t)
	habit := env.createHabit(t, "alice", "Smoking")

	req := httptest.NewRequest(http.MethodPost, "/habits/"+habit.ID+"/progress", unsizedReader{strings.NewReader("")})
	require.Equal(t, int64(-1), req.ContentLength)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "alice"))
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, env.gateway.CountLogs(habit.ID))

	req = httptest.NewRequest(http.MethodPost, "/habits/"+habit.ID+"/progress", unsizedReader{strings.NewReader("{oops")})
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "alice"))
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
