package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omega-realm/scruffy/internal/auth"
	"github.com/omega-realm/scruffy/internal/cache"
	"github.com/omega-realm/scruffy/internal/combat"
	"github.com/omega-realm/scruffy/internal/database"
	"github.com/omega-realm/scruffy/internal/logging"
	"github.com/omega-realm/scruffy/internal/middleware"
	"github.com/omega-realm/scruffy/internal/models"
	"github.com/omega-realm/scruffy/internal/redis"
)

var (
	userRules      = models.RoleRules{Health: 100, Strength: 20, Hits: 5, MaxHealth: 100, MaxStrength: 20, MaxHits: 5}
	defaultMonster = models.Monster{Name: "scruffy", Health: 100, Strength: 30, Hits: 9999}
)

type harness struct {
	handler  http.Handler
	store    *database.Store
	gate     *middleware.Gate
	resolver *combat.Resolver
	board    *redis.Scoreboard
}

func newHarness(t *testing.T, monster models.Monster) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, &database.Config{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "scruffy.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	client, err := redis.NewClient(ctx, &redis.Config{Host: mr.Host(), Port: mr.Port(), PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	board := redis.NewScoreboard(client)

	log := logging.Discard()
	store := db.Store()
	resolver := combat.NewResolver(store, cache.NewMemory(), cache.NewMemory(), combat.Options{
		Pacer:           combat.DelayPacer{},
		MonsterTemplate: monster,
		Scoreboard:      board,
		Logger:          log,
	})
	gate := middleware.NewGate(auth.NewIssuer("test-secret", time.Hour))

	mux := http.NewServeMux()
	Routes(mux, gate,
		NewAuthHandler(store, resolver, auth.NewPasswords(auth.PasswordPlain), gate, userRules, log),
		NewCombatHandler(resolver, log),
		NewLeaderboardHandler(board, log),
	)
	return &harness{handler: mux, store: store, gate: gate, resolver: resolver, board: board}
}

func (h *harness) do(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) register(t *testing.T, body string) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/register", body, nil)
	require.Contains(t, rec.Body.String(), `"status":"success"`, rec.Body.String())
}

func (h *harness) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/login", `{"username":"`+username+`","password":"`+password+`"}`, nil)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

// sessionFor starts a session without going through login, so no monster is
// provisioned.
func (h *harness) sessionFor(t *testing.T, username string) *http.Cookie {
	t.Helper()
	user, err := h.store.FindUserByUsername(context.Background(), username)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, h.gate.Remember(rec, user))
	return rec.Result().Cookies()[0]
}

func assertGolden(t *testing.T, name string, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var v any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	pretty, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, pretty)
}

func TestRegister(t *testing.T) {
	h := newHarness(t, defaultMonster)

	rec := h.do(t, http.MethodPost, "/register", `{"username":"alice","password":"secret"}`, nil)
	assertGolden(t, "register_success", rec)

	rec = h.do(t, http.MethodPost, "/register", `{"username":"alice","password":"other1"}`, nil)
	assertGolden(t, "register_duplicate", rec)

	n, err := h.store.CountUsersByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	user, err := h.store.FindUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 100, user.Health)
	assert.Equal(t, 20, user.Strength)
	assert.Equal(t, 5, user.Hits)
}

func TestRegister_Validation(t *testing.T) {
	h := newHarness(t, defaultMonster)
	tests := map[string]struct {
		body string
		msg  string
	}{
		"bad json":       {`{`, "invalid request body"},
		"short username": {`{"username":"bob","password":"secret"}`, "username must be between 5 and 10 characters"},
		"long password":  {`{"username":"alice","password":"much-too-long"}`, "password must be between 5 and 10 characters"},
		"missing pass":   {`{"username":"alice"}`, "password is required"},
		"strong user":    {`{"username":"alice","password":"secret","strength":21}`, "strength must be between 0 and 20, got 21"},
		"negative hits":  {`{"username":"alice","password":"secret","hits":-1}`, "hits must be between 0 and 5, got -1"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/register", tc.body, nil)
			assert.JSONEq(t, `{"status":"error","msg":"`+tc.msg+`"}`, rec.Body.String())
		})
	}

	n, err := h.store.CountUsersByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegister_CustomStats(t *testing.T) {
	h := newHarness(t, defaultMonster)
	h.register(t, `{"username":"alice","password":"secret","health":50,"strength":10,"hits":0}`)

	user, err := h.store.FindUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 50, user.Health)
	assert.Equal(t, 10, user.Strength)
	assert.Equal(t, 0, user.Hits)
}

func TestRegister_WrongMethod(t *testing.T) {
	h := newHarness(t, defaultMonster)

	rec := h.do(t, http.MethodGet, "/register", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestLogin(t *testing.T) {
	h := newHarness(t, defaultMonster)
	h.register(t, `{"username":"alice","password":"secret"}`)

	rec := h.do(t, http.MethodPost, "/login", `{"username":"alice","password":"secret"}`, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/monster", rec.Header().Get("Location"))

	// Login provisions the monster.
	user, err := h.store.FindUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	_, err = h.store.FindMonsterByOwner(context.Background(), user.ID)
	assert.NoError(t, err)
}

func TestLogin_WrongCredentials(t *testing.T) {
	h := newHarness(t, defaultMonster)
	h.register(t, `{"username":"alice","password":"secret"}`)

	for _, body := range []string{
		`{"username":"alice","password":"wrong"}`,
		`{"username":"nobody","password":"secret"}`,
		`{"username":"","password":""}`,
	} {
		rec := h.do(t, http.MethodPost, "/login", body, nil)
		assertGolden(t, "login_failure", rec)
		assert.Empty(t, rec.Result().Cookies())
	}
}

func TestSessionRequired(t *testing.T) {
	h := newHarness(t, defaultMonster)

	for _, path := range []string{"/monster", "/status", "/hit", "/flush", "/logout"} {
		rec := h.do(t, http.MethodGet, path, "", nil)
		assertGolden(t, "not_authorized", rec)
	}
}

func TestMonster(t *testing.T) {
	h := newHarness(t, defaultMonster)
	h.register(t, `{"username":"alice","password":"secret"}`)
	session := h.sessionFor(t, "alice")

	assertGolden(t, "monster_created", h.do(t, http.MethodGet, "/monster", "", session))
	assertGolden(t, "monster_waiting", h.do(t, http.MethodGet, "/monster", "", session))
}

func TestStatusAndHit(t *testing.T) {
	h := newHarness(t, defaultMonster)
	h.register(t, `{"username":"alice","password":"secret"}`)
	session := h.login(t, "alice", "secret")

	assertGolden(t, "status", h.do(t, http.MethodGet, "/status", "", session))
	assertGolden(t, "hit_ongoing", h.do(t, http.MethodGet, "/hit", "", session))

	// The attack was persisted.
	rec := h.do(t, http.MethodGet, "/status", "", session)
	var report combat.StatusReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 70, report.User.Health)
	assert.Equal(t, 80, report.Monster.Health)
}

func TestStatus_NoMonster(t *testing.T) {
	h := newHarness(t, defaultMonster)
	h.register(t, `{"username":"alice","password":"secret"}`)
	session := h.sessionFor(t, "alice")

	assertGolden(t, "no_monster", h.do(t, http.MethodGet, "/status", "", session))
	assertGolden(t, "no_monster", h.do(t, http.MethodGet, "/hit", "", session))
}

func TestHit_TerminalOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		monster  models.Monster
		register string
		outcome  combat.Outcome
	}{
		{
			name:     "hit_win",
			monster:  models.Monster{Name: "scruffy", Health: 20, Strength: 10},
			register: `{"username":"alice","password":"secret"}`,
			outcome:  combat.Win,
		},
		{
			name:     "hit_fail",
			monster:  defaultMonster,
			register: `{"username":"alice","password":"secret","health":10}`,
			outcome:  combat.Fail,
		},
		{
			name:     "hit_finish",
			monster:  models.Monster{Name: "scruffy", Health: 20, Strength: 30},
			register: `{"username":"alice","password":"secret","health":30}`,
			outcome:  combat.Finish,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.monster)
			h.register(t, tc.register)
			session := h.login(t, "alice", "secret")

			assertGolden(t, tc.name, h.do(t, http.MethodGet, "/hit", "", session))

			score, err := h.board.Score(context.Background(), 1, tc.outcome)
			require.NoError(t, err)
			assert.Equal(t, float64(1), score)
		})
	}
}

func TestFlush(t *testing.T) {
	h := newHarness(t, defaultMonster)
	h.register(t, `{"username":"alice","password":"secret"}`)
	session := h.login(t, "alice", "secret")

	assertGolden(t, "flush_empty", h.do(t, http.MethodGet, "/flush", "", session))

	h.do(t, http.MethodGet, "/hit", "", session)
	assertGolden(t, "flush_success", h.do(t, http.MethodGet, "/flush", "", session))
	assertGolden(t, "flush_empty", h.do(t, http.MethodGet, "/flush", "", session))
}

func TestLogout(t *testing.T) {
	h := newHarness(t, defaultMonster)
	h.register(t, `{"username":"alice","password":"secret"}`)
	session := h.login(t, "alice", "secret")

	// Nothing cached yet: the flush fails but logout still completes.
	rec := h.do(t, http.MethodGet, "/logout", "", session)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestLeaderboard(t *testing.T) {
	h := newHarness(t, models.Monster{Name: "scruffy", Health: 20, Strength: 10})
	h.register(t, `{"username":"alice","password":"secret"}`)
	session := h.login(t, "alice", "secret")
	h.do(t, http.MethodGet, "/hit", "", session)

	assertGolden(t, "leaderboard", h.do(t, http.MethodGet, "/leaderboard", "", nil))
}

func TestLeaderboard_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	NewLeaderboardHandler(nil, logging.Discard()).GetLeaderboard(rec, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))

	assert.JSONEq(t, `{"status":"error","msg":"leaderboard disabled"}`, rec.Body.String())
}

func TestRootAndHealth(t *testing.T) {
	h := newHarness(t, defaultMonster)

	assertGolden(t, "root", h.do(t, http.MethodGet, "/", "", nil))

	rec := h.do(t, http.MethodGet, "/health", "", nil)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	_, err := time.Parse(time.RFC3339, body["time"])
	assert.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/nope", "", nil).Code)
}

type fakeCombat struct {
	ensureErr  error
	statusErr  error
	attackRes  combat.Result
	attackErr  error
	flushErr   error
	flushCalls int
}

func (f *fakeCombat) EnsureMonster(context.Context, int) (models.Monster, bool, error) {
	return defaultMonster, false, f.ensureErr
}

func (f *fakeCombat) Status(context.Context, int) (combat.StatusReport, error) {
	return combat.StatusReport{}, f.statusErr
}

func (f *fakeCombat) ResolveAttack(context.Context, int) (combat.Result, error) {
	return f.attackRes, f.attackErr
}

func (f *fakeCombat) Flush(context.Context, int) error {
	f.flushCalls++
	return f.flushErr
}

func serveAs(handler http.HandlerFunc, userID int) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHit_PersistenceFailure(t *testing.T) {
	fc := &fakeCombat{
		attackRes: combat.Result{Outcome: combat.Ongoing, UserHealth: 70, MonsterHealth: 80},
		attackErr: errors.Join(combat.ErrPersistenceFailure, errors.New("disk full")),
	}
	rec := serveAs(NewCombatHandler(fc, logging.Discard()).Hit, 1)

	assert.JSONEq(t, `{"status":"error","msg":"failed to save progress"}`, rec.Body.String())
}

func TestCombatHandler_InternalErrors(t *testing.T) {
	boom := errors.New("boom")
	fc := &fakeCombat{ensureErr: boom, statusErr: boom, attackErr: boom, flushErr: boom}
	var buf bytes.Buffer
	h := NewCombatHandler(fc, logging.New(&buf, "text", "info"))

	for _, handler := range []http.HandlerFunc{h.Monster, h.Status, h.Hit, h.Flush} {
		rec := serveAs(handler, 1)
		assert.JSONEq(t, `{"status":"error","msg":"internal error"}`, rec.Body.String())
	}
	assert.Contains(t, buf.String(), "boom")
}

func TestMonster_UnknownUser(t *testing.T) {
	fc := &fakeCombat{ensureErr: combat.ErrNoActiveCombatant}
	rec := serveAs(NewCombatHandler(fc, logging.Discard()).Monster, 99)

	assert.JSONEq(t, `{"status":"error","msg":"not authorized"}`, rec.Body.String())
}

func TestLogout_FlushErrorIsLogged(t *testing.T) {
	fc := &fakeCombat{flushErr: errors.New("redis down")}
	var buf bytes.Buffer
	gate := middleware.NewGate(auth.NewIssuer("test-secret", time.Hour))
	a := NewAuthHandler(nil, fc, auth.NewPasswords(auth.PasswordPlain), gate, userRules, logging.New(&buf, "text", "info"))

	rec := serveAs(a.Logout, 1)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, 1, fc.flushCalls)
	assert.Contains(t, buf.String(), "redis down")
}
