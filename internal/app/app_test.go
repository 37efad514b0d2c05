package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tribu-research/challenge-backend/config"
	"github.com/tribu-research/challenge-backend/internal/auth"
	"github.com/tribu-research/challenge-backend/internal/memstore"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/pkg/clock"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{CORSAllowedOrigins: "*"},
		JWT:     config.JWTConfig{Secret: "test-secret", ExpireHours: 1},
		Storage: config.StorageConfig{Driver: config.StorageMemory},
		Challenge: config.ChallengeConfig{
			MaxPerPeriod: 5, CapacityWindow: "week", SlotHour: 18,
			Timezone: "UTC", VotePolicy: "period",
		},
		Scheduler: config.SchedulerConfig{
			WeeklyWinnerSpec: "0 0 * * MON", MonthlyWinnerSpec: "0 0 1 * *",
			VotingOpenSpec: "0 18 * * TUE", VotingCloseSpec: "0 0 * * MON",
			CacheRefreshInterval: 5 * time.Minute,
		},
		Resilience: config.ResilienceConfig{
			RetryAttempts: 2, RetryDelay: time.Millisecond,
			CurrentWeekTTL: time.Minute, LocalCacheSize: 8,
		},
	}
}

type harness struct {
	t      *testing.T
	app    *App
	router *gin.Engine
	clock  *clock.Manual
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clk := clock.NewManual(time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC))
	a, err := New(testConfig(), MemoryStores(memstore.New(), clk.Now()), Infra{}, clk, nil)
	require.NoError(t, err)
	return &harness{t: t, app: a, router: a.Router(), clock: clk}
}

func (h *harness) token(role string) string {
	tok, err := h.app.JWT.Generate(uuid.New(), "someone@example.com", role)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) do(method, path, token string, body interface{}, out interface{}) int {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if out != nil {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
		if len(env.Data) > 0 {
			require.NoError(h.t, json.Unmarshal(env.Data, out))
		}
	}
	return rec.Code
}

func TestChallengeWeekEndToEnd(t *testing.T) {
	h := newHarness(t)
	researcher := h.token(auth.RoleResearcher)
	admin := h.token(auth.RoleAdmin)

	var a models.Assignment
	code := h.do(http.MethodPost, "/assignments", researcher, map[string]string{
		"researcher_name": "Ana", "agent_id": uuid.NewString(), "agent_name": "Atlas", "role": "PRIMARY",
	}, &a)
	require.Equal(t, http.StatusCreated, code)

	var week models.WeekPresentations
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/presentations/current-week", "", nil, &week))
	assert.Equal(t, "04 March 2025", week.WeekStart)
	require.Len(t, week.Presentations, 1)
	pres := week.Presentations[0]
	assert.Equal(t, "Ana", pres.Name)
	assert.Equal(t, "06:00 PM", pres.Time)

	var video models.PresentationVideo
	code = h.do(http.MethodPost, "/videos", researcher, map[string]string{
		"assignment_id": a.ID.String(), "title": "Atlas demo", "video_url": "https://videos.example.com/atlas",
	}, &video)
	require.Equal(t, http.StatusCreated, code)

	// Votes before the window opens are refused.
	voter := h.token(auth.RoleResearcher)
	assert.Equal(t, http.StatusUnprocessableEntity,
		h.do(http.MethodPost, "/presentations/"+pres.ID.String()+"/votes", voter, nil, nil))

	h.clock.Set(time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC))
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/admin/jobs/voting-open/run", researcher, nil, nil))
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/admin/jobs/voting-open/run", admin, nil, nil))

	var res models.VoteResult
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/presentations/"+pres.ID.String()+"/votes", voter, nil, &res))
	assert.Equal(t, 1, res.Votes)
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/presentations/"+pres.ID.String()+"/votes", voter, nil, nil))

	var count struct {
		Votes int `json:"votes"`
	}
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/presentations/"+pres.ID.String()+"/votes", "", nil, &count))
	assert.Equal(t, 1, count.Votes)

	h.clock.Set(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/admin/jobs/weekly-winner/run", admin, nil, nil))

	var report models.WinnersReport
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/winners?month=3&year=2025", "", nil, &report))
	require.Len(t, report.WeeklyWinners, 1)
	assert.Equal(t, "Ana", report.WeeklyWinners[0].ResearcherName)
	assert.Equal(t, 1, report.WeeklyWinners[0].Votes)
}

func TestRoutesRequireToken(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/assignments", "", map[string]string{}, nil))
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", "", nil, nil))

	var st models.ChallengeStatus
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/challenge/status", "", nil, &st))
	assert.Equal(t, 3, st.CurrentMonth)
	assert.Equal(t, 2025, st.CurrentYear)
}

func TestReportsRouteNeedsObjectStore(t *testing.T) {
	h := newHarness(t)
	assert.Nil(t, h.app.Archiver)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/winners/reports/2025/3", h.token(auth.RoleAdmin), nil, nil))
}

func TestConnectMemoryWithoutInfra(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC))
	stores, infra, cleanup, err := Connect(context.Background(), testConfig(), clk, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, stores.Presentations)
	assert.NotNil(t, stores.Challenge)
	assert.Nil(t, infra.Redis)
	assert.Nil(t, infra.Objects)

	st, err := stores.Challenge.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.CurrentMonth)
}
