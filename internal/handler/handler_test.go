package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/cache"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/handler"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/utils"
)

const testSecret = "test-secret"

func newTestHandler(t *testing.T) *handler.Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	cfg.Server.MaxUploadSize = 1 << 20
	cfg.CORS.AllowedOrigins = []string{"http://localhost:5173"}
	cfg.Cache.LocalSize = 16
	cfg.Cache.OperationTimeout = 1
	cfg.Solver = config.SolverConfig{
		UnderstaffWeight: 2,
		OverstaffWeight:  1,
		Seed:             1,
		NumWorkers:       1,
	}

	resultCache, err := cache.NewResultCache(cfg, nil)
	require.NoError(t, err)

	// 同步求解接口不依赖数据库和消息队列
	h, err := handler.NewHandler(cfg, nil, nil, resultCache)
	require.NoError(t, err)
	h.RegisterRoutes()
	return h
}

func bearer(t *testing.T) string {
	t.Helper()
	token, _, err := utils.GenerateToken(testSecret, "tester", time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

type solveResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    *domain.PlanResult `json:"data"`
}

func solve(t *testing.T, h *handler.Handler, body any, auth string) (*httptest.ResponseRecorder, solveResponse) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/plans/solve", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	var resp solveResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func flatForm(daysOff int, requirement int) *utils.PlanInputForm {
	input := domain.PlanInput{
		Archetypes: []domain.ShiftArchetype{
			{StartTime: domain.NewTimeOfDay(0, 0), EndTime: domain.NewTimeOfDay(0, 0), DaysOff: daysOff},
		},
		Requirements: domain.FlatRequirementCurve(requirement),
	}
	return utils.NewPlanInputForm(&input)
}

func TestSolvePlan(t *testing.T) {
	h := newTestHandler(t)

	rec, resp := solve(t, h, flatForm(0, 3), bearer(t))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success, resp.Message)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "optimal", resp.Data.SolveStatus)
	assert.Equal(t, int64(0), resp.Data.Objective)
	require.NotNil(t, resp.Data.Schedule)
	assert.Len(t, resp.Data.Schedule.Assignments, 3)
	for _, v := range resp.Data.Schedule.Staffed {
		assert.Equal(t, 3, v)
	}
}

func TestSolvePlan_NoSolution(t *testing.T) {
	h := newTestHandler(t)

	_, resp := solve(t, h, flatForm(7, 5000), bearer(t))
	require.True(t, resp.Success)
	assert.Equal(t, "没有找到可行的排班方案", resp.Message)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "infeasible", resp.Data.SolveStatus)
	assert.Nil(t, resp.Data.Schedule)
}

func TestSolvePlan_Validation(t *testing.T) {
	h := newTestHandler(t)

	form := flatForm(0, 3)
	form.Archetypes[0].DaysOff = 9
	_, resp := solve(t, h, form, bearer(t))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)

	form = flatForm(0, 3)
	form.Requirements = form.Requirements[:3]
	_, resp = solve(t, h, form, bearer(t))
	assert.False(t, resp.Success)
}

func TestSolvePlan_Auth(t *testing.T) {
	h := newTestHandler(t)

	rec, resp := solve(t, h, flatForm(0, 1), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = solve(t, h, flatForm(0, 1), "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 浏览器端通过 cookie 携带令牌
	token, _, err := utils.GenerateToken(testSecret, "tester", time.Hour)
	require.NoError(t, err)
	payload, err := json.Marshal(flatForm(0, 1))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/plans/solve", bytes.NewReader(payload))
	req.AddCookie(&http.Cookie{Name: handler.TokenCookieName, Value: token})
	rec = httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSolvePlan_MalformedBody(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/plans/solve", bytes.NewReader([]byte("{")))
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	var resp solveResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
}
