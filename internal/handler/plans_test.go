package handler_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/cache"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/handler"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/utils"
)

// memoryStore 在内存中模拟 staffing_plans 表，包括 (owner, name) 唯一约束
type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	plans  map[int64]*domain.StaffingPlan
}

func newMemoryStore() *memoryStore {
	return &memoryStore{plans: map[int64]*domain.StaffingPlan{}}
}

func (s *memoryStore) CreatePlan(plan *domain.StaffingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.plans {
		if p.Owner == plan.Owner && p.Name == plan.Name {
			return &pgconn.PgError{Code: "23505", ConstraintName: "staffing_plans_owner_name_key"}
		}
	}

	s.nextID++
	plan.ID = s.nextID
	plan.Status = domain.PlanStatusPending
	plan.CreatedAt = time.Now()
	plan.Version = 1
	s.plans[plan.ID] = plan
	return nil
}

func (s *memoryStore) GetAllPlans(owner string) ([]*domain.StaffingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plans := []*domain.StaffingPlan{}
	for _, p := range s.plans {
		if p.Owner == owner {
			plans = append(plans, p)
		}
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID > plans[j].ID })
	return plans, nil
}

func (s *memoryStore) GetPlanByID(id int64) (*domain.StaffingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (s *memoryStore) DeletePlan(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.plans, id)
	return nil
}

func newStoreHandler(t *testing.T, store handler.PlanStore) *handler.Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	cfg.Cache.LocalSize = 16
	cfg.Cache.OperationTimeout = 1
	cfg.RabbitMQ.PublishTimeout = 1

	resultCache, err := cache.NewResultCache(cfg, nil)
	require.NoError(t, err)

	h, err := handler.NewHandler(cfg, store, nil, resultCache)
	require.NoError(t, err)
	h.RegisterRoutes()
	return h
}

func tokenFor(t *testing.T, subject string) string {
	t.Helper()
	token, _, err := utils.GenerateToken(testSecret, subject, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

type plansResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    []*domain.StaffingPlan `json:"data"`
}

type planResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Data    *domain.StaffingPlan `json:"data"`
}

func do(t *testing.T, h *handler.Handler, method, path string, body []byte, auth string, v any) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	if v != nil {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
	}
	return rec
}

func seedPlan(t *testing.T, store *memoryStore, owner, name string) *domain.StaffingPlan {
	t.Helper()
	plan := &domain.StaffingPlan{
		Name:  name,
		Owner: owner,
		Input: domain.PlanInput{
			Archetypes: []domain.ShiftArchetype{
				{StartTime: domain.NewTimeOfDay(9, 0), EndTime: domain.NewTimeOfDay(17, 0), DaysOff: 2},
			},
			Requirements: domain.FlatRequirementCurve(1),
		},
	}
	require.NoError(t, store.CreatePlan(plan))
	return plan
}

func TestPlans_OwnerScoping(t *testing.T) {
	store := newMemoryStore()
	h := newStoreHandler(t, store)

	alicePlan := seedPlan(t, store, "alice", "第一周")
	seedPlan(t, store, "bob", "第一周")

	alice, bob := tokenFor(t, "alice"), tokenFor(t, "bob")

	// 列表只包含自己的方案
	var list plansResponse
	do(t, h, http.MethodGet, "/plans", nil, alice, &list)
	require.True(t, list.Success, list.Message)
	require.Len(t, list.Data, 1)
	assert.Equal(t, alicePlan.ID, list.Data[0].ID)
	assert.Equal(t, "alice", list.Data[0].Owner)

	path := "/plans/" + strconv.FormatInt(alicePlan.ID, 10)

	var got planResponse
	do(t, h, http.MethodGet, path, nil, alice, &got)
	require.True(t, got.Success, got.Message)
	assert.Equal(t, alicePlan.ID, got.Data.ID)

	// 其他人访问时当作不存在
	got = planResponse{}
	do(t, h, http.MethodGet, path, nil, bob, &got)
	assert.False(t, got.Success)
	assert.Equal(t, "排班方案不存在", got.Message)
	assert.Nil(t, got.Data)

	got = planResponse{}
	do(t, h, http.MethodGet, path+"/export", nil, bob, &got)
	assert.False(t, got.Success)
	assert.Equal(t, "排班方案不存在", got.Message)

	got = planResponse{}
	do(t, h, http.MethodDelete, path, nil, bob, &got)
	assert.False(t, got.Success)
	assert.Equal(t, "排班方案不存在", got.Message)

	_, err := store.GetPlanByID(alicePlan.ID)
	assert.NoError(t, err, "其他人不能删除方案")

	got = planResponse{}
	do(t, h, http.MethodDelete, path, nil, alice, &got)
	assert.True(t, got.Success, got.Message)
	_, err = store.GetPlanByID(alicePlan.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCreatePlan_DuplicateNameForSameOwner(t *testing.T) {
	store := newMemoryStore()
	h := newStoreHandler(t, store)
	seedPlan(t, store, "alice", "第一周")

	body, err := json.Marshal(map[string]any{
		"name":         "第一周",
		"archetypes":   flatForm(0, 1).Archetypes,
		"requirements": flatForm(0, 1).Requirements,
	})
	require.NoError(t, err)

	var resp planResponse
	do(t, h, http.MethodPost, "/plans", body, tokenFor(t, "alice"), &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "排班方案名称已存在", resp.Message)
}
