package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/scheduler"
	"golang.org/x/crypto/blake2b"
)

const keyPrefix = "plan_result_"

// ResultCache 两级的求解结果缓存：进程内 LRU 在前，redis 在后
// redis 客户端可以为 nil，此时只使用进程内缓存
type ResultCache struct {
	local      *lru.Cache[string, *domain.PlanResult]
	rdb        *redis.Client
	expiration time.Duration
	timeout    time.Duration
}

func NewResultCache(cfg *config.Config, rdb *redis.Client) (*ResultCache, error) {
	local, err := lru.New[string, *domain.PlanResult](cfg.Cache.LocalSize)
	if err != nil {
		return nil, err
	}

	return &ResultCache{
		local:      local,
		rdb:        rdb,
		expiration: time.Duration(cfg.Cache.ResultExpiration) * time.Minute,
		timeout:    time.Duration(cfg.Cache.OperationTimeout) * time.Second,
	}, nil
}

// Key 由输入和影响结果的求解参数计算缓存键
// 时间上限不参与计算，被时间上限打断的结果不会写入缓存
func Key(input *domain.PlanInput, params *scheduler.Parameters) (string, error) {
	payload, err := json.Marshal(struct {
		Input            *domain.PlanInput `json:"input"`
		UnderstaffWeight int64             `json:"understaffWeight"`
		OverstaffWeight  int64             `json:"overstaffWeight"`
		Seed             int64             `json:"seed"`
		NumWorkers       int               `json:"numWorkers"`
	}{
		Input:            input,
		UnderstaffWeight: params.UnderstaffWeight,
		OverstaffWeight:  params.OverstaffWeight,
		Seed:             params.Seed,
		NumWorkers:       params.NumWorkers,
	})
	if err != nil {
		return "", err
	}

	sum := blake2b.Sum256(payload)
	return keyPrefix + hex.EncodeToString(sum[:]), nil
}

// Get 返回缓存的结果，未命中时第二个返回值为 false
func (c *ResultCache) Get(ctx context.Context, key string) (*domain.PlanResult, bool, error) {
	if result, ok := c.local.Get(key); ok {
		return result, true, nil
	}
	if c.rdb == nil {
		return nil, false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	result := &domain.PlanResult{}
	if err := json.Unmarshal(data, result); err != nil {
		// 缓存内容损坏时当作未命中，由调用方重新求解并覆盖
		slog.Warn("缓存内容无法解析", "key", key, "error", err)
		return nil, false, nil
	}

	c.local.Add(key, result)
	return result, true, nil
}

func (c *ResultCache) Set(ctx context.Context, key string, result *domain.PlanResult) error {
	c.local.Add(key, result)
	if c.rdb == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.rdb.Set(ctx, key, data, c.expiration).Err()
}

// Cacheable 只有确定性的结果才值得缓存
// 可行解只有在没有设置时间上限时才缓存，否则换一台机器可能得到不同的结果
func Cacheable(result *domain.PlanResult, params *scheduler.Parameters) bool {
	switch scheduler.Status(result.SolveStatus) {
	case scheduler.StatusOptimal, scheduler.StatusInfeasible:
		return true
	case scheduler.StatusFeasible:
		return params.TimeLimit == 0
	}
	return false
}

// Solve 先查缓存，未命中时求解并把确定性的结果写回缓存
// 缓存读写失败只记录日志，不影响求解
func (c *ResultCache) Solve(ctx context.Context, input *domain.PlanInput, params *scheduler.Parameters) (*domain.PlanResult, error) {
	key, err := Key(input, params)
	if err != nil {
		return nil, err
	}

	cached, ok, err := c.Get(ctx, key)
	if err != nil {
		slog.Warn("无法读取求解结果缓存", "key", key, "error", err)
	}
	if ok {
		slog.Info("命中求解结果缓存", "key", key)
		return cached, nil
	}

	s, err := scheduler.New(params, input.Archetypes, &input.Requirements)
	if err != nil {
		return nil, err
	}
	result, err := s.Schedule()
	if err != nil {
		return nil, err
	}

	planResult := result.PlanResult()
	if Cacheable(planResult, params) {
		if err := c.Set(ctx, key, planResult); err != nil {
			slog.Warn("无法写入求解结果缓存", "key", key, "error", err)
		}
	}

	return planResult, nil
}
