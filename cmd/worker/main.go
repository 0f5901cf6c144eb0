package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/cache"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/repository"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type worker struct {
	cfg         *config.Config
	logger      *slog.Logger
	repo        *repository.Repository
	resultCache *cache.ResultCache
	ch          *amqp.Channel
}

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer pingCancel()
	if err := dbpool.PingContext(pingCtx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer rdb.Close()

	resultCache, err := cache.NewResultCache(cfg, rdb)
	if err != nil {
		logger.Error("无法创建结果缓存", "error", err)
		return
	}

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	// 求解比较耗时，每次只取 prefetch 条任务
	if err := ch.Qos(cfg.RabbitMQ.Prefetch, 0, false); err != nil {
		logger.Error("无法设置预取数量", slog.String("error", err.Error()))
		return
	}

	// 求解任务队列和完成通知的邮件队列都需要声明
	for _, name := range []string{domain.PlanQueue, domain.EmailQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			logger.Error("无法声明队列", slog.String("queue", name), slog.String("error", err.Error()))
			return
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	msgs, err := ch.Consume(
		domain.PlanQueue,
		"",
		false, // 求解完成并保存后才手动确认
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		os.Exit(1)
	}

	w := &worker{
		cfg:         cfg,
		logger:      logger,
		repo:        repo,
		resultCache: resultCache,
		ch:          ch,
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Error("消息通道已关闭")
					return
				}
				w.handle(ctx, msg)
			}
		}
	}()

	logger.Info("等待求解任务...（按 CTRL+C 退出）")
	<-sigChan

	slog.Info("正在关闭 plan worker...")
	cancel()
	wg.Wait()
	slog.Info("plan worker 已成功关闭")
}

func (w *worker) handle(ctx context.Context, msg amqp.Delivery) {
	job := domain.PlanJobMessage{}
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		w.logger.Error("任务消息反序列化失败", slog.String("error", err.Error()))
		_ = msg.Nack(false, false)
		return
	}
	logger := w.logger.With("planID", job.PlanID, "jobID", job.JobID)
	logger.Info("收到求解任务")

	plan, err := w.repo.GetPlanByID(job.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// 方案在求解前已被删除
			logger.Warn("排班方案不存在，丢弃任务")
			_ = msg.Ack(false)
		default:
			logger.Error("无法读取排班方案", slog.String("error", err.Error()))
			_ = msg.Nack(false, true)
		}
		return
	}

	if plan.JobID != job.JobID || plan.Status != domain.PlanStatusPending {
		logger.Warn("任务已过期或已经处理过，丢弃任务", "status", plan.Status)
		_ = msg.Ack(false)
		return
	}

	result, err := w.resultCache.Solve(ctx, &plan.Input, w.cfg.Solver.Parameters())
	if err != nil {
		logger.Error("求解失败", slog.String("error", err.Error()))
		if err := w.repo.MarkPlanFailed(plan.ID); err != nil {
			logger.Error("无法更新方案状态", slog.String("error", err.Error()))
			_ = msg.Nack(false, true)
			return
		}
		plan.Status = domain.PlanStatusFailed
		w.notify(ctx, plan)
		_ = msg.Ack(false)
		return
	}

	plan.Result = result
	plan.Status = domain.PlanStatusSolved
	if result.Schedule == nil {
		plan.Status = domain.PlanStatusNoSolution
	}

	if err := w.repo.SavePlanResult(plan); err != nil {
		switch {
		case errors.Is(err, repository.ErrEditConflict):
			logger.Warn("方案已被其他 worker 更新，丢弃本次结果")
			_ = msg.Ack(false)
		default:
			logger.Error("无法保存求解结果", slog.String("error", err.Error()))
			_ = msg.Nack(false, true)
		}
		return
	}

	logger.Info("求解任务完成", "status", plan.Status, "objective", result.Objective)
	w.notify(ctx, plan)
	_ = msg.Ack(false)
}

// notify 通知失败不影响任务本身，只记录日志
func (w *worker) notify(ctx context.Context, plan *domain.StaffingPlan) {
	if plan.NotifyEmail == "" {
		return
	}

	data := domain.PlanFinishedMailData{
		PlanID:   plan.ID,
		PlanName: plan.Name,
		Status:   string(plan.Status),
	}
	if plan.Result != nil {
		data.TotalUnderstaff = plan.Result.TotalUnderstaff
		data.TotalOverstaff = plan.Result.TotalOverstaff
		if plan.Result.Schedule != nil {
			data.WorkerCount = len(plan.Result.Schedule.Assignments)
		}
	}

	body, err := json.Marshal(domain.MailMessage{
		Type: domain.MailTypePlanFinished,
		To:   plan.NotifyEmail,
		Data: data,
	})
	if err != nil {
		w.logger.Error("邮件信息序列化失败", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(w.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := w.ch.PublishWithContext(
		ctx,
		"",
		domain.EmailQueue,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		w.logger.Error("无法发布邮件通知", slog.String("error", err.Error()))
	}
}
