package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/seed"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/utils"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/workbook"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var dir string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机排班方案并提交求解, 2: 插入示例数据并提交求解, 3: 生成随机输入表格)")
	flag.IntVar(&n, "n", 5, "要生成的数量")
	flag.StringVar(&dir, "dir", ".", "生成表格的目录")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 生成表格不需要连接任何基础设施
	switch op {
	case 0:
		slog.Error("未指定操作")
		return
	case 3:
		writeRandomWorkbooks(dir, n)
		return
	case 1, 2:
	default:
		slog.Error("指定的操作非法")
		return
	}

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)
	if err := repo.EnsureSchema(); err != nil {
		logger.Error("无法创建表结构", "error", err)
		return
	}

	// 连接 rabbitmq，插入的方案会直接提交给 worker 求解
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 rabbitmq", "error", err)
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法建立通道", "error", err)
		return
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(domain.PlanQueue, true, false, false, false, nil); err != nil {
		logger.Error("无法声明队列", "error", err)
		return
	}

	switch op {
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的排班方案数量")
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			input := utils.GenerateRandomPlanInput()
			if err := submit(cfg, repo, ch, utils.GenerateRandomPlanName(), &input); err != nil {
				slog.Error("无法插入排班方案", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}

		slog.Info("插入排班方案成功", slog.Int("count", cnt))
	case 2:
		validate, trans, err := utils.NewValidator()
		if err != nil {
			slog.Error("无法创建校验器", slog.String("error", err.Error()))
			return
		}
		input, err := seed.SampleInput(validate, trans)
		if err != nil {
			slog.Error("示例数据不合法", slog.String("error", err.Error()))
			return
		}
		if err := submit(cfg, repo, ch, "示例门店"+utils.GenerateRandomID(0, 4), input); err != nil {
			slog.Error("无法插入示例排班方案", slog.String("error", err.Error()))
			return
		}

		slog.Info("插入示例排班方案成功")
	}
}

func submit(cfg *config.Config, repo *repository.Repository, ch *amqp.Channel, name string, input *domain.PlanInput) error {
	plan := &domain.StaffingPlan{
		JobID: uuid.New(),
		Name:  name,
		Owner: "seed",
		Input: *input,
	}
	if err := repo.CreatePlan(plan); err != nil {
		return err
	}

	body, err := json.Marshal(domain.PlanJobMessage{JobID: plan.JobID, PlanID: plan.ID})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return ch.PublishWithContext(
		ctx,
		"",
		domain.PlanQueue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    plan.JobID.String(),
			Body:         body,
		},
	)
}

func writeRandomWorkbooks(dir string, n int) {
	if n <= 0 {
		slog.Error("请输入合法的表格数量")
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("无法创建目录", slog.String("error", err.Error()))
		return
	}

	cnt := 0
	for i := 0; i < n; i++ {
		input := utils.GenerateRandomPlanInput()
		path := filepath.Join(dir, fmt.Sprintf("random_input_%d.xlsx", i+1))
		if err := workbook.WriteInputFile(path, &input); err != nil {
			slog.Error("无法生成表格", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		cnt++
	}

	slog.Info("生成随机输入表格成功", slog.Int("count", cnt), slog.String("dir", dir))
}
