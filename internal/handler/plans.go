package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/utils"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/workbook"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type planMeta struct {
	Name        string `json:"name" validate:"required,max=64"`
	NotifyEmail string `json:"notifyEmail" validate:"omitempty,email"`
}

// submitPlan 保存方案并把求解任务放入 plan_queue，由 worker 异步求解
func (h *Handler) submitPlan(w http.ResponseWriter, r *http.Request, meta planMeta, input *domain.PlanInput) {
	plan := &domain.StaffingPlan{
		JobID:       uuid.New(),
		Name:        meta.Name,
		Owner:       r.Context().Value(SubCtxKey).(string),
		NotifyEmail: meta.NotifyEmail,
		Input:       *input,
	}

	if err := h.repository.CreatePlan(plan); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "staffing_plans_owner_name_key":
				h.errorResponse(w, r, "排班方案名称已存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	job, err := json.Marshal(domain.PlanJobMessage{JobID: plan.JobID, PlanID: plan.ID})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := h.planChannel.PublishWithContext(
		ctx,
		"",
		domain.PlanQueue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    plan.JobID.String(),
			Body:         job,
		},
	); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "排班方案已提交，正在求解", plan)
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		planMeta
		utils.PlanInputForm
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	input, err := req.PlanInputForm.ToDomain()
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.submitPlan(w, r, req.planMeta, &input)
}

// ImportPlan 通过上传表格创建排班方案，表格格式与命令行工具的输入相同
func (h *Handler) ImportPlan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.Server.MaxUploadSize)
	if err := r.ParseMultipartForm(h.config.Server.MaxUploadSize); err != nil {
		h.errorResponse(w, r, "无法解析上传的表格")
		return
	}

	meta := planMeta{
		Name:        r.FormValue("name"),
		NotifyEmail: r.FormValue("notifyEmail"),
	}
	if err := h.validate.Struct(meta); err != nil {
		h.badRequest(w, r, err)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.errorResponse(w, r, "缺少表格文件")
		return
	}
	defer file.Close()

	input, err := h.loader.Load(file)
	if err != nil {
		switch {
		case errors.Is(err, workbook.ErrMissingSheet), errors.Is(err, workbook.ErrInvalidWorkbook):
			h.errorResponse(w, r, err.Error())
		default:
			h.errorResponse(w, r, "无法读取表格文件")
		}
		return
	}

	h.submitPlan(w, r, meta, input)
}

// SolvePlan 同步求解，结果按输入缓存
func (h *Handler) SolvePlan(w http.ResponseWriter, r *http.Request) {
	var req utils.PlanInputForm

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	input, err := req.ToDomain()
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	result, err := h.resultCache.Solve(r.Context(), &input, h.config.Solver.Parameters())
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrInvalidInput):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if result.Schedule == nil {
		h.successResponse(w, r, "没有找到可行的排班方案", result)
		return
	}
	h.successResponse(w, r, "求解成功", result)
}

func (h *Handler) GetAllPlans(w http.ResponseWriter, r *http.Request) {
	owner := r.Context().Value(SubCtxKey).(string)

	plans, err := h.repository.GetAllPlans(owner)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取所有排班方案成功", plans)
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(PlanCtx).(*domain.StaffingPlan)

	h.successResponse(w, r, "获取排班方案成功", plan)
}

func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(PlanCtx).(*domain.StaffingPlan)

	if err := h.repository.DeletePlan(plan.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "排班方案不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除排班方案成功", nil)
}

// ExportPlan 以表格的形式下载求解结果
func (h *Handler) ExportPlan(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(PlanCtx).(*domain.StaffingPlan)

	if plan.Result == nil || plan.Result.Schedule == nil {
		switch plan.Status {
		case domain.PlanStatusPending:
			h.errorResponse(w, r, "排班方案还在求解中")
		default:
			h.errorResponse(w, r, "排班方案没有可导出的结果")
		}
		return
	}

	f, err := workbook.NewOutputFile(plan.Result.Schedule, &plan.Input.Requirements)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("%s.xlsx", strings.TrimSpace(plan.Name))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	if err := f.Write(w); err != nil {
		// 此时响应头已经发出，只能记录日志
		h.logInternalServerError(r, err)
	}
}
