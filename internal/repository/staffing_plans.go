package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
)

const planColumns = `
	id,
	job_id,
	name,
	owner,
	notify_email,
	status,
	input,
	result,
	created_at,
	finished_at,
	version
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(s rowScanner) (*domain.StaffingPlan, error) {
	var (
		plan       domain.StaffingPlan
		input      []byte
		result     []byte
		finishedAt sql.NullTime
	)

	dst := []any{
		&plan.ID,
		&plan.JobID,
		&plan.Name,
		&plan.Owner,
		&plan.NotifyEmail,
		&plan.Status,
		&input,
		&result,
		&plan.CreatedAt,
		&finishedAt,
		&plan.Version,
	}
	if err := s.Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(input, &plan.Input); err != nil {
		return nil, err
	}
	// result 为 NULL 说明还没有求解完成
	if result != nil {
		plan.Result = &domain.PlanResult{}
		if err := json.Unmarshal(result, plan.Result); err != nil {
			return nil, err
		}
	}
	if finishedAt.Valid {
		plan.FinishedAt = &finishedAt.Time
	}

	return &plan, nil
}

func (r *Repository) CreatePlan(plan *domain.StaffingPlan) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	input, err := json.Marshal(plan.Input)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO staffing_plans (job_id, name, owner, notify_email, status, input)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, version
	`

	params := []any{plan.JobID, plan.Name, plan.Owner, plan.NotifyEmail, domain.PlanStatusPending, string(input)}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&plan.ID, &plan.CreatedAt, &plan.Version); err != nil {
		return err
	}
	plan.Status = domain.PlanStatusPending

	return nil
}

// GetAllPlans 列出 owner 的所有方案，不包含每个人的分配明细
func (r *Repository) GetAllPlans(owner string) ([]*domain.StaffingPlan, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT ` + planColumns + ` FROM staffing_plans WHERE owner = $1 ORDER BY id DESC`

	rows, err := r.dbpool.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []*domain.StaffingPlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return plans, nil
}

// GetPlanByID 获取方案以及每个人的分配明细
func (r *Repository) GetPlanByID(id int64) (*domain.StaffingPlan, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT ` + planColumns + ` FROM staffing_plans WHERE id = $1`

	plan, err := scanPlan(r.dbpool.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if plan.Result == nil || plan.Result.Schedule == nil {
		return plan, nil
	}

	query = `
		SELECT start_time, end_time, days_off
		FROM plan_assignments
		WHERE plan_id = $1
		ORDER BY worker_no
	`

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := []domain.Assignment{}
	for rows.Next() {
		var row struct {
			StartTime string
			EndTime   string
			DaysOff   string
		}
		if err := rows.Scan(&row.StartTime, &row.EndTime, &row.DaysOff); err != nil {
			return nil, err
		}

		start, err := domain.ParseTimeOfDay(row.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := domain.ParseTimeOfDay(row.EndTime)
		if err != nil {
			return nil, err
		}
		daysOff := []string{}
		if row.DaysOff != "" {
			daysOff = strings.Split(row.DaysOff, ",")
		}
		assignments = append(assignments, domain.Assignment{StartTime: start, EndTime: end, DaysOff: daysOff})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	plan.Result.Schedule.Assignments = assignments

	return plan, nil
}

// SavePlanResult 保存求解结果，分配明细单独存放在 plan_assignments 中
func (r *Repository) SavePlanResult(plan *domain.StaffingPlan) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	var assignments []domain.Assignment
	summary := *plan.Result
	if summary.Schedule != nil {
		assignments = summary.Schedule.Assignments
		schedule := *summary.Schedule
		schedule.Assignments = nil
		summary.Schedule = &schedule
	}
	result, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE staffing_plans
		SET
			status = $1,
			result = $2,
			finished_at = NOW(),
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING finished_at, version
	`

	var finishedAt time.Time
	params := []any{plan.Status, string(result), plan.ID, plan.Version}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&finishedAt, &plan.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEditConflict
		}
		return err
	}
	plan.FinishedAt = &finishedAt

	// 重新求解时覆盖之前的明细
	query = `DELETE FROM plan_assignments WHERE plan_id = $1`
	if _, err := tx.ExecContext(ctx, query, plan.ID); err != nil {
		return err
	}

	for i, a := range assignments {
		query = `
			INSERT INTO plan_assignments (plan_id, worker_no, start_time, end_time, days_off)
			VALUES ($1, $2, $3, $4, $5)
		`
		params := []any{plan.ID, i + 1, a.StartTime.String(), a.EndTime.String(), strings.Join(a.DaysOff, ",")}
		if _, err := tx.ExecContext(ctx, query, params...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// MarkPlanFailed 求解出错时记录失败状态，result 保持为空
func (r *Repository) MarkPlanFailed(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		UPDATE staffing_plans
		SET
			status = $1,
			finished_at = NOW(),
			version = version + 1
		WHERE id = $2
	`

	_, err := r.dbpool.ExecContext(ctx, query, domain.PlanStatusFailed, id)
	return err
}

func (r *Repository) DeletePlan(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `DELETE FROM staffing_plans WHERE id = $1`

	res, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}
