package domain

import (
	"time"

	"github.com/google/uuid"
)

type PlanStatus string

const (
	PlanStatusPending    PlanStatus = "pending"
	PlanStatusSolved     PlanStatus = "solved"
	PlanStatusNoSolution PlanStatus = "no_solution"
	PlanStatusFailed     PlanStatus = "failed"
)

// 队列名称，api / seed 负责发布，worker / mail 负责消费
const (
	PlanQueue  = "plan_queue"
	EmailQueue = "email_queue"
)

type PlanInput struct {
	Archetypes   []ShiftArchetype `json:"archetypes"`
	Requirements RequirementCurve `json:"requirements"`
}

// PlanResult 求解结果的摘要，Schedule 为 nil 表示没有找到可行解
type PlanResult struct {
	SolveStatus            string          `json:"solveStatus"`
	Objective              int64           `json:"objective"`
	TotalUnderstaff        int64           `json:"totalUnderstaff"`
	TotalSquaredUnderstaff int64           `json:"totalSquaredUnderstaff"`
	TotalOverstaff         int64           `json:"totalOverstaff"`
	TotalSquaredOverstaff  int64           `json:"totalSquaredOverstaff"`
	Schedule               *SolvedSchedule `json:"schedule"`
}

type StaffingPlan struct {
	ID          int64       `json:"id"`
	JobID       uuid.UUID   `json:"jobID"`
	Name        string      `json:"name"`
	Owner       string      `json:"owner"`
	NotifyEmail string      `json:"notifyEmail"`
	Status      PlanStatus  `json:"status"`
	Input       PlanInput   `json:"input"`
	Result      *PlanResult `json:"result"`
	CreatedAt   time.Time   `json:"createdAt"`
	FinishedAt  *time.Time  `json:"finishedAt"`
	Version     int32       `json:"-"`
}

// PlanJobMessage 发布到 plan_queue 的消息体
type PlanJobMessage struct {
	JobID  uuid.UUID `json:"jobID"`
	PlanID int64     `json:"planID"`
}
