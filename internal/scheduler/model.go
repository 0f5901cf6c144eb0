package scheduler

import (
	"time"

	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
	sppb "github.com/google/or-tools/ortools/sat/proto/satparameters"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"google.golang.org/protobuf/proto"
)

// WeeklyPattern 一周的工作/休息模式，下标 0 为周一，true 表示当天上班
type WeeklyPattern [domain.DaysInWeek]bool

// WorkingDays 当周上班的天数
func (p WeeklyPattern) WorkingDays() int {
	n := 0
	for _, working := range p {
		if working {
			n++
		}
	}
	return n
}

// DaysOff 休息日的名称，按周一到周日的顺序
func (p WeeklyPattern) DaysOff() []string {
	days := make([]string, 0, domain.DaysInWeek)
	for d, working := range p {
		if !working {
			days = append(days, domain.Weekdays[d])
		}
	}
	return days
}

// Subtype 班次原型与某个工作模式的组合
type Subtype struct {
	Coverage  [domain.HoursInWeek]int
	Pattern   WeeklyPattern
	StartTime domain.TimeOfDay
	EndTime   domain.TimeOfDay
}

// 求解参数
type Parameters struct {
	UnderstaffWeight int64         // 欠配惩罚权重
	OverstaffWeight  int64         // 超配惩罚权重
	TimeLimit        time.Duration // 求解时间上限，0 表示不限制
	Seed             int64         // CP-SAT 随机种子
	NumWorkers       int           // CP-SAT 并行搜索的线程数，0 表示由求解器决定
}

func DefaultParameters() *Parameters {
	return &Parameters{
		UnderstaffWeight: 2,
		OverstaffWeight:  1,
		Seed:             1,
		NumWorkers:       8,
	}
}

func (p *Parameters) satParameters() *sppb.SatParameters {
	params := &sppb.SatParameters{
		RandomSeed: proto.Int32(int32(p.Seed)),
	}
	if p.NumWorkers > 0 {
		params.NumWorkers = proto.Int32(int32(p.NumWorkers))
	}
	if p.TimeLimit > 0 {
		params.MaxTimeInSeconds = proto.Float64(p.TimeLimit.Seconds())
	}
	return params
}

type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusFeasible   Status = "feasible"
	StatusInfeasible Status = "infeasible"
	StatusUnknown    Status = "unknown"
)

func statusFromSolver(s cmpb.CpSolverStatus) Status {
	switch s {
	case cmpb.CpSolverStatus_OPTIMAL:
		return StatusOptimal
	case cmpb.CpSolverStatus_FEASIBLE:
		return StatusFeasible
	case cmpb.CpSolverStatus_INFEASIBLE:
		return StatusInfeasible
	}
	return StatusUnknown
}

// Result 一次求解的结果
// 只有 Found() 为 true 时 Schedule 才不为 nil，没有解时不会返回空的排班方案
type Result struct {
	Status                 Status
	Schedule               *domain.SolvedSchedule
	Counts                 []int64 // 每个 subtype 分配的人数，与 Subtypes() 的顺序一致
	Objective              int64
	TotalUnderstaff        int64
	TotalSquaredUnderstaff int64
	TotalOverstaff         int64
	TotalSquaredOverstaff  int64
	WallTime               time.Duration
}

func (r *Result) Found() bool {
	return r.Status == StatusOptimal || r.Status == StatusFeasible
}

// PlanResult 转换为可以持久化的结果摘要
func (r *Result) PlanResult() *domain.PlanResult {
	return &domain.PlanResult{
		SolveStatus:            string(r.Status),
		Objective:              r.Objective,
		TotalUnderstaff:        r.TotalUnderstaff,
		TotalSquaredUnderstaff: r.TotalSquaredUnderstaff,
		TotalOverstaff:         r.TotalOverstaff,
		TotalSquaredOverstaff:  r.TotalSquaredOverstaff,
		Schedule:               r.Schedule,
	}
}
