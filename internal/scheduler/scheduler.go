package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
)

var (
	ErrInvalidInput        = errors.New("输入数据不合法")
	ErrDecodeInconsistency = errors.New("求解结果与模型不一致")
	ErrInvalidModel        = errors.New("求解器认为模型不合法")
)

type Scheduler struct {
	parameters     *Parameters
	archetypes     []domain.ShiftArchetype
	requirements   [domain.HoursInWeek]int
	maxRequirement int
	subtypes       []Subtype
}

func New(parameters *Parameters, archetypes []domain.ShiftArchetype, requirements *domain.RequirementCurve) (*Scheduler, error) {
	if parameters == nil {
		parameters = DefaultParameters()
	}
	if requirements == nil {
		return nil, fmt.Errorf("%w: 缺少需求曲线", ErrInvalidInput)
	}

	// 输入应当已经由加载方校验过，这里只做最基本的检查
	for i, a := range archetypes {
		if !a.StartTime.Valid() || !a.EndTime.Valid() {
			return nil, fmt.Errorf("%w: 班次 %d 的时间不合法", ErrInvalidInput, i+1)
		}
		if a.DaysOff < 0 || a.DaysOff > domain.DaysInWeek {
			return nil, fmt.Errorf("%w: 班次 %d 的休息天数 %d 不在 0~7 之间", ErrInvalidInput, i+1, a.DaysOff)
		}
	}

	s := &Scheduler{
		parameters:     parameters,
		archetypes:     archetypes,
		requirements:   requirements.Flatten(),
		maxRequirement: requirements.Max(),
	}
	for h, req := range s.requirements {
		if req < 0 {
			return nil, fmt.Errorf("%w: %s %02d:00 的需求人数为负数", ErrInvalidInput, domain.Weekdays[h/domain.HoursInDay], h%domain.HoursInDay)
		}
	}

	for _, a := range archetypes {
		s.subtypes = append(s.subtypes, GenerateSubtypes(a)...)
	}

	return s, nil
}

// Subtypes 按生成顺序返回所有 subtype
func (s *Scheduler) Subtypes() []Subtype {
	return s.subtypes
}

// Schedule 构建模型并求解
// 找不到解时返回 Found() 为 false 的结果而不是错误；只有建模缺陷会返回错误
func (s *Scheduler) Schedule() (*Result, error) {
	cm := buildCoverageModel(s.subtypes, &s.requirements, s.maxRequirement, s.parameters)
	m, err := cm.builder.Model()
	if err != nil {
		return nil, fmt.Errorf("无法构建模型: %w", err)
	}

	slog.Info("开始求解排班模型",
		"archetypes", len(s.archetypes),
		"subtypes", len(s.subtypes),
		"variables", len(m.GetVariables()),
		"constraints", len(m.GetConstraints()),
	)

	resp, err := cpmodel.SolveCpModelWithParameters(m, s.parameters.satParameters())
	if err != nil {
		return nil, fmt.Errorf("求解失败: %w", err)
	}
	if resp.GetStatus() == cmpb.CpSolverStatus_MODEL_INVALID {
		return nil, fmt.Errorf("%w: %s", ErrInvalidModel, resp.GetSolutionInfo())
	}

	result := &Result{
		Status:   statusFromSolver(resp.GetStatus()),
		WallTime: time.Duration(resp.GetWallTime() * float64(time.Second)),
	}

	switch result.Status {
	case StatusInfeasible:
		// 偏差变量没有硬约束，正常情况下不会不可行
		slog.Error("排班模型不可行，请检查建模或需求曲线", "maxRequirement", s.maxRequirement)
		return result, nil
	case StatusUnknown:
		slog.Warn("在限定时间内没有找到可行解", "wallTime", result.WallTime)
		return result, nil
	}

	schedule, counts, err := s.decode(cm, resp)
	if err != nil {
		return nil, err
	}

	result.Schedule = schedule
	result.Counts = counts
	// 目标函数的系数都是整数，求解器返回的浮点值可以直接取整
	result.Objective = int64(math.Round(resp.GetObjectiveValue()))
	result.TotalUnderstaff = cpmodel.SolutionIntegerValue(resp, cm.totalUnderstaff)
	result.TotalSquaredUnderstaff = cpmodel.SolutionIntegerValue(resp, cm.totalSquaredUnderstaff)
	result.TotalOverstaff = cpmodel.SolutionIntegerValue(resp, cm.totalOverstaff)
	result.TotalSquaredOverstaff = cpmodel.SolutionIntegerValue(resp, cm.totalSquaredOverstaff)

	slog.Info("排班模型求解完成",
		"status", result.Status,
		"objective", result.Objective,
		"workers", len(schedule.Assignments),
		"totalUnderstaff", result.TotalUnderstaff,
		"totalOverstaff", result.TotalOverstaff,
		"wallTime", result.WallTime,
	)

	return result, nil
}

// decode 将每个 subtype 的人数展开为逐个员工的班次安排
func (s *Scheduler) decode(cm *coverageModel, resp *cmpb.CpSolverResponse) (*domain.SolvedSchedule, []int64, error) {
	counts := make([]int64, len(s.subtypes))
	total := int64(0)
	for i := range s.subtypes {
		n := cpmodel.SolutionIntegerValue(resp, cm.counts[i])
		if n < 0 || n > int64(s.maxRequirement) {
			return nil, nil, fmt.Errorf("%w: subtype %d 的人数 %d 超出范围 [0, %d]", ErrDecodeInconsistency, i, n, s.maxRequirement)
		}
		counts[i] = n
		total += n
	}

	schedule := &domain.SolvedSchedule{
		Assignments: make([]domain.Assignment, 0, total),
	}
	for h := 0; h < domain.HoursInWeek; h++ {
		expected := int64(0)
		for i, st := range s.subtypes {
			expected += counts[i] * int64(st.Coverage[h])
		}
		staffed := cpmodel.SolutionIntegerValue(resp, cm.staffed[h])
		if staffed != expected {
			return nil, nil, fmt.Errorf("%w: 第 %d 小时的人数 %d 与覆盖向量计算结果 %d 不一致", ErrDecodeInconsistency, h, staffed, expected)
		}
		schedule.Staffed[h] = int(staffed)
	}

	for i, st := range s.subtypes {
		daysOff := st.Pattern.DaysOff()
		for n := int64(0); n < counts[i]; n++ {
			schedule.Assignments = append(schedule.Assignments, domain.Assignment{
				StartTime: st.StartTime,
				EndTime:   st.EndTime,
				DaysOff:   append([]string(nil), daysOff...),
			})
		}
	}

	return schedule, counts, nil
}
