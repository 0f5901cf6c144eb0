package scheduler

import (
	"fmt"

	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
)

// 辅助变量（每小时人数、偏差、平方偏差以及它们的总和）的上界
const auxUpperBound = 10_000_000

// WeeklyPatterns 列出休息 daysOff 天的所有工作模式，按休息日集合的字典序排列
func WeeklyPatterns(daysOff int) []WeeklyPattern {
	combs := combinations(domain.DaysInWeek, daysOff)
	patterns := make([]WeeklyPattern, 0, len(combs))
	for _, comb := range combs {
		var p WeeklyPattern
		for d := range p {
			p[d] = true
		}
		for _, d := range comb {
			p[d] = false
		}
		patterns = append(patterns, p)
	}
	return patterns
}

// GenerateSubtypes 将班次原型展开为每种工作模式对应的 subtype，并计算 168 小时的覆盖向量
func GenerateSubtypes(archetype domain.ShiftArchetype) []Subtype {
	startHour, endHour := normalizedHours(archetype.StartTime, archetype.EndTime)
	patterns := WeeklyPatterns(archetype.DaysOff)

	subtypes := make([]Subtype, 0, len(patterns))
	for _, pattern := range patterns {
		st := Subtype{
			Pattern:   pattern,
			StartTime: archetype.StartTime,
			EndTime:   archetype.EndTime,
		}
		for d := 0; d < domain.DaysInWeek; d++ {
			prev := (d - 1 + domain.DaysInWeek) % domain.DaysInWeek
			for h := 0; h < domain.HoursInDay; h++ {
				// 当天开始的班次，或者前一天开始、跨过零点延续到当天的班次
				if (pattern[d] && startHour <= h && h < endHour) ||
					(pattern[prev] && startHour <= h+domain.HoursInDay && h+domain.HoursInDay < endHour) {
					st.Coverage[d*domain.HoursInDay+h] = 1
				}
			}
		}
		subtypes = append(subtypes, st)
	}
	return subtypes
}

// coverageModel 一次求解使用的全部变量，只在 Schedule 调用期间存在
type coverageModel struct {
	builder *cpmodel.Builder

	counts       []cpmodel.IntVar
	staffed      [domain.HoursInWeek]cpmodel.IntVar
	understaff   [domain.HoursInWeek]cpmodel.IntVar
	overstaff    [domain.HoursInWeek]cpmodel.IntVar
	sqUnderstaff [domain.HoursInWeek]cpmodel.IntVar
	sqOverstaff  [domain.HoursInWeek]cpmodel.IntVar

	totalUnderstaff        cpmodel.IntVar
	totalSquaredUnderstaff cpmodel.IntVar
	totalOverstaff         cpmodel.IntVar
	totalSquaredOverstaff  cpmodel.IntVar
}

/**
 * 构建覆盖模型
 * 		1. 每个 subtype 一个人数变量 count_i ∈ [0, maxRequirement]
 * 		2. staffed_h = Σ count_i * coverage_i[h]
 * 		3. understaff_h = max(0, req_h - staffed_h)，overstaff_h = max(0, staffed_h - req_h)
 * 		4. 平方偏差通过乘积等式得到，最后对 168 个小时求和
 */
func buildCoverageModel(subtypes []Subtype, requirements *[domain.HoursInWeek]int, maxRequirement int, params *Parameters) *coverageModel {
	b := cpmodel.NewCpModelBuilder()
	cm := &coverageModel{
		builder: b,
		counts:  make([]cpmodel.IntVar, len(subtypes)),
	}

	for i := range subtypes {
		cm.counts[i] = b.NewIntVar(0, int64(maxRequirement)).WithName(fmt.Sprintf("num_needed_%d", i))
	}

	for h := 0; h < domain.HoursInWeek; h++ {
		cm.staffed[h] = b.NewIntVar(0, auxUpperBound).WithName(fmt.Sprintf("cnt_workers_%d", h))
		expr := cpmodel.NewLinearExpr()
		for i, st := range subtypes {
			if st.Coverage[h] != 0 {
				expr.AddTerm(cm.counts[i], int64(st.Coverage[h]))
			}
		}
		b.AddEquality(cm.staffed[h], expr)
	}

	for h := 0; h < domain.HoursInWeek; h++ {
		req := int64(requirements[h])
		cm.understaff[h] = b.NewIntVar(0, auxUpperBound).WithName(fmt.Sprintf("understaff_%d", h))
		cm.overstaff[h] = b.NewIntVar(0, auxUpperBound).WithName(fmt.Sprintf("overstaff_%d", h))
		cm.sqUnderstaff[h] = b.NewIntVar(0, auxUpperBound).WithName(fmt.Sprintf("squared_understaff_%d", h))
		cm.sqOverstaff[h] = b.NewIntVar(0, auxUpperBound).WithName(fmt.Sprintf("squared_overstaff_%d", h))

		b.AddMaxEquality(cm.understaff[h], cpmodel.NewConstant(0), cpmodel.NewConstant(req).AddTerm(cm.staffed[h], -1))
		b.AddMaxEquality(cm.overstaff[h], cpmodel.NewConstant(0), cpmodel.NewConstant(-req).Add(cm.staffed[h]))
		b.AddMultiplicationEquality(cm.sqUnderstaff[h], cm.understaff[h], cm.understaff[h])
		b.AddMultiplicationEquality(cm.sqOverstaff[h], cm.overstaff[h], cm.overstaff[h])
	}

	cm.totalUnderstaff = b.NewIntVar(0, auxUpperBound).WithName("total_understaff")
	cm.totalSquaredUnderstaff = b.NewIntVar(0, auxUpperBound).WithName("total_squared_understaff")
	cm.totalOverstaff = b.NewIntVar(0, auxUpperBound).WithName("total_overstaff")
	cm.totalSquaredOverstaff = b.NewIntVar(0, auxUpperBound).WithName("total_squared_overstaff")

	b.AddEquality(cm.totalUnderstaff, sum(cm.understaff[:]))
	b.AddEquality(cm.totalSquaredUnderstaff, sum(cm.sqUnderstaff[:]))
	b.AddEquality(cm.totalOverstaff, sum(cm.overstaff[:]))
	b.AddEquality(cm.totalSquaredOverstaff, sum(cm.sqOverstaff[:]))

	b.Minimize(cpmodel.NewLinearExpr().
		AddTerm(cm.totalSquaredUnderstaff, params.UnderstaffWeight).
		AddTerm(cm.totalSquaredOverstaff, params.OverstaffWeight))

	return cm
}

func sum(vars []cpmodel.IntVar) *cpmodel.LinearExpr {
	expr := cpmodel.NewLinearExpr()
	for _, v := range vars {
		expr.Add(v)
	}
	return expr
}
