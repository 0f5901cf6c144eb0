package utils

import (
	"math/rand"

	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
)

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
var digits = "0123456789"

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(len(letters))]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

// 常见的班次开始时间
var commonShiftStartHours = []int{0, 6, 7, 8, 9, 10, 12, 14, 16, 18, 22}

// GenerateRandomArchetypes 随机生成 n 个班次原型，时长 4~10 小时，每周休息 1~3 天
func GenerateRandomArchetypes(n int) []domain.ShiftArchetype {
	archetypes := make([]domain.ShiftArchetype, n)
	for i := range archetypes {
		startHour := commonShiftStartHours[rand.Intn(len(commonShiftStartHours))]
		length := rand.Intn(7) + 4
		minute := []int{0, 30}[rand.Intn(2)]

		archetypes[i] = domain.ShiftArchetype{
			StartTime: domain.NewTimeOfDay(startHour, minute),
			EndTime:   domain.NewTimeOfDay((startHour+length)%domain.HoursInDay, minute),
			DaysOff:   rand.Intn(3) + 1,
		}
	}
	return archetypes
}

// GenerateRandomRequirementCurve 随机生成需求曲线：白天高峰、夜间低谷，周末打折
func GenerateRandomRequirementCurve(peak int) domain.RequirementCurve {
	var rc domain.RequirementCurve
	for d := 0; d < domain.DaysInWeek; d++ {
		dayPeak := peak
		if d >= 5 {
			dayPeak = max(1, peak*2/3)
		}
		for h := 0; h < domain.HoursInDay; h++ {
			var base int
			switch {
			case h >= 9 && h < 18:
				base = dayPeak
			case h >= 7 && h < 22:
				base = max(1, dayPeak/2)
			default:
				base = max(1, dayPeak/4)
			}
			rc[d][h] = max(0, base+rand.Intn(3)-1)
		}
	}
	return rc
}

// GenerateRandomPlanInput 随机生成一组排班输入
func GenerateRandomPlanInput() domain.PlanInput {
	return domain.PlanInput{
		Archetypes:   GenerateRandomArchetypes(rand.Intn(4) + 2),
		Requirements: GenerateRandomRequirementCurve(rand.Intn(8) + 3),
	}
}

func GenerateRandomPlanName() string {
	return "排班方案" + GenerateRandomID(3, 3)
}
