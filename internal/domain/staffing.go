package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	HoursInDay  = 24
	DaysInWeek  = 7
	HoursInWeek = HoursInDay * DaysInWeek
)

// Weekdays 从周一开始，与需求曲线的行顺序一致
var Weekdays = [DaysInWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// TimeOfDay 一天中的时刻，精确到分钟
type TimeOfDay struct {
	Hour   int
	Minute int
}

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

// ParseTimeOfDay 支持 "15:04"、"15:04:05" 以及 "3:04 PM" 等格式
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05", "3:04 PM", "3:04:05 PM"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("无法解析时间 %q", s)
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < HoursInDay && t.Minute >= 0 && t.Minute < 60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.Hour < other.Hour || (t.Hour == other.Hour && t.Minute < other.Minute)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ShiftArchetype 班次原型：开始时间、结束时间以及每周休息天数
type ShiftArchetype struct {
	StartTime TimeOfDay `json:"startTime"`
	EndTime   TimeOfDay `json:"endTime"`
	DaysOff   int       `json:"daysOff"`
}

// RequirementCurve 每周 7 天 × 24 小时的需求人数
type RequirementCurve [DaysInWeek][HoursInDay]int

// Flatten 按 weekday*24+hour 展开为 168 个小时桶
func (rc *RequirementCurve) Flatten() [HoursInWeek]int {
	var flat [HoursInWeek]int
	for d := 0; d < DaysInWeek; d++ {
		for h := 0; h < HoursInDay; h++ {
			flat[d*HoursInDay+h] = rc[d][h]
		}
	}
	return flat
}

func (rc *RequirementCurve) Max() int {
	m := 0
	for d := 0; d < DaysInWeek; d++ {
		for h := 0; h < HoursInDay; h++ {
			m = max(m, rc[d][h])
		}
	}
	return m
}

// FlatRequirementCurve 每个小时桶的需求都为 n
func FlatRequirementCurve(n int) RequirementCurve {
	var rc RequirementCurve
	for d := 0; d < DaysInWeek; d++ {
		for h := 0; h < HoursInDay; h++ {
			rc[d][h] = n
		}
	}
	return rc
}

// Assignment 单个员工的班次安排
type Assignment struct {
	StartTime TimeOfDay `json:"startTime"`
	EndTime   TimeOfDay `json:"endTime"`
	DaysOff   []string  `json:"daysOff"`
}

// SolvedSchedule 求解得到的排班方案
type SolvedSchedule struct {
	Staffed     [HoursInWeek]int `json:"staffed"`
	Assignments []Assignment     `json:"assignments"`
}
