package seed_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/seed"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/utils"
)

func TestSampleInput(t *testing.T) {
	validate, trans, err := utils.NewValidator()
	require.NoError(t, err)

	input, err := seed.SampleInput(validate, trans)
	require.NoError(t, err)
	assert.Len(t, input.Archetypes, 6)
	assert.Equal(t, domain.NewTimeOfDay(22, 0), input.Archetypes[4].StartTime)
	assert.Equal(t, 14, input.Requirements.Max())
	assert.Equal(t, 2, input.Requirements[0][0])
}

func TestSampleInput_SolvesToOptimal(t *testing.T) {
	if testing.Short() {
		t.Skip("示例数据求解较慢")
	}

	validate, trans, err := utils.NewValidator()
	require.NoError(t, err)
	input, err := seed.SampleInput(validate, trans)
	require.NoError(t, err)

	s, err := scheduler.New(nil, input.Archetypes, &input.Requirements)
	require.NoError(t, err)
	res, err := s.Schedule()
	require.NoError(t, err)

	// 不设置时间上限时应当证明最优，而不是停在某个可行解上
	assert.Equal(t, scheduler.StatusOptimal, res.Status)
	require.NotNil(t, res.Schedule)
	assert.Equal(t, 2*res.TotalSquaredUnderstaff+res.TotalSquaredOverstaff, res.Objective)
}

func TestReadCSVInput_Errors(t *testing.T) {
	validate, trans, err := utils.NewValidator()
	require.NoError(t, err)

	header := "weekday," + strings.Repeat("h,", 23) + "h\n"
	row := strings.TrimSuffix(strings.Repeat("1,", 24), ",")
	week := ""
	for _, day := range domain.Weekdays {
		week += day + "," + row + "\n"
	}

	tests := []struct {
		name         string
		shifts       string
		requirements string
	}{
		{"空文件", "", header + week},
		{"休息天数不是整数", "s,e,d\n09:00,17:00,x\n", header + week},
		{"休息天数超出范围", "s,e,d\n09:00,17:00,8\n", header + week},
		{"列数错误", "s,e,d\n09:00,17:00\n", header + week},
		{"需求不是整数", "s,e,d\n09:00,17:00,2\n", header + "Monday," + strings.Repeat("a,", 23) + "a\n"},
		{"需求行数不足", "s,e,d\n09:00,17:00,2\n", header + "Monday," + row + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := seed.ReadCSVInput(strings.NewReader(tt.shifts), strings.NewReader(tt.requirements), validate, trans)
			assert.Error(t, err)
		})
	}

	input, err := seed.ReadCSVInput(strings.NewReader("s,e,d\n09:00,17:00,2\n"), strings.NewReader(header+week), validate, trans)
	require.NoError(t, err)
	assert.Equal(t, 1, input.Requirements[6][23])
}
