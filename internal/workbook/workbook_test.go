package workbook_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/utils"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/workbook"
	"github.com/xuri/excelize/v2"
)

func newLoader(t *testing.T) *workbook.Loader {
	t.Helper()
	validate, trans, err := utils.NewValidator()
	require.NoError(t, err)
	return workbook.NewLoader(validate, trans)
}

func sampleInput() domain.PlanInput {
	rc := domain.FlatRequirementCurve(1)
	rc[2][10] = 4
	return domain.PlanInput{
		Archetypes: []domain.ShiftArchetype{
			{StartTime: domain.NewTimeOfDay(9, 0), EndTime: domain.NewTimeOfDay(17, 0), DaysOff: 2},
			{StartTime: domain.NewTimeOfDay(22, 30), EndTime: domain.NewTimeOfDay(6, 30), DaysOff: 3},
		},
		Requirements: rc,
	}
}

func TestLoader_RoundTrip(t *testing.T) {
	input := sampleInput()

	var buf bytes.Buffer
	require.NoError(t, workbook.WriteInput(&buf, &input))

	got, err := newLoader(t).Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, input, *got)
}

func TestLoader_TimeAsDayFraction(t *testing.T) {
	input := sampleInput()
	f, err := workbook.NewInputFile(&input)
	require.NoError(t, err)
	defer f.Close()

	// 表格软件里的时间单元格存的是一天中的比例
	require.NoError(t, f.SetCellValue(workbook.ShiftsSheet, "A2", 0.25))
	require.NoError(t, f.SetCellValue(workbook.ShiftsSheet, "B2", 0.75))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	got, err := newLoader(t).Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, "06:00", got.Archetypes[0].StartTime.String())
	assert.Equal(t, "18:00", got.Archetypes[0].EndTime.String())
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *excelize.File) error
		target error
	}{
		{
			name:   "缺少 Requirements 工作表",
			mutate: func(f *excelize.File) error { return f.DeleteSheet(workbook.RequirementsSheet) },
			target: workbook.ErrMissingSheet,
		},
		{
			name:   "休息天数不是整数",
			mutate: func(f *excelize.File) error { return f.SetCellValue(workbook.ShiftsSheet, "C2", "two") },
			target: workbook.ErrInvalidWorkbook,
		},
		{
			name:   "休息天数超出范围",
			mutate: func(f *excelize.File) error { return f.SetCellValue(workbook.ShiftsSheet, "C2", 9) },
			target: workbook.ErrInvalidWorkbook,
		},
		{
			name:   "时间无法识别",
			mutate: func(f *excelize.File) error { return f.SetCellValue(workbook.ShiftsSheet, "A2", "noon") },
			target: workbook.ErrInvalidWorkbook,
		},
		{
			name:   "需求人数为负数",
			mutate: func(f *excelize.File) error { return f.SetCellValue(workbook.RequirementsSheet, "B2", -1) },
			target: workbook.ErrInvalidWorkbook,
		},
		{
			name:   "需求曲线缺一行",
			mutate: func(f *excelize.File) error { return f.RemoveRow(workbook.RequirementsSheet, 8) },
			target: workbook.ErrInvalidWorkbook,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := sampleInput()
			f, err := workbook.NewInputFile(&input)
			require.NoError(t, err)
			defer f.Close()
			require.NoError(t, tt.mutate(f))

			var buf bytes.Buffer
			require.NoError(t, f.Write(&buf))

			_, err = newLoader(t).Load(&buf)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestWriteOutput(t *testing.T) {
	input := sampleInput()
	schedule := &domain.SolvedSchedule{
		Assignments: []domain.Assignment{
			{StartTime: domain.NewTimeOfDay(9, 0), EndTime: domain.NewTimeOfDay(17, 0), DaysOff: []string{"Saturday", "Sunday"}},
		},
	}
	for d := 0; d < 5; d++ {
		for h := 9; h < 17; h++ {
			schedule.Staffed[d*domain.HoursInDay+h] = 1
		}
	}

	var buf bytes.Buffer
	require.NoError(t, workbook.WriteOutput(&buf, schedule, &input.Requirements))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	workers, err := f.GetRows(workbook.WorkersSheet)
	require.NoError(t, err)
	require.Len(t, workers, 2)
	assert.Equal(t, []string{"Worker ID", "Start time", "End time", "Days off"}, workers[0])
	assert.Equal(t, []string{"Worker 1", "09:00", "17:00", "Saturday, Sunday"}, workers[1])

	staffed, err := f.GetRows(workbook.StaffedSheet)
	require.NoError(t, err)
	require.Len(t, staffed, domain.HoursInWeek+1)
	assert.Equal(t, []string{"Monday", "09:00", "1", "1"}, staffed[10])
	assert.Equal(t, []string{"Wednesday", "10:00", "1", "4"}, staffed[2*domain.HoursInDay+10+1])
	assert.Equal(t, []string{"Sunday", "23:00", "0", "1"}, staffed[domain.HoursInWeek])

	width, err := f.GetColWidth(workbook.WorkersSheet, "D")
	require.NoError(t, err)
	assert.Equal(t, 40.0, width)
}
