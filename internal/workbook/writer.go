package workbook

import (
	"fmt"
	"io"
	"strings"

	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	workersFillColor = "A2E1E8"
	staffedFillColor = "F2BDEF"
)

func thinBorders() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

// tableStyles 表头加粗，其余单元格只有填充色、边框和居中
func tableStyles(f *excelize.File, color string) (header int, body int, err error) {
	header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Border:    thinBorders(),
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return 0, 0, err
	}
	body, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Border:    thinBorders(),
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return 0, 0, err
	}
	return header, body, nil
}

func writeTable(f *excelize.File, sheet string, header []any, rows [][]any, color string, widths []float64) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	headerStyle, bodyStyle, err := tableStyles(f, color)
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	if len(rows) > 0 {
		if err := f.SetCellStyle(sheet, "A2", fmt.Sprintf("%s%d", lastCol, len(rows)+1), bodyStyle); err != nil {
			return err
		}
	}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

// NewOutputFile 生成包含 Workers 与 Staffed 两个工作表的结果表格
func NewOutputFile(schedule *domain.SolvedSchedule, requirements *domain.RequirementCurve) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", WorkersSheet); err != nil {
		f.Close()
		return nil, err
	}

	workers := make([][]any, len(schedule.Assignments))
	for i, a := range schedule.Assignments {
		workers[i] = []any{fmt.Sprintf("Worker %d", i+1), a.StartTime.String(), a.EndTime.String(), strings.Join(a.DaysOff, ", ")}
	}
	if err := writeTable(f, WorkersSheet,
		[]any{"Worker ID", "Start time", "End time", "Days off"},
		workers, workersFillColor, []float64{10, 10, 10, 40},
	); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(StaffedSheet); err != nil {
		f.Close()
		return nil, err
	}
	flat := requirements.Flatten()
	staffed := make([][]any, domain.HoursInWeek)
	for h := 0; h < domain.HoursInWeek; h++ {
		staffed[h] = []any{
			domain.Weekdays[h/domain.HoursInDay],
			domain.NewTimeOfDay(h%domain.HoursInDay, 0).String(),
			schedule.Staffed[h],
			flat[h],
		}
	}
	if err := writeTable(f, StaffedSheet,
		[]any{"Weekday", "Hour", "Staffed", "Required"},
		staffed, staffedFillColor, []float64{10, 10, 10, 10},
	); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func WriteOutput(w io.Writer, schedule *domain.SolvedSchedule, requirements *domain.RequirementCurve) error {
	f, err := NewOutputFile(schedule, requirements)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.Write(w)
}

func WriteOutputFile(path string, schedule *domain.SolvedSchedule, requirements *domain.RequirementCurve) error {
	f, err := NewOutputFile(schedule, requirements)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.SaveAs(path)
}

// NewInputFile 生成一个输入表格，格式与 Loader 读取的格式一致
func NewInputFile(input *domain.PlanInput) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ShiftsSheet); err != nil {
		f.Close()
		return nil, err
	}

	shifts := make([][]any, len(input.Archetypes))
	for i, a := range input.Archetypes {
		shifts[i] = []any{a.StartTime.String(), a.EndTime.String(), a.DaysOff}
	}
	if err := writeTable(f, ShiftsSheet,
		[]any{"Start time", "End time", "Days off"},
		shifts, workersFillColor, []float64{10, 10, 10},
	); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(RequirementsSheet); err != nil {
		f.Close()
		return nil, err
	}
	header := []any{"Weekday"}
	for h := 0; h < domain.HoursInDay; h++ {
		header = append(header, domain.NewTimeOfDay(h, 0).String())
	}
	requirements := make([][]any, domain.DaysInWeek)
	for d := 0; d < domain.DaysInWeek; d++ {
		row := []any{domain.Weekdays[d]}
		for h := 0; h < domain.HoursInDay; h++ {
			row = append(row, input.Requirements[d][h])
		}
		requirements[d] = row
	}
	if err := writeTable(f, RequirementsSheet, header, requirements, staffedFillColor, nil); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func WriteInputFile(path string, input *domain.PlanInput) error {
	f, err := NewInputFile(input)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.SaveAs(path)
}

func WriteInput(w io.Writer, input *domain.PlanInput) error {
	f, err := NewInputFile(input)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.Write(w)
}
