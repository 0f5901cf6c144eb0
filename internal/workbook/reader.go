package workbook

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/utils"
	"github.com/xuri/excelize/v2"
)

const (
	ShiftsSheet       = "Shifts"
	RequirementsSheet = "Requirements"
	WorkersSheet      = "Workers"
	StaffedSheet      = "Staffed"
)

var (
	ErrMissingSheet    = errors.New("表格缺少工作表")
	ErrInvalidWorkbook = errors.New("表格内容不合法")
)

// Loader 从表格中读取班次原型与需求曲线，并在交给排班核心之前完成校验
type Loader struct {
	validate *validator.Validate
	trans    ut.Translator
}

func NewLoader(validate *validator.Validate, trans ut.Translator) *Loader {
	return &Loader{validate: validate, trans: trans}
}

func (l *Loader) LoadFile(path string) (*domain.PlanInput, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return l.load(f)
}

func (l *Loader) Load(r io.Reader) (*domain.PlanInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return l.load(f)
}

func (l *Loader) load(f *excelize.File) (*domain.PlanInput, error) {
	form := &utils.PlanInputForm{}

	shiftRows, err := readRows(f, ShiftsSheet)
	if err != nil {
		return nil, err
	}
	for i, row := range shiftRows {
		rowNum := i + 2 // 第一行是表头
		if len(row) < 3 {
			return nil, fmt.Errorf("%w: %s 第 %d 行需要开始时间、结束时间和休息天数三列", ErrInvalidWorkbook, ShiftsSheet, rowNum)
		}
		daysOff, err := parseInt(row[2])
		if err != nil {
			return nil, fmt.Errorf("%w: %s 第 %d 行的休息天数必须是整数，当前为 %q", ErrInvalidWorkbook, ShiftsSheet, rowNum, row[2])
		}
		form.Archetypes = append(form.Archetypes, utils.ArchetypeForm{
			StartTime: normalizeTimeCell(row[0]),
			EndTime:   normalizeTimeCell(row[1]),
			DaysOff:   daysOff,
		})
	}

	requirementRows, err := readRows(f, RequirementsSheet)
	if err != nil {
		return nil, err
	}
	for i, row := range requirementRows {
		rowNum := i + 2
		values := make([]int, 0, domain.HoursInDay)
		// 第一列是星期
		for j := 1; j < len(row); j++ {
			v, err := parseInt(row[j])
			if err != nil {
				return nil, fmt.Errorf("%w: %s 第 %d 行第 %d 列的需求人数必须是整数，当前为 %q", ErrInvalidWorkbook, RequirementsSheet, rowNum, j+1, row[j])
			}
			values = append(values, v)
		}
		form.Requirements = append(form.Requirements, values)
	}

	if err := l.validate.Struct(form); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, utils.TranslateValidationError(err, l.trans))
	}

	input, err := form.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	return &input, nil
}

// readRows 读取除表头以外的所有非空行，单元格保持原始值（时间为一天中的比例）
func readRows(f *excelize.File, sheet string) ([][]string, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingSheet, sheet)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	out := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	// 数值单元格的原始值可能是 "3.0" 这样的形式
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("不是整数: %q", s)
	}
	return int(f), nil
}

// normalizeTimeCell 把时间单元格转成 HH:MM，无法识别时原样返回交给校验器报错
func normalizeTimeCell(s string) string {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil && v >= 0 && v < 1 {
		minutes := int(math.Round(v * domain.HoursInDay * 60))
		if minutes == domain.HoursInDay*60 {
			minutes = 0
		}
		return domain.NewTimeOfDay(minutes/60, minutes%60).String()
	}
	if t, err := domain.ParseTimeOfDay(s); err == nil {
		return t.String()
	}
	return s
}
