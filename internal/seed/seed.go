package seed

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/utils"
)

// 一家营业到深夜的门店的真实需求，工作日与周末不同
var (
	//go:embed data/shifts.csv
	sampleShifts []byte
	//go:embed data/requirements.csv
	sampleRequirements []byte
)

// SampleInput 内置的示例数据
func SampleInput(validate *validator.Validate, trans ut.Translator) (*domain.PlanInput, error) {
	return ReadCSVInput(bytes.NewReader(sampleShifts), bytes.NewReader(sampleRequirements), validate, trans)
}

// ReadCSVInput 读取两份带表头的 CSV：班次原型（开始时间,结束时间,休息天数）和需求曲线（星期 + 24 列）
func ReadCSVInput(shifts io.Reader, requirements io.Reader, validate *validator.Validate, trans ut.Translator) (*domain.PlanInput, error) {
	form := &utils.PlanInputForm{}

	records, err := readRecords(shifts)
	if err != nil {
		return nil, fmt.Errorf("读取班次失败: %w", err)
	}
	for i, record := range records {
		if len(record) != 3 {
			return nil, fmt.Errorf("班次第 %d 行应该有 3 列", i+2)
		}
		daysOff, err := strconv.Atoi(strings.TrimSpace(record[2]))
		if err != nil {
			return nil, fmt.Errorf("班次第 %d 行的休息天数不是整数", i+2)
		}
		form.Archetypes = append(form.Archetypes, utils.ArchetypeForm{
			StartTime: strings.TrimSpace(record[0]),
			EndTime:   strings.TrimSpace(record[1]),
			DaysOff:   daysOff,
		})
	}

	records, err = readRecords(requirements)
	if err != nil {
		return nil, fmt.Errorf("读取需求曲线失败: %w", err)
	}
	for i, record := range records {
		// 第一列是星期
		row := make([]int, 0, len(record)-1)
		for _, cell := range record[1:] {
			v, err := strconv.Atoi(strings.TrimSpace(cell))
			if err != nil {
				return nil, fmt.Errorf("需求曲线第 %d 行存在非整数 %q", i+2, cell)
			}
			row = append(row, v)
		}
		form.Requirements = append(form.Requirements, row)
	}

	if err := validate.Struct(form); err != nil {
		return nil, utils.TranslateValidationError(err, trans)
	}

	input, err := form.ToDomain()
	if err != nil {
		return nil, err
	}
	return &input, nil
}

// readRecords 跳过表头，返回剩余的所有行
func readRecords(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("文件为空")
		}
		return nil, err
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return records, nil
}
