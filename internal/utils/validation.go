package utils

import (
	"errors"
	"fmt"

	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
)

// ArchetypeForm 班次原型的输入格式（请求体或者表格中的一行）
type ArchetypeForm struct {
	StartTime string `json:"startTime" validate:"required,timeofday"`
	EndTime   string `json:"endTime" validate:"required,timeofday"`
	DaysOff   int    `json:"daysOff" validate:"min=0,max=7"`
}

// PlanInputForm 排班输入：班次原型列表和 7×24 的需求曲线
type PlanInputForm struct {
	Archetypes   []ArchetypeForm `json:"archetypes" validate:"required,min=1,dive"`
	Requirements [][]int         `json:"requirements" validate:"len=7,dive,len=24,dive,min=0"`
}

// ToDomain 转换为领域模型，调用前需要先通过校验
func (f *PlanInputForm) ToDomain() (domain.PlanInput, error) {
	input := domain.PlanInput{
		Archetypes: make([]domain.ShiftArchetype, len(f.Archetypes)),
	}

	for i, a := range f.Archetypes {
		start, err := domain.ParseTimeOfDay(a.StartTime)
		if err != nil {
			return domain.PlanInput{}, fmt.Errorf("第 %d 个班次的开始时间格式错误", i+1)
		}
		end, err := domain.ParseTimeOfDay(a.EndTime)
		if err != nil {
			return domain.PlanInput{}, fmt.Errorf("第 %d 个班次的结束时间格式错误", i+1)
		}
		input.Archetypes[i] = domain.ShiftArchetype{StartTime: start, EndTime: end, DaysOff: a.DaysOff}
	}

	if len(f.Requirements) != domain.DaysInWeek {
		return domain.PlanInput{}, errors.New("需求曲线必须有 7 行")
	}
	for d, row := range f.Requirements {
		if len(row) != domain.HoursInDay {
			return domain.PlanInput{}, fmt.Errorf("需求曲线第 %d 行必须有 24 个数", d+1)
		}
		copy(input.Requirements[d][:], row)
	}

	return input, nil
}

// NewPlanInputForm 由领域模型得到输入格式，便于回显
func NewPlanInputForm(input *domain.PlanInput) *PlanInputForm {
	f := &PlanInputForm{
		Archetypes:   make([]ArchetypeForm, len(input.Archetypes)),
		Requirements: make([][]int, domain.DaysInWeek),
	}
	for i, a := range input.Archetypes {
		f.Archetypes[i] = ArchetypeForm{StartTime: a.StartTime.String(), EndTime: a.EndTime.String(), DaysOff: a.DaysOff}
	}
	for d := range f.Requirements {
		f.Requirements[d] = append([]int(nil), input.Requirements[d][:]...)
	}
	return f
}

// NewValidator 创建带中文翻译的校验器
func NewValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, err
	}

	if err := validate.RegisterValidation("timeofday", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseTimeOfDay(fl.Field().String())
		return err == nil
	}); err != nil {
		return nil, nil, err
	}
	err := validate.RegisterTranslation("timeofday", trans,
		func(ut ut.Translator) error {
			return ut.Add("timeofday", "{0}必须是合法的时间，例如 09:00", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("timeofday", fe.Field())
			return t
		},
	)
	if err != nil {
		return nil, nil, err
	}

	return validate, trans, nil
}

// TranslateValidationError 只保留第一个校验错误并翻译成中文
func TranslateValidationError(err error, trans ut.Translator) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err
	}
	return errors.New(validationErrors[0].Translate(trans))
}
