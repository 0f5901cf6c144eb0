package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/utils"
)

func validForm() *utils.PlanInputForm {
	rc := domain.FlatRequirementCurve(2)
	input := domain.PlanInput{
		Archetypes: []domain.ShiftArchetype{
			{StartTime: domain.NewTimeOfDay(9, 0), EndTime: domain.NewTimeOfDay(17, 0), DaysOff: 2},
		},
		Requirements: rc,
	}
	return utils.NewPlanInputForm(&input)
}

func TestPlanInputForm_Valid(t *testing.T) {
	validate, _, err := utils.NewValidator()
	require.NoError(t, err)

	form := validForm()
	require.NoError(t, validate.Struct(form))

	input, err := form.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, 2, input.Archetypes[0].DaysOff)
	assert.Equal(t, "17:00", input.Archetypes[0].EndTime.String())
	assert.Equal(t, 2, input.Requirements[6][23])
}

func TestPlanInputForm_Invalid(t *testing.T) {
	validate, trans, err := utils.NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(f *utils.PlanInputForm)
	}{
		{"休息天数超过 7", func(f *utils.PlanInputForm) { f.Archetypes[0].DaysOff = 8 }},
		{"休息天数为负数", func(f *utils.PlanInputForm) { f.Archetypes[0].DaysOff = -1 }},
		{"时间格式错误", func(f *utils.PlanInputForm) { f.Archetypes[0].StartTime = "25:00" }},
		{"没有班次", func(f *utils.PlanInputForm) { f.Archetypes = nil }},
		{"需求曲线行数错误", func(f *utils.PlanInputForm) { f.Requirements = f.Requirements[:6] }},
		{"需求曲线列数错误", func(f *utils.PlanInputForm) { f.Requirements[3] = f.Requirements[3][:23] }},
		{"需求为负数", func(f *utils.PlanInputForm) { f.Requirements[0][0] = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(form)
			err := validate.Struct(form)
			require.Error(t, err)
			assert.NotEmpty(t, utils.TranslateValidationError(err, trans).Error())
		})
	}
}

func TestGenerateRandomPlanInput_IsValid(t *testing.T) {
	validate, _, err := utils.NewValidator()
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		input := utils.GenerateRandomPlanInput()
		assert.NoError(t, validate.Struct(utils.NewPlanInputForm(&input)))
	}
}
