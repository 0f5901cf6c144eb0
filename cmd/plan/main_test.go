package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/workbook"
	"github.com/xuri/excelize/v2"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestTemplateThenSolve(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.xlsx")
	output := filepath.Join(dir, "output.xlsx")

	execute(t, "template", "-o", input)
	out := execute(t, "solve", "-i", input, "-o", output)
	assert.Contains(t, out, "Schedule written to")

	f, err := excelize.OpenFile(output)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(workbook.StaffedSheet)
	require.NoError(t, err)
	assert.Len(t, rows, domain.HoursInWeek+1)
}

func TestSolve_NoSolution(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.xlsx")
	output := filepath.Join(dir, "output.xlsx")

	// 所有人每周休息 7 天，需求却很高
	require.NoError(t, workbook.WriteInputFile(input, &domain.PlanInput{
		Archetypes: []domain.ShiftArchetype{
			{StartTime: domain.NewTimeOfDay(0, 0), EndTime: domain.NewTimeOfDay(0, 0), DaysOff: 7},
		},
		Requirements: domain.FlatRequirementCurve(5000),
	}))

	out := execute(t, "solve", "-i", input, "-o", output)
	assert.Contains(t, out, "No solution found.")
	assert.NoFileExists(t, output)
}

func TestToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"token", "--subject", "ops", "--ttl", "1h"})
	require.NoError(t, cmd.Execute())

	assert.NotEmpty(t, out.String())
	assert.Contains(t, errOut.String(), "expires at")
}
