package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/utils"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/workbook"
)

func newTemplateCmd() *cobra.Command {
	var output string
	var random bool

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write an input workbook to fill in",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := domain.PlanInput{
				Archetypes: []domain.ShiftArchetype{
					{StartTime: domain.NewTimeOfDay(9, 0), EndTime: domain.NewTimeOfDay(17, 0), DaysOff: 2},
				},
				Requirements: domain.FlatRequirementCurve(1),
			}
			if random {
				input = utils.GenerateRandomPlanInput()
			}

			if err := workbook.WriteInputFile(output, &input); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Input workbook written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "input.xlsx", "Workbook to write")
	cmd.Flags().BoolVar(&random, "random", false, "Fill the workbook with a random instance")
	return cmd
}
