package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/utils"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/workbook"
)

type solveOptions struct {
	input     string
	output    string
	timeLimit time.Duration
	seed      int64
	workers   int
}

func newSolveCmd() *cobra.Command {
	opts := solveOptions{}

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve a staffing workbook and write the schedule workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "input.xlsx", "Workbook with Shifts and Requirements sheets")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "output.xlsx", "Workbook to write Workers and Staffed sheets to")
	cmd.Flags().DurationVar(&opts.timeLimit, "time-limit", 0, "Solver time limit, overrides SOLVER_TIME_LIMIT")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Search seed, overrides SOLVER_SEED")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "CP-SAT search workers, overrides SOLVER_NUM_WORKERS")
	return cmd
}

func runSolve(cmd *cobra.Command, opts solveOptions) error {
	solverCfg, err := config.LoadSolverConfig()
	if err != nil {
		return fmt.Errorf("loading solver config: %w", err)
	}
	params := solverCfg.Parameters()
	if cmd.Flags().Changed("time-limit") {
		params.TimeLimit = opts.timeLimit
	}
	if cmd.Flags().Changed("seed") {
		params.Seed = opts.seed
	}
	if cmd.Flags().Changed("workers") {
		params.NumWorkers = opts.workers
	}

	validate, trans, err := utils.NewValidator()
	if err != nil {
		return err
	}
	input, err := workbook.NewLoader(validate, trans).LoadFile(opts.input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.input, err)
	}

	s, err := scheduler.New(params, input.Archetypes, &input.Requirements)
	if err != nil {
		return err
	}
	result, err := s.Schedule()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !result.Found() {
		fmt.Fprintln(out, "No solution found.")
		return nil
	}

	if err := workbook.WriteOutputFile(opts.output, result.Schedule, &input.Requirements); err != nil {
		return fmt.Errorf("writing %s: %w", opts.output, err)
	}

	fmt.Fprintf(out, "Status:           %s\n", result.Status)
	fmt.Fprintf(out, "Workers:          %d\n", len(result.Schedule.Assignments))
	fmt.Fprintf(out, "Objective:        %d\n", result.Objective)
	fmt.Fprintf(out, "Understaff hours: %d (squared %d)\n", result.TotalUnderstaff, result.TotalSquaredUnderstaff)
	fmt.Fprintf(out, "Overstaff hours:  %d (squared %d)\n", result.TotalOverstaff, result.TotalSquaredOverstaff)
	fmt.Fprintf(out, "Wall time:        %s\n", result.WallTime.Round(time.Millisecond))
	fmt.Fprintf(out, "Schedule written to %s\n", opts.output)
	return nil
}
