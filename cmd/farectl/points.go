package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dharmasatrya/fareengine/internal/points"
	"github.com/dharmasatrya/fareengine/pkg/currency"
)

func pointsCmd(build builder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "points",
		Short: "Value loyalty points and plan transfers",
	}
	cmd.AddCommand(pointsValueCmd(build))
	cmd.AddCommand(pointsRedeemCmd(build))
	cmd.AddCommand(pointsTransfersCmd(build))
	return cmd
}

func pointsValueCmd(build builder) *cobra.Command {
	return &cobra.Command{
		Use:   "value <program> <points>",
		Short: "Show the cash value of a points balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parsePoints(args[1])
			if err != nil {
				return err
			}
			a, err := build(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			v, ok := a.Points.ValuePoints(n, args[0])
			if !ok {
				return fmt.Errorf("%w: %s", points.ErrUnknownProgram, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s at %s per point\n",
				currency.FormatPoints(v.Points), v.ProgramID,
				currency.Format(v.CashEquivalent, "USD"), currency.FormatCents(v.ValuationRate))
			return nil
		},
	}
}

func pointsRedeemCmd(build builder) *cobra.Command {
	return &cobra.Command{
		Use:   "redeem <program> <points> <cash-price>",
		Short: "Judge whether an award redemption beats the program's usual value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parsePoints(args[1])
			if err != nil {
				return err
			}
			cash, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid cash price %q", args[2])
			}
			a, err := build(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.Points.AnalyzeRedemption(n, cash, args[0])
			if err != nil {
				return fmt.Errorf("%w: %s", err, args[0])
			}
			verdict := "below"
			if r.IsGoodValue {
				verdict = "above"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s per point, %.2fx the %s baseline (%s)\n",
				currency.FormatCents(r.RedemptionValue), r.ValueMultiplier,
				currency.FormatCents(r.BaselineValue), verdict)
			return nil
		},
	}
}

func pointsTransfersCmd(build builder) *cobra.Command {
	var (
		balances []string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "transfers <target-program> <points-needed>",
		Short: "List transfers from your balances that cover an award",
		Long: `List transfers from your balances that cover an award, cheapest first.

Examples:
  farectl points transfers united 60000 --balance chase_ur=80000 --balance amex_mr=120000`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			needed, err := parsePoints(args[1])
			if err != nil {
				return err
			}
			held, err := parseBalances(balances)
			if err != nil {
				return err
			}
			a, err := build(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, ok := a.Points.Program(args[0]); !ok {
				return fmt.Errorf("%w: %s", points.ErrUnknownProgram, args[0])
			}
			transfers := a.Points.FindTransferOpportunities(args[0], needed, held)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(transfers)
			}
			if len(transfers) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No balance can cover this award")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FROM\tSEND\tRECEIVE\tRATIO\tCOST")
			for _, t := range transfers {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\n", t.FromProgram,
					currency.FormatPoints(t.SourcePoints), currency.FormatPoints(t.PointsTransferred),
					t.Ratio, currency.Format(t.TotalCost, "USD"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringArrayVarP(&balances, "balance", "b", nil, "a balance as program=points (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func parsePoints(s string) (int, error) {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid points amount %q", s)
	}
	return n, nil
}

func parseBalances(values []string) ([]points.Balance, error) {
	out := make([]points.Balance, 0, len(values))
	for _, v := range values {
		program, amount, ok := strings.Cut(v, "=")
		if !ok || program == "" {
			return nil, fmt.Errorf("invalid balance %q, want program=points", v)
		}
		n, err := parsePoints(amount)
		if err != nil {
			return nil, err
		}
		out = append(out, points.Balance{ProgramID: program, Points: n})
	}
	return out, nil
}
