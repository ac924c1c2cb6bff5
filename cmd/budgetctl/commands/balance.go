package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"budget/internal/core"
	"budget/internal/services"
)

func balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Work with balance snapshots",
	}
	cmd.AddCommand(balanceLatestCmd(), balanceListCmd(), balanceDeleteCmd(), balanceSeedCmd())
	return cmd
}

func balanceLatestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the latest snapshot and its end-of-month estimate",
		Args:  cobra.NoArgs,
		RunE: withServices(func(cmd *cobra.Command, args []string) error {
			rec, ok, err := svc.Balances.GetLatest(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out(cmd), "No balance records yet")
				return nil
			}
			printBalance(out(cmd), rec)
			return nil
		}),
	}
}

func balanceListCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots dated between --from and --to",
		Args:  cobra.NoArgs,
		RunE: withServices(func(cmd *cobra.Command, args []string) error {
			start, end := svc.Period.Bounds()
			fromDate, toDate := start, end
			var err error
			if from != "" {
				if fromDate, err = core.ParseDate(from); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}
			if to != "" {
				if toDate, err = core.ParseDate(to); err != nil {
					return fmt.Errorf("--to: %w", err)
				}
			}

			records, err := svc.Balances.FindAllInInterval(cmd.Context(), fromDate, toDate)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tTOTAL\tINCOME\tEXPECTED\tPROFIT")
			for _, rec := range records {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					rec.ID,
					rec.Date,
					core.FormatAmount(rec.TotalBalance()),
					core.FormatAmount(rec.Estimate.IncomeByEndOfMonth),
					core.FormatAmount(rec.Estimate.ExpenseByEndOfMonth),
					core.FormatAmount(rec.Estimate.ProfitByEndOfMonth))
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "first date, inclusive (default period start)")
	cmd.Flags().StringVar(&to, "to", "", "last date, inclusive (default period end)")
	return cmd
}

func balanceDeleteCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a snapshot with its items, income copies and expected expense",
		Args:  cobra.NoArgs,
		RunE: withServices(func(cmd *cobra.Command, args []string) error {
			if err := svc.Balances.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Deleted balance %d\n", id)
			return nil
		}),
	}
	cmd.Flags().Int64Var(&id, "id", 0, "snapshot id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func balanceSeedCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "seed-expected",
		Short: "Replace a snapshot's expected expense with last month's regular expenses",
		Args:  cobra.NoArgs,
		RunE: withServices(func(cmd *cobra.Command, args []string) error {
			saved, err := services.SeedExpectedExpense(cmd.Context(), svc.Balances, svc.Expenses, id)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "1-7\t8-14\t15-21\t22-31\tTOTAL")
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				core.FormatAmount(saved.Total1to7),
				core.FormatAmount(saved.Total8to14),
				core.FormatAmount(saved.Total15to21),
				core.FormatAmount(saved.Total22to31),
				core.FormatAmount(saved.Total()))
			return tw.Flush()
		}),
	}
	cmd.Flags().Int64Var(&id, "id", 0, "snapshot id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func printBalance(w io.Writer, rec core.EstimatedBalanceRecord) {
	est := rec.Estimate
	fmt.Fprintf(w, "Balance %d on %s\n", rec.ID, rec.Date)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tCASH\tCARD")
	for _, it := range rec.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", it.Name, core.FormatAmount(it.Cash), core.FormatAmount(it.Card))
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\nTotal:                 %s\n", core.FormatAmount(est.PreviousTotal))
	fmt.Fprintf(w, "Income by month end:   %s (received %s)\n", core.FormatAmount(est.IncomeByEndOfMonth), core.FormatAmount(est.IncomeReceived))
	fmt.Fprintf(w, "Expected expense:      %s (remaining %s)\n", core.FormatAmount(est.ExpenseByEndOfMonth), core.FormatAmount(est.ExpenseRemaining))
	fmt.Fprintf(w, "Profit on %s:  %s\n", est.EndOfMonthDate, core.FormatAmount(est.ProfitByEndOfMonth))
}
