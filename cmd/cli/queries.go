package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/warely/stockledger/internal/domain"
	"github.com/warely/stockledger/internal/report"
)

func parseTimeFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		// Date-only is common when filtering reports.
		ts, err = time.Parse("2006-01-02", value)
		if err != nil {
			return nil, fmt.Errorf("parse time %q: want RFC 3339 or YYYY-MM-DD", value)
		}
	}

	return &ts, nil
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get MOVEMENT_ID",
		Short: "Show one movement with its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			detail, err := a.queries.GetMovement(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printJSON(detail)
		},
	}
}

func newListCmd() *cobra.Command {
	var (
		kind, warehouse, actor, item, search string
		from, to                             string
		page, pageSize                       int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List movements, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromTime, err := parseTimeFlag(from)
			if err != nil {
				return err
			}

			toTime, err := parseTimeFlag(to)
			if err != nil {
				return err
			}

			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			filter := domain.MovementFilter{
				From:        fromTime,
				To:          toTime,
				Kind:        domain.MovementKind(kind),
				WarehouseID: warehouse,
				ActorID:     actor,
				ItemID:      item,
				Search:      search,
			}

			result, err := a.queries.ListMovements(cmd.Context(), filter, page, pageSize)
			if err != nil {
				return err
			}

			return printJSON(result)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind (entry, exit, transfer, adjustment)")
	cmd.Flags().StringVar(&warehouse, "warehouse", "", "filter by warehouse on either side")
	cmd.Flags().StringVar(&actor, "actor", "", "filter by recording user")
	cmd.Flags().StringVar(&item, "item", "", "filter to movements touching the item")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive text search over reason, notes and actor name")
	cmd.Flags().StringVar(&from, "from", "", "lower bound on occurred-at")
	cmd.Flags().StringVar(&to, "to", "", "upper bound on occurred-at")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", domain.DefaultPageSize, "page size")

	return cmd
}

func newKardexCmd() *cobra.Command {
	var (
		warehouse, from, to, xlsxPath string
	)

	cmd := &cobra.Command{
		Use:   "kardex ITEM_ID",
		Short: "Show an item's chronological movement history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromTime, err := parseTimeFlag(from)
			if err != nil {
				return err
			}

			toTime, err := parseTimeFlag(to)
			if err != nil {
				return err
			}

			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			entries, err := a.queries.Kardex(cmd.Context(), domain.KardexQuery{
				ItemID:      args[0],
				WarehouseID: warehouse,
				From:        fromTime,
				To:          toTime,
			})
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				return writeXlsx(xlsxPath, func(f *os.File) error {
					return report.WriteKardex(f, entries)
				})
			}

			return printJSON(entries)
		},
	}

	cmd.Flags().StringVar(&warehouse, "warehouse", "", "restrict to one warehouse")
	cmd.Flags().StringVar(&from, "from", "", "lower bound on occurred-at")
	cmd.Flags().StringVar(&to, "to", "", "upper bound on occurred-at")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the history to an xlsx file instead of stdout")

	return cmd
}

func newBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance ITEM_ID WAREHOUSE_ID",
		Short: "Show the current stock of an item in a warehouse",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			quantity, err := a.queries.CurrentBalance(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			return printJSON(map[string]string{
				"item_id":      args[0],
				"warehouse_id": args[1],
				"quantity":     quantity.String(),
			})
		},
	}
}

func newSummaryCmd() *cobra.Command {
	var (
		kind, from, to, xlsxPath string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Aggregate movements per kind over a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromTime, err := parseTimeFlag(from)
			if err != nil {
				return err
			}

			toTime, err := parseTimeFlag(to)
			if err != nil {
				return err
			}

			if fromTime == nil || toTime == nil {
				return fmt.Errorf("--from and --to are required")
			}

			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			summaries, err := a.queries.PeriodSummary(cmd.Context(), *fromTime, *toTime, domain.MovementKind(kind))
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				return writeXlsx(xlsxPath, func(f *os.File) error {
					return report.WriteSummary(f, summaries)
				})
			}

			return printJSON(summaries)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "restrict to one kind")
	cmd.Flags().StringVar(&from, "from", "", "period start (required)")
	cmd.Flags().StringVar(&to, "to", "", "period end (required)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the summary to an xlsx file instead of stdout")

	return cmd
}

func newSnapshotCmd() *cobra.Command {
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "snapshot WAREHOUSE_ID",
		Short: "Show the non-zero stock levels of a warehouse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			levels, err := a.queries.StockSnapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				return writeXlsx(xlsxPath, func(f *os.File) error {
					return report.WriteSnapshot(f, args[0], levels)
				})
			}

			return printJSON(levels)
		},
	}

	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the snapshot to an xlsx file instead of stdout")

	return cmd
}

func newReconcileCmd() *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Diff the balance index against the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			rep, err := a.recon.Check(cmd.Context())
			if err != nil {
				return err
			}

			if repair && !rep.Consistent {
				keys := make([]domain.BalanceKey, 0, len(rep.Discrepancies))
				for _, d := range rep.Discrepancies {
					keys = append(keys, d.Key)
				}

				if err := a.recon.Repair(cmd.Context(), keys); err != nil {
					return err
				}

				a.log.Info().Int("repaired", len(keys)).Msg("balance rows rewritten from ledger")
			}

			return printJSON(rep)
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "rewrite drifted balance rows from the ledger")

	return cmd
}

func writeXlsx(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := write(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
