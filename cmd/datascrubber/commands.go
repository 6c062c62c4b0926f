package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"datascrubber/internal/formatter"
	"datascrubber/internal/master"
	"datascrubber/internal/models"
	"datascrubber/internal/pipeline"
)

func (a *app) cleanPublisherCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean-publisher <publisher>",
		Short: "Preclean every raw file of one publisher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.log.Info(fmt.Sprintf("🚀 Precleaning %s", args[0]))
			return a.report(a.pipeline.CleanPublisher(cmd.Context(), args[0]))
		},
	}
}

func (a *app) cleanCustomerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean-customer <publisher> <customer>",
		Short: "Build one customer's clean data from a publisher's latest precleaned file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.log.Info(fmt.Sprintf("🚀 Cleaning %s data for %s", args[0], args[1]))
			return a.report(a.pipeline.CleanCustomer(cmd.Context(), args[0], args[1]))
		},
	}
}

func (a *app) cleanAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean-all",
		Short: "Preclean every publisher and clean every customer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.log.Info("🚀 Starting full cleaning process")
			a.log.Info(fmt.Sprintf("📍 Root: %s", a.cfg.Paths.Root))
			return a.report(a.pipeline.CleanAll(cmd.Context()))
		},
	}
}

func (a *app) readershipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "readership",
		Short: "Merge each customer's clean data into a readership file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.log.Info("🚀 Creating readership files")
			return a.report(a.pipeline.CreateReadership(cmd.Context()))
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var (
		limit   int
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := a.pipeline.History(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Println("No runs recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				took := ""
				if !r.FinishedAt.IsZero() {
					took = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
				}

				rows = append(rows, []string{
					r.ID[:8],
					r.Mode,
					humanize.Time(r.StartedAt),
					took,
					r.Status,
					strconv.Itoa(r.Units),
					strconv.Itoa(r.Failed),
					r.Error,
				})
			}

			fmt.Println(formatter.RenderTable([]string{"Run", "Mode", "Started", "Took", "Status", "Units", "Failed", "Error"}, rows))

			if verbose {
				for _, r := range runs {
					fmt.Printf("\n%s %s\n", r.ID, r.Mode)
					fmt.Println(formatter.Results(r.Results))
				}
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of runs to show")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show unit outcomes of each run")

	return cmd
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List publishers and customers from the master files",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			m, err := master.Load(a.cfg)
			if err != nil {
				return err
			}

			pubs := make([][]string, 0, len(m.Publishers))
			for _, p := range m.Publishers {
				_, ok := a.cfg.Profile(p.Name)
				pubs = append(pubs, []string{p.Name, strconv.Itoa(p.Header), strconv.Itoa(p.Footer), strconv.FormatBool(ok)})
			}

			custs := make([][]string, 0, len(m.Customers))
			for _, c := range m.Customers {
				custs = append(custs, []string{c.Name, c.StockCode})
			}

			fmt.Println(formatter.RenderTable([]string{"Publisher", "Header", "Footer", "Profile"}, pubs))
			fmt.Println()
			fmt.Println(formatter.RenderTable([]string{"Customer", "Stock Code"}, custs))

			return nil
		},
	}
}

// report prints the unit summary and maps a failed run to errReported.
func (a *app) report(rep *pipeline.BatchReport, err error) error {
	if rep != nil && len(rep.Results) > 0 {
		fmt.Println("\n------------------------------------------------")
		fmt.Println("📊 Summary Report")
		fmt.Println("------------------------------------------------")
		fmt.Println(formatter.Results(rep.Results))
		fmt.Printf("Succeeded: %d  Skipped: %d  Failed: %d  Duration: %v\n",
			rep.Count(models.UnitSucceeded), rep.Count(models.UnitSkipped), rep.Count(models.UnitFailed),
			rep.Duration.Round(time.Millisecond))
	}

	if err != nil {
		a.log.Error(fmt.Sprintf("❌ %v", err))
		return errReported
	}

	a.log.Info("✨ Done")

	return nil
}
