package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/blagojts/viper"
	"github.com/spf13/cobra"

	"github.com/gridsense/ammbench/internal/utils"
	"github.com/gridsense/ammbench/pkg/archive"
	"github.com/gridsense/ammbench/pkg/device"
)

func openArchive() (archive.Archive, error) {
	return archive.New(viper.GetString("archive"))
}

func initListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, most recent first",
		RunE:  runList,
	}
	cmd.Flags().String("device", "", "Only list runs for this device kind")
	cmd.Flags().String("start", "", "Only list runs created at or after this RFC3339 time")
	cmd.Flags().String("end", "", "Only list runs created before this RFC3339 time")
	return cmd
}

func listFilter(cmd *cobra.Command) (archive.Filter, error) {
	f := archive.Filter{}
	if name, _ := cmd.Flags().GetString("device"); name != "" {
		kind, err := device.KindFromString(name)
		if err != nil {
			return f, err
		}
		f.Kind = kind
	}
	startArg, _ := cmd.Flags().GetString("start")
	endArg, _ := cmd.Flags().GetString("end")
	if startArg == "" && endArg == "" {
		return f, nil
	}
	if startArg == "" || endArg == "" {
		return f, fmt.Errorf("--start and --end must be given together")
	}
	start, err := utils.ParseUTCTime(startArg)
	if err != nil {
		return f, fmt.Errorf("bad --start: %v", err)
	}
	end, err := utils.ParseUTCTime(endArg)
	if err != nil {
		return f, fmt.Errorf("bad --end: %v", err)
	}
	if f.Interval, err = utils.NewTimeInterval(start, end); err != nil {
		return f, err
	}
	return f, nil
}

func runList(cmd *cobra.Command, args []string) error {
	f, err := listFilter(cmd)
	if err != nil {
		return err
	}
	a, err := openArchive()
	if err != nil {
		return err
	}
	defer a.Close()
	runs, err := a.Query(context.Background(), f)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tDEVICE\tSTATUS\tCREATED\tVALID\tMEAN (A)")
	for run := range runs {
		mean := ""
		valid := int64(0)
		if run.Stats != nil {
			valid = run.Stats.Count
			if valid > 0 {
				mean = fmt.Sprintf("%.6f", run.Stats.Mean)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			run.ID, run.Kind, run.Status, run.CreatedAt.Format("2006-01-02T15:04:05Z"), valid, mean)
	}
	return w.Flush()
}

func initGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <run_id>",
		Short: "Print one archived run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openArchive()
			if err != nil {
				return err
			}
			defer a.Close()
			run, err := a.Get(args[0])
			if err != nil {
				return err
			}
			doc, err := json.MarshalIndent(run, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(doc))
			return nil
		},
	}
}

func initCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <run_id_a> <run_id_b>",
		Short: "Diff the stats of two runs of the same device kind",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openArchive()
			if err != nil {
				return err
			}
			defer a.Close()
			comparison, err := archive.CompareByID(a, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("device %s: %s vs %s\n", comparison.Kind, comparison.RunA, comparison.RunB)
			if comparison.Concurrent {
				fmt.Println("note: the runs' sampling windows overlapped in time")
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "METRIC\tA\tB\tDELTA")
			for _, d := range comparison.Deltas {
				fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%+.6f\n", d.Metric, d.A, d.B, d.Delta)
			}
			return w.Flush()
		},
	}
}
