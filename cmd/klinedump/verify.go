package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/WinPooh32/klinedump/history"
	"github.com/WinPooh32/klinedump/platform"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify FILE",
		Short: "Check that a downloaded file is ordered and duplicate free",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := verifyFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d klines\n", args[0], summary.Count)
			if summary.Count > 0 {
				fmt.Fprintf(out, "first %s, last %s\n", platform.FormatMillis(summary.First), platform.FormatMillis(summary.Last))
				fmt.Fprintf(out, "low %s, high %s, volume %s\n", summary.Low, summary.High, summary.Volume)
			}
			return nil
		},
	}
}

func verifyFile(path string) (summary history.Summary, err error) {
	f, err := os.Open(path)
	if err != nil {
		return summary, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	r, err := history.NewReader(f)
	if err != nil {
		return summary, fmt.Errorf("history new reader: %w", err)
	}

	for {
		k, err := r.Read()
		if err == io.EOF {
			return summary, nil
		}
		if err != nil {
			return summary, err
		}
		if summary.Count > 0 && k.Time <= summary.Last {
			return summary, fmt.Errorf("kline %s after %s: open times must increase", k.OpenTime, platform.FormatMillis(summary.Last))
		}
		if err := summary.Add(k); err != nil {
			return summary, err
		}
	}
}
