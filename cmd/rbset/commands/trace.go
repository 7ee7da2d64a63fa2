package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbset/internal/config"
	"github.com/Sumatoshi-tech/rbset/pkg/workload"
)

// defaultShowOps is how many leading ops trace show prints.
const defaultShowOps = 10

func newTraceCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Generate and inspect workload traces",
	}

	cmd.AddCommand(newTraceGenCommand(opts), newTraceShowCommand())

	return cmd
}

func newTraceGenCommand(opts *Options) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Write a generated workload as an LZ4 trace file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(bind(cmd,
				"bench.pattern", "pattern",
				"bench.keys", "keys",
				"bench.seed", "seed",
				"bench.mix", "mix",
			)...)
			if err != nil {
				return err
			}

			runCfg, err := cfg.BenchRun()
			if err != nil {
				return err
			}

			ops := runCfg.Script()

			err = workload.WriteTraceFile(out, ops)
			if err != nil {
				return fmt.Errorf("write trace: %w", err)
			}

			info, err := os.Stat(out)
			if err != nil {
				return fmt.Errorf("stat trace: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s ops to %s (%s)\n",
				humanize.Comma(int64(len(ops))), out, humanize.IBytes(uint64(info.Size())))

			return err
		},
	}

	flags := cmd.Flags()
	flags.String("pattern", config.DefaultBenchPattern, "Key pattern: "+patternList())
	flags.Int("keys", config.DefaultBenchKeys, "Number of keys")
	flags.Int64("seed", config.DefaultBenchSeed, "Random seed")
	flags.String("mix", config.DefaultBenchMix, "Mixed phase insert:erase:find weights")
	flags.StringVarP(&out, "out", "o", "workload.rbtr", "Output file")

	return cmd
}

func newTraceShowCommand() *cobra.Command {
	var head int

	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Summarize a trace file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := workload.ReadTraceFile(args[0])
			if err != nil {
				return fmt.Errorf("read trace: %w", err)
			}

			return renderTrace(cmd.OutOrStdout(), args[0], ops, head)
		},
	}

	cmd.Flags().IntVarP(&head, "head", "n", defaultShowOps, "Number of leading ops to list")

	return cmd
}

func renderTrace(w io.Writer, path string, ops []workload.Op, head int) error {
	counts := workload.Count(ops)

	summary := table.NewWriter()
	summary.SetStyle(table.StyleLight)
	summary.SetTitle(path)
	summary.AppendHeader(table.Row{"op", "count"})

	for _, kind := range []workload.OpKind{workload.OpInsert, workload.OpErase, workload.OpFind} {
		summary.AppendRow(table.Row{kind.String(), humanize.Comma(int64(counts[kind]))})
	}

	summary.AppendFooter(table.Row{"total", humanize.Comma(int64(len(ops)))})

	_, err := fmt.Fprintln(w, summary.Render())
	if err != nil {
		return fmt.Errorf("write trace summary: %w", err)
	}

	head = min(max(head, 0), len(ops))
	if head == 0 {
		return nil
	}

	listing := table.NewWriter()
	listing.SetStyle(table.StyleLight)
	listing.AppendHeader(table.Row{"#", "op", "key"})

	for idx, op := range ops[:head] {
		listing.AppendRow(table.Row{strconv.Itoa(idx), op.Kind.String(), op.Key})
	}

	_, err = fmt.Fprintln(w, listing.Render())
	if err != nil {
		return fmt.Errorf("write trace listing: %w", err)
	}

	return nil
}
