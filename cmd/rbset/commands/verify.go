package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbset/pkg/bench"
	"github.com/Sumatoshi-tech/rbset/pkg/workload"
)

// defaultVerifyKeys is the key count per pattern for the verify command.
const defaultVerifyKeys = 10_000

// ErrChecksFailed is returned by verify when any property check fails.
var ErrChecksFailed = errors.New("property checks failed")

type verifyCommand struct {
	opts     *Options
	patterns []string
	keys     int
	noColor  bool
}

func newVerifyCommand(opts *Options) *cobra.Command {
	vc := &verifyCommand{opts: opts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the property suite over key patterns",
		Long: `Build a set from each key pattern and check red-black invariants, ordered
and reverse traversal, size, lookups, duplicate inserts, erasure and node
reuse. Exits non-zero when any check fails.`,
		Args: cobra.NoArgs,
		RunE: vc.run,
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&vc.patterns, "patterns", nil, "Patterns to check (default: all): "+patternList())
	flags.IntVar(&vc.keys, "keys", defaultVerifyKeys, "Keys per pattern")
	flags.Int64("seed", 1, "Random seed")
	flags.BoolVar(&vc.noColor, "no-color", false, "Disable colored summary")

	return cmd
}

func (vc *verifyCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := vc.opts.load(bind(cmd, "bench.seed", "seed")...)
	if err != nil {
		return err
	}

	patterns, err := vc.selected()
	if err != nil {
		return err
	}

	var results []bench.CheckResult

	for _, p := range patterns {
		results = append(results, bench.Check(p, vc.keys, cfg.Bench.Seed)...)
	}

	out := cmd.OutOrStdout()

	err = bench.RenderChecks(out, results)
	if err != nil {
		return err
	}

	return vc.summarize(out, results)
}

func (vc *verifyCommand) selected() ([]workload.Pattern, error) {
	if len(vc.patterns) == 0 {
		return workload.Patterns(), nil
	}

	patterns := make([]workload.Pattern, 0, len(vc.patterns))

	for _, name := range vc.patterns {
		p, err := workload.ParsePattern(name)
		if err != nil {
			return nil, err
		}

		patterns = append(patterns, p)
	}

	return patterns, nil
}

func (vc *verifyCommand) summarize(w io.Writer, results []bench.CheckResult) error {
	failed := 0

	for _, res := range results {
		if !res.Passed {
			failed++
		}
	}

	ok := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)

	if vc.noColor {
		ok.DisableColor()
		bad.DisableColor()
	}

	if failed == 0 {
		_, err := ok.Fprintf(w, "all %d checks passed\n", len(results))

		return err
	}

	_, err := bad.Fprintf(w, "%d of %d checks failed\n", failed, len(results))
	if err != nil {
		return err
	}

	return fmt.Errorf("%w: %d of %d", ErrChecksFailed, failed, len(results))
}
