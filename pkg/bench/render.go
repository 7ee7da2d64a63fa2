package bench

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	chartWidth  = "100%"
	chartHeight = "480px"

	colorActual = "#5470c6"
	colorIdeal  = "#c4ccd3"
)

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

// RenderTable writes a human-readable summary of r.
func RenderTable(w io.Writer, r Report) error {
	summary := newTable()
	summary.SetTitle("rbset bench")
	summary.AppendRows([]table.Row{
		{"pattern", string(r.Config.Pattern)},
		{"keys", humanize.Comma(int64(r.Config.Keys))},
		{"seed", r.Config.Seed},
		{"cache capacity", humanize.Comma(int64(r.Config.CacheCapacity))},
		{"duration", r.Duration.String()},
		{"ns/op", humanize.FormatFloat("#,###.##", r.NsPerOp)},
		{"peak size", humanize.Comma(int64(r.PeakLen))},
		{"height", r.Height},
		{"final size", humanize.Comma(int64(r.FinalLen))},
		{"verifications", humanize.Comma(int64(r.Verifications))},
		{"heap allocated", humanize.IBytes(uint64(max(r.AllocBytes, 0)))},
		{"mallocs", humanize.Comma(r.Mallocs)},
	})

	phases := newTable()
	phases.AppendHeader(table.Row{"phase", "ops", "duration", "ns/op", "size after"})

	for _, p := range r.Phases {
		phases.AppendRow(table.Row{
			p.Name,
			humanize.Comma(int64(p.Ops)),
			p.Duration.String(),
			humanize.FormatFloat("#,###.##", p.NsPerOp),
			humanize.Comma(int64(p.EndLen)),
		})
	}

	o := r.Outcomes
	outcomes := newTable()
	outcomes.AppendHeader(table.Row{"op", "outcome", "count"})
	outcomes.AppendRows([]table.Row{
		{"insert", OutcomeInserted, humanize.Comma(int64(o.Inserted))},
		{"insert", OutcomeDuplicate, humanize.Comma(int64(o.Duplicates))},
		{"insert", OutcomeRejected, humanize.Comma(int64(o.Rejected))},
		{"erase", OutcomeErased, humanize.Comma(int64(o.Erased))},
		{"erase", OutcomeMiss, humanize.Comma(int64(o.EraseMisses))},
		{"find", OutcomeHit, humanize.Comma(int64(o.FindHits))},
		{"find", OutcomeMiss, humanize.Comma(int64(o.FindMisses))},
	})
	outcomes.AppendFooter(table.Row{"", "total", humanize.Comma(int64(o.Total()))})

	a := r.Allocator
	alloc := newTable()
	alloc.AppendHeader(table.Row{"allocator", "value"})
	alloc.AppendRows([]table.Row{
		{"allocations", humanize.Comma(a.Allocations)},
		{"reuses", humanize.Comma(a.Reuses)},
		{"releases", humanize.Comma(a.Releases)},
		{"drops", humanize.Comma(a.Drops)},
		{"reuse rate", humanize.FtoaWithDigits(a.ReuseRate()*100, 2) + "%"},
		{"cached", humanize.Comma(int64(a.Cached))},
	})

	for _, tbl := range []table.Writer{summary, phases, outcomes, alloc} {
		_, err := fmt.Fprintln(w, tbl.Render()+"\n")
		if err != nil {
			return fmt.Errorf("write table: %w", err)
		}
	}

	return nil
}

// RenderChecks writes one row per check result.
func RenderChecks(w io.Writer, results []CheckResult) error {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"pattern", "check", "result", "detail"})

	failed := 0

	for _, res := range results {
		status := "pass"
		if !res.Passed {
			status = "FAIL"
			failed++
		}

		tbl.AppendRow(table.Row{string(res.Pattern), res.Name, status, res.Detail})
	}

	tbl.AppendFooter(table.Row{"", "", "failed", strconv.Itoa(failed) + "/" + strconv.Itoa(len(results))})

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write checks: %w", err)
	}

	return nil
}

// RenderChart writes an HTML page with a bar chart of nodes per depth,
// next to the node count a perfect tree would hold at that depth.
func RenderChart(w io.Writer, r Report) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "rbset depth profile",
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Nodes per depth",
			Subtitle: fmt.Sprintf("%s, %s keys, height %d",
				r.Config.Pattern, humanize.Comma(int64(r.Config.Keys)), r.Height),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "nodes"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "depth"}),
	)

	labels := make([]string, len(r.DepthProfile))
	actual := make([]opts.BarData, len(r.DepthProfile))
	ideal := make([]opts.BarData, len(r.DepthProfile))

	for depth, count := range r.DepthProfile {
		labels[depth] = strconv.Itoa(depth)
		actual[depth] = opts.BarData{Value: count}
		ideal[depth] = opts.BarData{Value: math.Pow(2, float64(depth))}
	}

	bar.SetXAxis(labels).
		AddSeries("actual", actual, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorActual})).
		AddSeries("perfect", ideal, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorIdeal}))

	err := bar.Render(w)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}
