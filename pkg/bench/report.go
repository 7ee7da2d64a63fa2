package bench

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/rbset/pkg/rbtree"
)

// Output formats accepted by Encode.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

// ErrUnknownFormat is returned by Encode for unsupported formats.
var ErrUnknownFormat = errors.New("unknown report format")

// Outcomes counts what each operation did.
type Outcomes struct {
	Inserted    int `json:"inserted"     yaml:"inserted"`
	Duplicates  int `json:"duplicates"   yaml:"duplicates"`
	Rejected    int `json:"rejected"     yaml:"rejected"`
	Erased      int `json:"erased"       yaml:"erased"`
	EraseMisses int `json:"erase_misses" yaml:"erase_misses"`
	FindHits    int `json:"find_hits"    yaml:"find_hits"`
	FindMisses  int `json:"find_misses"  yaml:"find_misses"`
}

// Total returns the number of operations counted.
func (o Outcomes) Total() int {
	return o.Inserted + o.Duplicates + o.Rejected + o.Erased + o.EraseMisses + o.FindHits + o.FindMisses
}

// PhaseReport times one phase of a run.
type PhaseReport struct {
	Name     string        `json:"name"      yaml:"name"`
	Ops      int           `json:"ops"       yaml:"ops"`
	Duration time.Duration `json:"duration"  yaml:"duration"`
	NsPerOp  float64       `json:"ns_per_op" yaml:"ns_per_op"`
	EndLen   int           `json:"end_len"   yaml:"end_len"`
}

// Report summarizes a bench run.
type Report struct {
	Config        Config        `json:"config"         yaml:"config"`
	Outcomes      Outcomes      `json:"outcomes"       yaml:"outcomes"`
	Phases        []PhaseReport `json:"phases"         yaml:"phases"`
	Duration      time.Duration `json:"duration"       yaml:"duration"`
	NsPerOp       float64       `json:"ns_per_op"      yaml:"ns_per_op"`
	Allocator     rbtree.Stats  `json:"allocator"      yaml:"allocator"`
	AllocBytes    int64         `json:"alloc_bytes"    yaml:"alloc_bytes"`
	Mallocs       int64         `json:"mallocs"        yaml:"mallocs"`
	PeakLen       int           `json:"peak_len"       yaml:"peak_len"`
	Height        int           `json:"height"         yaml:"height"`
	DepthProfile  []int         `json:"depth_profile"  yaml:"depth_profile,flow"`
	FinalLen      int           `json:"final_len"      yaml:"final_len"`
	Verifications int           `json:"verifications"  yaml:"verifications"`
}

func newReport(cfg Config) Report {
	return Report{Config: cfg}
}

// Encode writes r to w as yaml or json. Table output goes through RenderTable.
func Encode(w io.Writer, r Report, format string) error {
	switch strings.ToLower(format) {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		err := enc.Encode(r)
		if err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}

		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(r)
		if err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}

		return nil
	case FormatTable:
		return RenderTable(w, r)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
