package cli

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gridstamp/internal/engine"
	"github.com/roach88/gridstamp/internal/grid"
	"github.com/roach88/gridstamp/internal/harness"
	"github.com/roach88/gridstamp/internal/registry"
)

// StampOptions holds flags for the stamp command.
type StampOptions struct {
	*RootOptions
	Config  string
	Place   []string // kind@x,y[:radius]
	Toggle  []string // kind@x,y
	Layers  []string // layers to print; empty prints all
	Summary bool     // print only the batch summary, no layer grids
}

// StampResult is the JSON payload of the stamp command.
type StampResult struct {
	Grid     string               `json:"grid"`
	Token    string               `json:"token"`
	Ops      []engine.Op          `json:"ops"`
	Dirty    []string             `json:"dirty"`
	Entities []registry.Entity    `json:"entities"`
	Layers   []harness.NamedLayer `json:"layers"`
}

// placement is one parsed --place or --toggle value.
type placement struct {
	kind   string
	anchor grid.Point
	radius int
}

// NewStampCommand creates the stamp command.
func NewStampCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StampOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stamp",
		Short: "Place entities on a world and print the layers",
		Long: `Build a world, apply placements in a single batch, and print the
resulting layers top row first. Derived layers are recomputed once at the
end of the batch.

Placements are written kind@x,y with an optional :radius override. Toggles
remove whatever is anchored at the cell, or place the kind if it is empty.
All placements run before toggles.

Exit codes:
  0 - Every placement succeeded
  1 - A placement was rejected (earlier placements stay applied)
  2 - Command error (bad config, malformed flag)

Examples:
  gridstamp stamp --place factory@16,16
  gridstamp stamp --place factory@2,2:3 --place park@4,2 --layer land_value
  gridstamp stamp --config world.yaml --toggle lamp@1,1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStamp(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "world config (default: built-in 32x32 world)")
	cmd.Flags().StringArrayVarP(&opts.Place, "place", "p", nil, "place kind@x,y[:radius] (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Toggle, "toggle", "t", nil, "toggle kind@x,y (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.Layers, "layer", "l", nil, "layers to print (default: all)")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "print only the batch summary")

	return cmd
}

func runStamp(opts *StampOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	places, err := parsePlacements(opts.Place, true)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidArgs, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --place", err)
	}
	toggles, err := parsePlacements(opts.Toggle, false)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidArgs, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --toggle", err)
	}

	e, err := loadEngine(opts.RootOptions, opts.Config, formatter)
	if err != nil {
		return err
	}
	for _, name := range opts.Layers {
		if _, err := e.Layer(name); err != nil {
			_ = formatter.Error(ErrCodeInvalidArgs, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --layer", err)
		}
	}

	batchErr := e.Batch(func(tx *engine.Tx) error {
		for _, p := range places {
			id, err := tx.PlaceEntity(engine.PlaceRequest{Kind: p.kind, Anchor: p.anchor, Radius: p.radius})
			if err != nil {
				return fmt.Errorf("place %s at %s: %w", p.kind, p.anchor, err)
			}
			formatter.VerboseLog("placed %s %s at %s", p.kind, id, p.anchor)
		}
		for _, p := range toggles {
			res, err := tx.Toggle(p.kind, p.anchor)
			if err != nil {
				return fmt.Errorf("toggle %s at %s: %w", p.kind, p.anchor, err)
			}
			formatter.VerboseLog("toggle %s at %s: %s %s", p.kind, p.anchor, res.Action, res.ID)
		}
		return nil
	})
	if batchErr != nil {
		return formatter.EngineError(batchErr)
	}

	report := e.LastReport()
	result := StampResult{
		Grid:     e.Size().String(),
		Token:    report.Token,
		Ops:      report.Ops,
		Dirty:    report.Dirty,
		Entities: e.Entities(),
	}
	names := opts.Layers
	if len(names) == 0 {
		names = e.Layers()
	}
	for _, name := range names {
		values, err := e.Snapshot(name)
		if err != nil {
			return formatter.EngineError(err)
		}
		result.Layers = append(result.Layers, harness.NamedLayer{Name: grid.NormalizeName(name), Values: values})
	}

	if opts.Format == "json" {
		return encodeIndented(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result, Token: result.Token})
	}
	return outputStampText(cmd, e.Size(), result, opts.Summary)
}

func outputStampText(cmd *cobra.Command, size grid.Size, result StampResult, summaryOnly bool) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "grid: %s\n", result.Grid)
	fmt.Fprintf(&buf, "token: %s\n", result.Token)
	fmt.Fprintf(&buf, "entities: %d\n", len(result.Entities))
	for _, ent := range result.Entities {
		fmt.Fprintf(&buf, "  %s %s at %s r=%d %s on %s\n", ent.ID, ent.Kind, ent.Anchor, ent.Radius, ent.Mode, ent.Layer)
	}
	fmt.Fprintf(&buf, "dirty: %s\n", strings.Join(result.Dirty, ", "))
	if !summaryOnly {
		for _, l := range result.Layers {
			fmt.Fprintf(&buf, "\nlayer %s\n", l.Name)
			harness.RenderLayer(&buf, size, l.Values)
		}
	}
	_, err := cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

// parsePlacements parses kind@x,y values, with an optional :radius suffix
// when allowRadius is set.
func parsePlacements(values []string, allowRadius bool) ([]placement, error) {
	out := make([]placement, 0, len(values))
	for _, v := range values {
		p, err := parsePlacement(v, allowRadius)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func parsePlacement(v string, allowRadius bool) (placement, error) {
	kind, rest, ok := strings.Cut(v, "@")
	if !ok || kind == "" {
		return placement{}, fmt.Errorf("%q: want kind@x,y", v)
	}
	var p placement
	p.kind = kind

	coords, radius, hasRadius := strings.Cut(rest, ":")
	if hasRadius {
		if !allowRadius {
			return placement{}, fmt.Errorf("%q: radius override not allowed here", v)
		}
		r, err := strconv.Atoi(radius)
		if err != nil {
			return placement{}, fmt.Errorf("%q: bad radius: %w", v, err)
		}
		if r == 0 {
			return placement{}, fmt.Errorf("%q: radius override must not be 0", v)
		}
		p.radius = r
	}

	xs, ys, ok := strings.Cut(coords, ",")
	if !ok {
		return placement{}, fmt.Errorf("%q: want kind@x,y", v)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return placement{}, fmt.Errorf("%q: bad x: %w", v, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return placement{}, fmt.Errorf("%q: bad y: %w", v, err)
	}
	p.anchor = grid.Pt(x, y)
	return p, nil
}
