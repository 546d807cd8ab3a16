package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gridstamp/internal/grid"
	"github.com/roach88/gridstamp/internal/harness"
)

// KernelOptions holds flags for the kernel command.
type KernelOptions struct {
	*RootOptions
	Radius int
	Curve  string
	Config string
}

// KernelResult is the JSON payload of the kernel command.
type KernelResult struct {
	Radius int    `json:"radius"`
	Curve  string `json:"curve"`
	Side   int    `json:"side"`
	Sum    int    `json:"sum"`
	Values []int  `json:"values"` // row-major, bottom row first
}

// NewKernelCommand creates the kernel command.
func NewKernelCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KernelOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "kernel",
		Short: "Print a falloff kernel",
		Long: `Build a falloff kernel and print it, top row first.

Built-in curves are linear and smooth. Sampled curves declared in a world
config are available with --config.

Examples:
  gridstamp kernel --radius 2
  gridstamp kernel --radius 3 --curve smooth
  gridstamp kernel --radius 4 --curve steep --config world.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKernel(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Radius, "radius", "r", 2, "kernel radius")
	cmd.Flags().StringVar(&opts.Curve, "curve", "linear", "falloff curve name")
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "world config declaring extra curves")

	return cmd
}

func runKernel(opts *KernelOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	e, err := loadEngine(opts.RootOptions, opts.Config, formatter)
	if err != nil {
		return err
	}

	k, err := e.Kernel(opts.Radius, opts.Curve)
	if err != nil {
		return formatter.EngineError(err)
	}
	formatter.VerboseLog("kernel cache: %+v", e.KernelStats())

	result := KernelResult{
		Radius: k.Radius(),
		Curve:  grid.NormalizeName(opts.Curve),
		Side:   k.Side(),
		Sum:    k.Sum(),
		Values: k.Values(),
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "kernel %s r=%d (%dx%d, sum %d)\n", result.Curve, result.Radius, result.Side, result.Side, result.Sum)
	var buf bytes.Buffer
	harness.RenderLayer(&buf, grid.Size{W: k.Side(), H: k.Side()}, result.Values)
	_, err = w.Write(buf.Bytes())
	return err
}
