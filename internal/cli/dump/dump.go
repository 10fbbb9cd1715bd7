// Package dump implements the stabdump subcommands that extract and
// print debug information from an object file.
package dump

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/coral-mesh/stabs/internal/elfobj"
	"github.com/coral-mesh/stabs/internal/logging"
	"github.com/coral-mesh/stabs/internal/symtab"
	"github.com/coral-mesh/stabs/pkg/typegraph"
)

type options struct {
	logLevel   string
	pretty     bool
	loadOffset uint64
}

func (o *options) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	fs.BoolVar(&o.pretty, "pretty", true, "human-readable log output")
	fs.Uint64Var(&o.loadOffset, "load-offset", 0, "relocation base added to every address")
}

func (o *options) load(path string) (*symtab.Module, *typegraph.Graph, error) {
	logger := logging.New(logging.Config{Level: o.logLevel, Pretty: o.pretty})
	graph := typegraph.New()
	m, err := elfobj.LoadModule(path, o.loadOffset, graph, logger)
	if err != nil {
		return nil, nil, err
	}
	return m, graph, nil
}

// NewSymbolsCmd lists every function and data symbol in the object.
func NewSymbolsCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "symbols <object-file>",
		Short: "List functions and data symbols",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := opts.load(args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, f := range m.Functions() {
				fmt.Fprintf(w, "%016x\tFUNC\t%s\t%s\t%s\n", f.Addr, f.Name, f.Type, f.Source)
			}
			for _, d := range m.DataSymbols() {
				class := "DATA"
				if d.Static {
					class = "STATIC"
				}
				fmt.Fprintf(w, "%016x\t%s\t%s\t%s\t%s\n", d.Addr, class, d.Name, d.Type, d.Source)
			}
			return w.Flush()
		},
	}
	opts.register(cmd.Flags())
	return cmd
}

// NewTypesCmd prints the reconstructed type graph.
func NewTypesCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "types <object-file>",
		Short: "Print the reconstructed data types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, graph, err := opts.load(args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for i, n := range graph.Nodes() {
				fmt.Fprintf(w, "%d\t%s\t%s\n", i, n.Kind(), n)
				for _, fld := range n.Fields() {
					fmt.Fprintf(w, "\t.%s\t%s\toffset=%d size=%d\n", fld.Name, fld.Type, fld.Offset, fld.Size)
				}
				for _, mem := range n.Members() {
					fmt.Fprintf(w, "\t%s\t= %d\n", mem.Name, mem.Value)
				}
			}
			return w.Flush()
		},
	}
	opts.register(cmd.Flags())
	return cmd
}

// NewLinesCmd prints every function's line-number table.
func NewLinesCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "lines <object-file>",
		Short: "Print line-number tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := opts.load(args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, f := range m.Functions() {
				if len(f.Lines) == 0 {
					continue
				}
				fmt.Fprintf(w, "%s\t%016x\t%s\n", f.Name, f.Addr, f.Source)
				for _, ln := range f.Lines {
					fmt.Fprintf(w, "\tline %d\t+0x%x\n", ln.Line, ln.Offset)
				}
			}
			return w.Flush()
		},
	}
	opts.register(cmd.Flags())
	return cmd
}
