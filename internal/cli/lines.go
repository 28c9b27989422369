package cli

import (
	"github.com/spf13/cobra"
)

func addMapFlags(cmd *cobra.Command, req *mapRequest) {
	cmd.Flags().StringSliceVar(&req.solibs, "solib", nil, "Shared object to map after the main binary (repeatable)")
	cmd.Flags().IntVar(&req.pid, "pid", 0, "Take the binary, bias and shared object segments from a running process")
	cmd.Flags().StringVar(&req.bias, "bias", "", "Load bias of a position-independent main binary (e.g. 0x555555554000)")
	cmd.Flags().StringSliceVar(&req.includes, "include", nil, "Only report source files under these prefixes")
}

func newLinesCmd(opts *globalOptions) *cobra.Command {
	var (
		req    mapRequest
		format string
	)

	cmd := &cobra.Command{
		Use:   "lines [binary]",
		Short: "List the source line of every mapped address",
		Long: `Print one row per (file, line, address) triple found in the binary and
any --solib shared objects.

Position-independent executables are reported at their link-time addresses
unless a --bias or --pid is given.`,
		Example: `  covmap lines ./a.out
  covmap lines ./a.out --solib ./libfoo.so --bias 0x555555554000
  covmap lines --pid 1234 --solib /usr/lib/libfoo.so -o csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := NewFormatter(OutputFormat(format))
			if err != nil {
				return err
			}
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				req.binary = args[0]
			}

			out, err := run(cfg, req, newLogger(cmd, cfg))
			if err != nil {
				return err
			}
			rows := out.lines
			if rows == nil {
				rows = []lineRow{}
			}
			return formatter.Format(rows, cmd.OutOrStdout())
		},
	}

	addMapFlags(cmd, &req)
	addFormatFlag(cmd, &format)
	return cmd
}
