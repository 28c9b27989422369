package cli

import (
	"github.com/spf13/cobra"
)

func newFilesCmd(opts *globalOptions) *cobra.Command {
	var (
		req    mapRequest
		format string
	)

	cmd := &cobra.Command{
		Use:   "files [binary]",
		Short: "List the files a mapping run registers",
		Long: `Print the main binary, each shared object and every coverage data file
discovered while mapping, in the order they were announced.`,
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
			return formatter.Format(out.files, cmd.OutOrStdout())
		},
	}

	addMapFlags(cmd, &req)
	addFormatFlag(cmd, &format)
	return cmd
}
