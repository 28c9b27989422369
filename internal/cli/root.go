// Package cli implements the covmap command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/coral-mesh/covmap/internal/config"
	"github.com/coral-mesh/covmap/internal/logging"
	"github.com/coral-mesh/covmap/pkg/version"
)

// globalOptions are the persistent flags shared by every subcommand. They
// override the config file and environment.
type globalOptions struct {
	configPath string
	logLevel   string
	logPretty  bool
	origPrefix string
	newPrefix  string
	debugRoot  string
	verify     bool
	gcov       bool
}

// NewRootCmd builds the covmap command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "covmap",
		Short: "covmap - map ELF binaries to source lines",
		Long: `Map the instruction addresses of ELF executables and shared objects
to the source file and line they were compiled from.

Line tables come from embedded DWARF, from separate debug files found by
build-id or .gnu_debuglink, or from gcov graph files when --gcov is set.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Long += "\n\nEnvironment variables:\n  " + strings.Join(config.EnvVars(), "\n  ")

	opts.addFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newLinesCmd(opts))
	rootCmd.AddCommand(newFilesCmd(opts))
	rootCmd.AddCommand(newInfoCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func (o *globalOptions) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.configPath, "config", "", "Config file (default $COVMAP_CONFIG/config.yaml or ~/.covmap/config.yaml)")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.BoolVar(&o.logPretty, "log-pretty", false, "Human-readable log output")
	flags.StringVar(&o.origPrefix, "orig-prefix", "", "Source prefix recorded in the debug info")
	flags.StringVar(&o.newPrefix, "new-prefix", "", "Replacement for --orig-prefix in reported paths")
	flags.StringVar(&o.debugRoot, "debug-root", "", "Global debug directory for separate debug files")
	flags.BoolVar(&o.verify, "verify", false, "Drop addresses that are not on an instruction boundary")
	flags.BoolVar(&o.gcov, "gcov", false, "Prefer gcov graph files over DWARF")
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// load resolves the configuration for cmd: defaults, file, environment and
// finally any flag the user set.
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.NewLoader().Load()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if flags.Changed("log-pretty") {
		cfg.Logging.Pretty = o.logPretty
	}
	if flags.Changed("orig-prefix") {
		cfg.Paths.OrigPrefix = o.origPrefix
	}
	if flags.Changed("new-prefix") {
		cfg.Paths.NewPrefix = o.newPrefix
	}
	if flags.Changed("debug-root") {
		cfg.Paths.DebugRoot = o.debugRoot
	}
	if flags.Changed("verify") {
		cfg.Parser.Verify = o.verify
	}
	if flags.Changed("gcov") {
		cfg.Parser.Gcov = o.gcov
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) zerolog.Logger {
	lc := logging.DefaultConfig()
	lc.Level = cfg.Logging.Level
	lc.Output = cmd.ErrOrStderr()
	lc.Pretty = cfg.Logging.Pretty || (lc.Pretty && lc.Output == io.Writer(os.Stderr))
	return logging.New(lc).With().Str("command", cmd.Name()).Logger()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprint(cmd.OutOrStdout(), version.Info("covmap"))
		},
	}
}
