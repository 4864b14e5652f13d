package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dosco/sqlgeo/serv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// These variables are set using -ldflags
	version string
	commit  string
	date    string
)

var (
	log     *zap.SugaredLogger
	conf    *serv.Config
	cpath   string
	logJSON bool
)

// Cmd is the entry point for the CLI
func Cmd() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	conf, log = nil, nil

	cobra.EnableCommandSorting = false
	rootCmd := &cobra.Command{
		Use:          "sqlgeo",
		Short:        BuildDetails(),
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.PersistentFlags().StringVar(&cpath,
		"path", "./config", "path to config files")

	// Add --config as an alias for --path
	rootCmd.PersistentFlags().StringVar(&cpath,
		"config", "./config", "alias for --path")
	rootCmd.PersistentFlags().MarkHidden("config") //nolint:errcheck

	rootCmd.PersistentFlags().BoolVar(&logJSON,
		"log-json", false, "log in JSON format")

	rootCmd.AddCommand(compileCmd())
	rootCmd.AddCommand(insertCmd())
	rootCmd.AddCommand(sridCmd())
	rootCmd.AddCommand(describeCmd())
	rootCmd.AddCommand(decodeCmd())
	rootCmd.AddCommand(configSchemaCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// setup reads the config for the current environment. Without a config
// directory the defaults are used.
func setup(c *cobra.Command) error {
	if conf != nil {
		return nil
	}

	cp, err := filepath.Abs(cpath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cp); os.IsNotExist(err) {
		if conf, err = serv.NewConfig("", "yaml"); err != nil {
			return err
		}
		conf.ConfigPath = cp
	} else if conf, err = serv.ReadInConfig(filepath.Join(cp, serv.GetConfigName())); err != nil {
		return errors.Wrap(err, "failed to read config")
	}

	log = serv.NewLogger(c.ErrOrStderr(), logJSON || conf.ShouldUseJSONLogs(), conf.LogLevel).Sugar()
	return nil
}

// newService reads the config and creates the service
func newService(c *cobra.Command) (*serv.Service, error) {
	if err := setup(c); err != nil {
		return nil, err
	}
	return serv.NewService(conf, serv.OptionSetLogger(log.Desugar()))
}

func configSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config-schema",
		Short: "Print the JSON schema of the config file",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			b, err := serv.ConfigSchema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.OutOrStdout(), string(b))
			return err
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Version information",
		Run: func(c *cobra.Command, args []string) {
			fmt.Fprintln(c.OutOrStdout(), BuildDetails())
		},
	}
}

// BuildDetails returns the version, commit and build date
func BuildDetails() string {
	if version == "" {
		return "sqlgeo (unknown version)"
	}

	return fmt.Sprintf(`sqlgeo %s
Commit SHA-1   : %s
Commit timestamp: %s
Go version      : %s
`, version, commit, date, runtime.Version())
}
