package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/mumoshu/delivery-sugar/build"
	"github.com/mumoshu/delivery-sugar/change"
	"github.com/mumoshu/delivery-sugar/config"
	"github.com/mumoshu/delivery-sugar/cookbook"
	"github.com/mumoshu/delivery-sugar/envvar"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	ConfigPath string
	LogLevel   string
	Output     string

	out io.Writer
}

func Main() error {
	ctx := newSignalContext()

	return NewRootCmd().ExecuteContext(ctx)
}

func NewRootCmd() *cobra.Command {
	var g globalOptions

	rootCmd := &cobra.Command{
		Use:          "delivery-sugar",
		Short:        "Helpers for Chef Automate workflow pipelines",
		Version:      build.Version(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			g.out = cmd.OutOrStdout()

			return g.setupLogging()
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.ConfigPath, "config", "", fmt.Sprintf("Path to the config file. Defaults to $%s or %s", envvar.Config, config.DefaultPath))
	rootCmd.PersistentFlags().StringVar(&g.LogLevel, "log-level", "", fmt.Sprintf("The log level to use. Valid values are \"debug\", \"info\", \"warn\", \"error\", and \"fatal\". Defaults to $%s or info", envvar.LogLevel))
	rootCmd.PersistentFlags().StringVarP(&g.Output, "output", "o", OutputText, "Output format. One of text, json and yaml")

	rootCmd.AddCommand(NewCmdChangedFiles(&g))
	rootCmd.AddCommand(NewCmdChangedCookbooks(&g))
	rootCmd.AddCommand(NewCmdChangedDirs(&g))
	rootCmd.AddCommand(NewCmdChangeLog(&g))
	rootCmd.AddCommand(NewCmdProjectCookbooks(&g))
	rootCmd.AddCommand(NewCmdCookbookMetadata(&g))
	rootCmd.AddCommand(NewCmdSlugs(&g))
	rootCmd.AddCommand(NewCmdPushJob(&g))
	rootCmd.AddCommand(NewCmdUploadCookbook(&g))
	rootCmd.AddCommand(NewCmdProjectSecrets(&g))
	rootCmd.AddCommand(NewCmdDefineApplication(&g))
	rootCmd.AddCommand(NewCmdGetApplication(&g))

	return rootCmd
}

func newSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		<-c
		cancel()
	}()

	return ctx
}

func runE(fn func(ctx context.Context, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd.Context(), args); err != nil {
			logrus.Error(err)
			return err
		}

		return nil
	}
}

func (g *globalOptions) setupLogging() error {
	level := g.LogLevel
	if level == "" {
		level = os.Getenv(envvar.LogLevel)
	}
	if level == "" {
		level = logrus.InfoLevel.String()
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}

	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)

	return nil
}

func (g *globalOptions) getConfig() (*config.Config, error) {
	return config.Load(config.Path(g.ConfigPath))
}

func (g *globalOptions) getChange() (*config.Config, *change.Change, error) {
	cfg, err := g.getConfig()
	if err != nil {
		return nil, nil, err
	}

	return cfg, change.New(*cfg, nil), nil
}

func (g *globalOptions) print(v interface{}) error {
	switch g.Output {
	case OutputJSON:
		enc := json.NewEncoder(g.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		return writeYAML(g.out, v)
	case OutputText, "":
		switch t := v.(type) {
		case []string:
			for _, s := range t {
				if _, err := fmt.Fprintln(g.out, s); err != nil {
					return err
				}
			}
			return nil
		case []*cookbook.Cookbook:
			for _, cb := range t {
				if _, err := fmt.Fprintln(g.out, cb.String()); err != nil {
					return err
				}
			}
			return nil
		case fmt.Stringer:
			_, err := fmt.Fprintln(g.out, t.String())
			return err
		default:
			return writeYAML(g.out, v)
		}
	default:
		return fmt.Errorf("unsupported output format %q", g.Output)
	}
}

func writeYAML(w io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}
