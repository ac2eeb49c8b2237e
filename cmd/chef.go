package cmd

import (
	"context"
	"time"

	"github.com/mumoshu/delivery-sugar/chefserver"
	"github.com/mumoshu/delivery-sugar/pushjob"
	"github.com/mumoshu/delivery-sugar/release"
	"github.com/mumoshu/delivery-sugar/upload"
	"github.com/spf13/cobra"
)

func NewCmdPushJob(g *globalOptions) *cobra.Command {
	var (
		nodes   []string
		timeout time.Duration
		quorum  int
	)

	cmd := &cobra.Command{
		Use:   "push-job COMMAND",
		Short: "Run COMMAND on nodes with Chef Push Jobs",
		Long:  "dispatches a push job running COMMAND on every --node and waits until it succeeded on all of them. Running it without nodes does nothing.",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(ctx context.Context, args []string) error {
			cfg, err := g.getConfig()
			if err != nil {
				return err
			}

			if timeout == 0 {
				timeout = cfg.PushJob.Timeout
			}

			return pushjob.Run(ctx, chefserver.New(cfg.ChefServer), pushjob.Options{
				Command:      args[0],
				Nodes:        nodes,
				Timeout:      timeout,
				Quorum:       quorum,
				PollInterval: cfg.PushJob.PollInterval,
			})
		}),
	}

	cmd.Flags().StringSliceVar(&nodes, "node", nil, "The name of a node to run the command on. Can be repeated")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long the job may run. Defaults to pushJob.timeout in the config file")
	cmd.Flags().IntVar(&quorum, "quorum", 0, "How many nodes must acknowledge the job for it to run. Defaults to all of them")

	return cmd
}

func NewCmdUploadCookbook(g *globalOptions) *cobra.Command {
	var (
		path  string
		knife string
	)

	cmd := &cobra.Command{
		Use:   "upload-cookbook NAME",
		Short: "Upload a cookbook to every upload target",
		Long:  "uploads the cookbook NAME at --path to every Chef Server listed in uploadTargets of the config file. Every server is tried even when an upload fails.",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(ctx context.Context, args []string) error {
			cfg, err := g.getConfig()
			if err != nil {
				return err
			}

			_, err = upload.Cookbook(ctx, &upload.Knife{Path: knife}, args[0], path, cfg.UploadTargets)

			return err
		}),
	}

	cmd.Flags().StringVar(&path, "path", "", "The directory of the cookbook")
	cmd.Flags().StringVar(&knife, "knife", "", "The knife executable. Defaults to knife in PATH")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}

func NewCmdProjectSecrets(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project-secrets",
		Short: "Show the secrets of the project",
		Long:  "decrypts the project's item of the delivery-secrets data bag, falling back to the organization's item when the project has none.",
		Args:  cobra.NoArgs,
		RunE: runE(func(ctx context.Context, _ []string) error {
			cfg, c, err := g.getChange()
			if err != nil {
				return err
			}

			secrets, err := c.ProjectSecrets(ctx, chefserver.New(cfg.ChefServer))
			if err != nil {
				return err
			}

			return g.print(secrets)
		}),
	}

	return cmd
}

func NewCmdDefineApplication(g *globalOptions) *cobra.Command {
	var attrs map[string]string

	cmd := &cobra.Command{
		Use:   "define-application NAME VERSION",
		Short: "Record a release of a project application",
		Long:  "records the release of application NAME at VERSION along with its --attr attributes, and pins the application to VERSION on the acceptance environment.",
		Args:  cobra.ExactArgs(2),
		RunE: runE(func(ctx context.Context, args []string) error {
			cfg, c, err := g.getChange()
			if err != nil {
				return err
			}

			a := make(map[string]interface{}, len(attrs))
			for k, v := range attrs {
				a[k] = v
			}

			item, err := c.DefineProjectApplication(ctx, release.NewStore(chefserver.New(cfg.ChefServer)), args[0], args[1], a)
			if err != nil {
				return err
			}

			return g.print(item)
		}),
	}

	cmd.Flags().StringToStringVar(&attrs, "attr", nil, "An attribute of the release, as KEY=VALUE. Can be repeated")

	return cmd
}

func NewCmdGetApplication(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-application NAME",
		Short: "Show the release of a project application pinned on the current stage",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(ctx context.Context, args []string) error {
			cfg, c, err := g.getChange()
			if err != nil {
				return err
			}

			item, err := c.GetProjectApplication(ctx, release.NewStore(chefserver.New(cfg.ChefServer)), args[0])
			if err != nil {
				return err
			}

			return g.print(item)
		}),
	}

	return cmd
}
