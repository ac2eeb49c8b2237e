package cmd

import (
	"context"

	"github.com/mumoshu/delivery-sugar/cookbook"
	"github.com/spf13/cobra"
)

func NewCmdChangedFiles(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changed-files",
		Short: "List the files the change touched",
		Long:  "lists the files that differ between the merge-base of the pipeline and patchset branches and the patchset branch, or the files the merge commit brought in once the change is merged.",
		Args:  cobra.NoArgs,
		RunE: runE(func(ctx context.Context, _ []string) error {
			_, c, err := g.getChange()
			if err != nil {
				return err
			}

			files, err := c.ChangedFiles(ctx)
			if err != nil {
				return err
			}

			return g.print(nonNil(files))
		}),
	}

	return cmd
}

func NewCmdChangedCookbooks(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changed-cookbooks",
		Short: "List the cookbooks the change touched",
		Args:  cobra.NoArgs,
		RunE: runE(func(ctx context.Context, _ []string) error {
			_, c, err := g.getChange()
			if err != nil {
				return err
			}

			cookbooks, err := c.ChangedCookbooks(ctx)
			if err != nil {
				return err
			}

			return g.print(nonNilCookbooks(cookbooks))
		}),
	}

	return cmd
}

func NewCmdChangedDirs(g *globalOptions) *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "changed-dirs",
		Short: "List the directories the change touched",
		Args:  cobra.NoArgs,
		RunE: runE(func(ctx context.Context, _ []string) error {
			_, c, err := g.getChange()
			if err != nil {
				return err
			}

			dirs, err := c.ChangedDirs(ctx, depth)
			if err != nil {
				return err
			}

			return g.print(nonNil(dirs))
		}),
	}

	cmd.Flags().IntVar(&depth, "depth", -1, "How many directory levels below the top-level ones to list. A negative value lists them all")

	return cmd
}

func NewCmdChangeLog(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "change-log",
		Short: "List the commits of the change, newest first",
		Args:  cobra.NoArgs,
		RunE: runE(func(ctx context.Context, _ []string) error {
			_, c, err := g.getChange()
			if err != nil {
				return err
			}

			log, err := c.ChangeLog(ctx)
			if err != nil {
				return err
			}

			return g.print(nonNil(log))
		}),
	}

	return cmd
}

func NewCmdProjectCookbooks(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project-cookbooks",
		Short: "List every cookbook of the project",
		Args:  cobra.NoArgs,
		RunE: runE(func(ctx context.Context, _ []string) error {
			_, c, err := g.getChange()
			if err != nil {
				return err
			}

			cookbooks, err := c.AllProjectCookbooks()
			if err != nil {
				return err
			}

			return g.print(nonNilCookbooks(cookbooks))
		}),
	}

	return cmd
}

func NewCmdCookbookMetadata(g *globalOptions) *cobra.Command {
	var revision string

	cmd := &cobra.Command{
		Use:   "cookbook-metadata PATH",
		Short: "Show the name and version of the cookbook at PATH",
		Long:  "shows the name and version of the cookbook at PATH, relative to the repository root, as it is on disk or as it was at --revision. Fails when PATH is not a cookbook.",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(ctx context.Context, args []string) error {
			_, c, err := g.getChange()
			if err != nil {
				return err
			}

			cb, err := c.CookbookMetadata(ctx, args[0], revision)
			if err != nil {
				return err
			}

			if cb == nil {
				return &cookbook.NotACookbookError{Path: args[0]}
			}

			return g.print(cb)
		}),
	}

	cmd.Flags().StringVar(&revision, "revision", "", "The git revision to read the metadata at. Defaults to the working tree")

	return cmd
}

type slugs struct {
	Enterprise                 string `json:"enterprise" yaml:"enterprise"`
	Organization               string `json:"organization" yaml:"organization"`
	Project                    string `json:"project" yaml:"project"`
	AcceptanceEnvironment      string `json:"acceptanceEnvironment" yaml:"acceptanceEnvironment"`
	EnvironmentForCurrentStage string `json:"environmentForCurrentStage" yaml:"environmentForCurrentStage"`
}

func NewCmdSlugs(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slugs",
		Short: "Show the slugs and environment names of the change",
		Args:  cobra.NoArgs,
		RunE: runE(func(ctx context.Context, _ []string) error {
			_, c, err := g.getChange()
			if err != nil {
				return err
			}

			return g.print(slugs{
				Enterprise:                 c.EnterpriseSlug(),
				Organization:               c.OrganizationSlug(),
				Project:                    c.ProjectSlug(),
				AcceptanceEnvironment:      c.AcceptanceEnvironment(),
				EnvironmentForCurrentStage: c.EnvironmentForCurrentStage(),
			})
		}),
	}

	return cmd
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilCookbooks(s []*cookbook.Cookbook) []*cookbook.Cookbook {
	if s == nil {
		return []*cookbook.Cookbook{}
	}
	return s
}
