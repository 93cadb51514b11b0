package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func indexCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the decision text index",
	}
	cmd.AddCommand(
		indexSubcmd(flags, "ensure", "Create the text index if it does not exist", indexEnsure),
		indexSubcmd(flags, "drop", "Drop the text index; stored decisions are kept", indexDrop),
		indexSubcmd(flags, "rebuild", "Drop and recreate the text index, re-indexing stored decisions", indexRebuild),
	)
	return cmd
}

func indexSubcmd(flags *globalFlags, use, short string, run func(context.Context, *app) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			msg, err := run(cmd.Context(), a)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func indexEnsure(ctx context.Context, a *app) (string, error) {
	if err := a.repo.EnsureIndex(ctx); err != nil {
		return "", err
	}
	return a.indexReady(ctx)
}

func indexDrop(ctx context.Context, a *app) (string, error) {
	if err := a.repo.DropIndex(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("index %s dropped", a.repo.IndexName()), nil
}

func indexRebuild(ctx context.Context, a *app) (string, error) {
	if err := a.repo.RebuildIndex(ctx); err != nil {
		return "", err
	}
	return a.indexReady(ctx)
}

func (a *app) indexReady(ctx context.Context) (string, error) {
	n, err := a.repo.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("count decisions: %w", err)
	}
	return fmt.Sprintf("index %s ready (%d decisions)", a.repo.IndexName(), n), nil
}
