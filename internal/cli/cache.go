package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/erdiagram/pkg/cache"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the rendered artifact cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached documents and artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.config.Cache.Backend != backendFile {
				printInfo("Cache backend is %q; nothing to clear locally", c.config.Cache.Backend)
				return nil
			}
			dir, err := c.cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}

			n, err := fc.Clear()
			if err != nil {
				return err
			}
			if n == 0 {
				printInfo("Cache is empty")
				return nil
			}
			printSuccess("Cleared %s", plural(n, "cached entry", "cached entries"))
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
