package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/core/domain"
)

func (c *CLI) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [tasks...]",
		Short: "Run tasks without their dependencies",
		Long: "Run the named tasks without their dependencies, ordered by the edges among them.\n" +
			"Tasks: " + domain.TaskClean + ", " + domain.TaskCopy + ", " + domain.TaskPages + ", " +
			domain.TaskImages + ", " + domain.TaskSass + ".",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			return c.app.Run(cmd.Context(), args, c.options(cmd))
		},
	}
}
