// Package version implements the command that prints the build version.
package version

import (
	"github.com/storeforge/catsync/internal/cmd/base"
	buildversion "github.com/storeforge/catsync/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the version"
}

func (c *Command) Help() string {
	return `Usage: catsync version

  Prints the version of this catsync build.`
}

func (c *Command) Run(args []string) int {
	c.UI.Output(buildversion.Version)
	return 0
}
