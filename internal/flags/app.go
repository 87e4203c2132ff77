package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// NewApp mirrors the teacher's flags.NewApp: a minimal *cli.App with
// version/usage wired from linker-set build metadata, so every
// uptanectl subcommand shares one version string format.
func NewApp(gitCommit, gitDate, usage string) *cli.App {
	app := cli.NewApp()
	app.EnableBashCompletion = true
	app.Version = buildVersion(gitCommit, gitDate)
	app.Usage = usage
	app.Copyright = "Copyright 2026 The uptane-targets authors"
	app.Before = func(ctx *cli.Context) error {
		MigrateGlobalFlags(ctx)
		return nil
	}
	return app
}

func buildVersion(gitCommit, gitDate string) string {
	v := "dev"
	if gitCommit != "" {
		n := len(gitCommit)
		if n > 8 {
			n = 8
		}
		v = gitCommit[:n]
	}
	if gitDate != "" {
		v = fmt.Sprintf("%s-%s", v, gitDate)
	}
	return v
}

// MigrateGlobalFlags copies any flag set on an ancestor context down
// into ctx, so a flag given before the subcommand name (app-level)
// still reaches the subcommand the way the teacher's CLI allows.
func MigrateGlobalFlags(ctx *cli.Context) {
	for _, name := range ctx.FlagNames() {
		for _, parent := range ctx.Lineage()[1:] {
			if parent.IsSet(name) && !ctx.IsSet(name) {
				_ = ctx.Set(name, parent.String(name))
			}
		}
	}
}
