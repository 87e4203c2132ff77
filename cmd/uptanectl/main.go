// Command uptanectl verifies director/targets manifests against a
// configured set of trust-anchor keys, provisions new keys, and can
// run as a watch daemon or HTTP service.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/uptane-targets/internal/flags"
)

var gitCommit = ""
var gitDate = ""

var app *cli.App

func init() {
	app = flags.NewApp(gitCommit, gitDate, "an Uptane director-manifest verifier")
	app.Commands = []*cli.Command{
		commandVerify,
		commandProvisionKeys,
		commandServe,
		commandWatch,
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
