// Command repoquery derives and checks repository queries from method names.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/repoquery/internal/cli"
	"github.com/roach88/repoquery/internal/derive"
	"github.com/roach88/repoquery/internal/repository"
)

func main() {
	repository.InstrumentCache(derive.DefaultCache)

	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
