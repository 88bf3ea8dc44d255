package main

import (
	"context"
	"fmt"
	"os"

	"github.com/trezcool/scolarite/apps/shared"
	"github.com/trezcool/scolarite/core"
	logsvc "github.com/trezcool/scolarite/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.New("ADMIN : ", conf)

	app, err := shared.New(context.Background(), conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up app: %v", err), err)
	}

	cli := commandLine{app: app, out: os.Stdout}
	err = cli.run(os.Args)
	if cerr := app.Close(); cerr != nil {
		logger.Error("Failed to close", cerr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}
