package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/asistencia/core"
	logsvc "github.com/trezcool/asistencia/services/logger"
	"github.com/trezcool/asistencia/storage"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// migrations are driven by the migrate command, never implicitly
	repos, err := storage.Open(context.Background(), conf, false)
	if err != nil {
		logger.Fatal("setting up storage: "+err.Error(), err)
	}

	cli := newCommandLine(conf, logger, repos, os.Stdout)
	err = cli.run(os.Args)
	if cerr := repos.Close(); cerr != nil {
		logger.Error("closing storage: "+cerr.Error(), cerr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error("error: "+err.Error(), err)
		}
		os.Exit(1)
	}
}
