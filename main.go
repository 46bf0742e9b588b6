package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/yegor-usoltsev/orphanctl/internal/cli"
)

func main() {
	os.Exit(run()) //nolint:forbidigo
}

func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("panic: %v", r)
			code = 1
		}
	}()

	args := os.Args[1:]
	return cli.Run(args)
}
