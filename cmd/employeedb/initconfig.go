package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"employeedb/internal/config"
)

type cmdInitConfig struct {
	cli *cli

	Force bool `long:"force" short:"f" description:"Replace an existing file"`
	Args  struct {
		Path string `positional-arg-name:"PATH" description:"Destination. Defaults to the user config directory"`
	} `positional-args:"true"`
}

func (cmd *cmdInitConfig) Execute([]string) error {
	cfg, source, err := cmd.cli.loadConfig()
	if err != nil {
		return err
	}

	path := cmd.Args.Path
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !cmd.Force {
		return errors.Errorf("%s already exists, use --force to replace it", path)
	} else if err != nil && !os.IsNotExist(err) {
		return errors.WithMessagef(err, "checking %s", path)
	}

	if err := cfg.Save(path); err != nil {
		return errors.WithMessagef(err, "writing %s", path)
	}
	log.WithFields(log.Fields{"path": path, "source": source}).Debug("wrote configuration")

	fmt.Fprintf(cmd.cli.out, "Wrote configuration to %s\n", path)
	return nil
}
