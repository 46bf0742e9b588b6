package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yegor-usoltsev/orphanctl/internal/config"
	"github.com/yegor-usoltsev/orphanctl/internal/version"
)

type root struct {
	Config   string           `name:"config" short:"c" default:"orphanctl.yaml" env:"ORPHANCTL_CONFIG" help:"Config file."`
	LogLevel string           `name:"log-level" default:"info" enum:"debug,info,warn,error" env:"ORPHANCTL_LOG_LEVEL" help:"Log level (${enum})."`
	Version  kong.VersionFlag `name:"version" help:"Print version and exit."`

	Init     initCmd     `cmd:"" help:"Write a starter orphanctl.yaml."`
	Validate validateCmd `cmd:"" help:"Validate the config file."`
	Plan     planCmd     `cmd:"" help:"Print files that the build did not reach."`
	Clean    cleanCmd    `cmd:"" help:"Compute the plan and apply the configured mode."`
	Apply    applyCmd    `cmd:"" help:"Delete the files listed in a reviewed plan artifact."`
	Prune    pruneCmd    `cmd:"" help:"Remove empty directories under the roots."`
}

// env holds what every command needs after flags are parsed.
type env struct {
	log        *logrus.Logger
	configPath string
	// explicitConfig is false when the config path is the default one, in
	// which case a missing file falls back to built-in defaults.
	explicitConfig bool
	stdout         io.Writer
}

func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		args = []string{"--help"}
	}
	// A missing .env is fine; values only seed the env-backed flags.
	_ = godotenv.Load()

	log := newLogger(stderr)

	var cli root
	k, err := kong.New(
		&cli,
		kong.Name("orphanctl"),
		kong.Description("Find and remove files a build never touched."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Vars{"version": version.Version},
	)
	if err != nil {
		log.Errorf("init cli: %v", err)
		return 1
	}

	kctx, err := k.Parse(args)
	if err != nil {
		return parseExitCode(log, err)
	}

	level, err := logrus.ParseLevel(cli.LogLevel)
	if err != nil {
		log.Errorf("parse log level: %v", err)
		return 2
	}
	log.SetLevel(level)

	e := &env{
		log:            log,
		configPath:     cli.Config,
		explicitConfig: cli.Config != config.DefaultFile,
		stdout:         stdout,
	}
	kctx.BindTo(context.Background(), (*context.Context)(nil))
	if err := kctx.Run(e); err != nil {
		var verrs config.Errors
		if errors.As(err, &verrs) {
			for _, ve := range verrs {
				log.Errorf("validate: %s: %s", ve.Path, ve.Msg)
			}
			return 1
		}
		if errors.Is(err, errRunIncomplete) {
			return 1
		}
		log.Errorf("command failed: %v", err)
		return 1
	}
	return 0
}

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return l
}

func parseExitCode(log logrus.FieldLogger, err error) int {
	var perr *kong.ParseError
	if errors.As(err, &perr) {
		log.Errorf("parse args: %v", err)
		return 2
	}
	var ec interface{ ExitCode() int }
	if errors.As(err, &ec) {
		code := ec.ExitCode()
		if code == 0 {
			return 0
		}
		log.Errorf("parse args: %v", err)
		return code
	}
	// If this isn't an ExitCoder error, treat it as a usage error.
	log.Errorf("parse args: %v", err)
	return 2
}

func (e *env) loadConfig() (config.File, error) {
	f, err := config.Load(e.configPath)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, config.ErrNotFound) && !e.explicitConfig {
		wd, werr := os.Getwd()
		if werr != nil {
			return config.File{}, werr
		}
		e.log.Debugf("config: %s not found, using defaults", e.configPath)
		return config.Default(wd), nil
	}
	return config.File{}, err
}
