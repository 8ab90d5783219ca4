package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kardianos/nimbus"
	"github.com/kardianos/nimbus/nlog"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// execute runs one command. The session is closed even if the command fails.
func execute(args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if cerr := a.close(); cerr != nil {
		fmt.Fprintln(stderr, "Error:", cerr)
		if err == nil {
			err = cerr
		}
	}
	return err
}

// app carries the session shared by every command.
type app struct {
	flags struct {
		home          string
		cacheBackend  string
		cacheCodec    string
		secretBackend string
		secretPath    string
		log           string
	}
	session *nimbus.Session
	sync    func()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "nimbus",
		Short:        "Inspect and manage nimbus persistent state",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["session"] == "none" {
				return nil
			}
			return a.open()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.home, "home", "", "directory holding the cache (default $NIMBUS_HOME or ~)")
	pf.StringVar(&a.flags.cacheBackend, "cache-backend", "", "cache backend: file or bolt")
	pf.StringVar(&a.flags.cacheCodec, "cache-codec", "", "cache codec: cbor or msgpack")
	pf.StringVar(&a.flags.secretBackend, "secret-backend", "", "secret backend (see 'nimbus secret backends')")
	pf.StringVar(&a.flags.secretPath, "secret-path", "", "location for file based secret backends")
	pf.StringVar(&a.flags.log, "log", "", "logger: none, zap or logrus (default $NIMBUS_LOG or none)")

	root.AddCommand(dataCmd(a), resetCmd(a), secretCmd(a), idCmd(a))
	return root
}

// config reads the environment, applies the flags and builds the logger.
func (a *app) config() (nimbus.Config, error) {
	cfg, err := nimbus.ConfigFromEnv()
	if err != nil {
		return nimbus.Config{}, err
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Home, a.flags.home)
	set(&cfg.CacheBackend, a.flags.cacheBackend)
	set(&cfg.CacheCodec, a.flags.cacheCodec)
	set(&cfg.SecretBackend, a.flags.secretBackend)
	set(&cfg.SecretPath, a.flags.secretPath)
	set(&cfg.Log, a.flags.log)

	logger, sync, err := newLogger(cfg.Log)
	if err != nil {
		return nimbus.Config{}, err
	}
	cfg.Logger = logger
	a.sync = sync
	return cfg, nil
}

func (a *app) open() error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	a.session, err = nimbus.Open(cfg)
	return err
}

func (a *app) close() error {
	var err error
	if a.session != nil {
		err = a.session.Close()
		a.session = nil
	}
	if a.sync != nil {
		a.sync()
	}
	return err
}

func newLogger(kind string) (nlog.Logger, func(), error) {
	switch kind {
	case "", "none":
		return nlog.Nop{}, nil, nil
	case "zap":
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, nil, fmt.Errorf("create zap logger: %w", err)
		}
		return nlog.Zap{L: l}, func() { _ = l.Sync() }, nil
	case "logrus":
		l := logrus.New()
		l.SetOutput(os.Stderr)
		l.SetLevel(logrus.DebugLevel)
		return nlog.Logrus{E: logrus.NewEntry(l)}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown logger %q", kind)
	}
}
