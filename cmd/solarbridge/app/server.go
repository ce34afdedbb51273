package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	utilserrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"
	"solarbridge/cmd/solarbridge/options"
	"solarbridge/pkg/generic"
	baseoptions "solarbridge/pkg/generic/options"
	"solarbridge/pkg/web"
)

const (
	ComponentSolarBridge = "solarbridge"
)

func NewSolarBridgeCmd() *cobra.Command {
	cleanFlagSet := pflag.NewFlagSet(ComponentSolarBridge, pflag.ContinueOnError)
	o := options.NewDefaultOptions()
	cmd := &cobra.Command{
		Use:                ComponentSolarBridge,
		Long:               `The solarbridge polls a charge controller over Modbus and publishes its registers to an MQTT broker.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// initial flag parse, since we disable cobra's flag parsing
			if err := cleanFlagSet.Parse(args); err != nil {
				klog.ErrorS(err, "Failed to parse flag")
				_ = cmd.Usage()
				os.Exit(1)
			}

			// check if there are non-flag arguments in the command line
			cmds := cleanFlagSet.Args()
			if len(cmds) > 0 {
				klog.ErrorS(nil, "Unknown command", "command", cmds[0])
				_ = cmd.Usage()
				os.Exit(1)
			}

			// short-circuit on help
			baseoptions.PrintHelpAndExitIfRequested(cmd, cleanFlagSet)

			// short-circuit on defaultconfig
			baseoptions.PrintDefaultConfigAndExitIfRequested(options.NewDefaultOptions(), cleanFlagSet)

			if err := baseoptions.ParseAndApplyConfigFile(o, args); err != nil {
				return err
			}

			if err := o.ApplyEnv(); err != nil {
				return err
			}

			if errs := options.Validate(o); len(errs) != 0 {
				return utilserrors.NewAggregate(errs)
			}

			return run(o)
		},
	}

	o.AddFlags(cleanFlagSet)
	o.AddBaseFlags(cmd, cleanFlagSet)

	return cmd
}

func run(o *options.Options) error {
	c, err := o.Config()
	if err != nil {
		return err
	}

	server, err := web.NewServer(generic.Default(), o, c)
	if err != nil {
		_ = c.Shutdown(context.Background())
		return err
	}

	exit, err := server.Serve()
	if err != nil {
		_ = c.Shutdown(context.Background())
		return err
	}
	if server.Enabled() {
		klog.V(1).InfoS("Server started", "port", o.Port)
	}

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Bridge.Run(ctx)
	}()

	// Graceful shutdown
	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	exitCh := make(chan os.Signal, 1)
	signal.Notify(exitCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-exitCh:
		klog.V(1).InfoS("Shutting down", "signal", sig.String())
		stop()
		runErr = <-done
	case runErr = <-done:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), o.Wait)
	defer cancel()
	exit(shutdownCtx)

	return runErr
}
