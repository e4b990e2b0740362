// Package launcher assembles the oracle participant daemon: config, logger,
// node client, price feed, participant loop and status API, supervised as
// one group until a signal stops them.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/evalphobia/logrus_sentry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/oraclesuite/go-oraclepool/api"
	"github.com/oraclesuite/go-oraclepool/box/oraclepk"
	"github.com/oraclesuite/go-oraclepool/feed"
	"github.com/oraclesuite/go-oraclepool/flags"
	"github.com/oraclesuite/go-oraclepool/node"
	"github.com/oraclesuite/go-oraclepool/oracle"
	"github.com/oraclesuite/go-oraclepool/pool"
)

var app = flags.NewApp("decentralized price-oracle pool participant")

func init() {
	daemonFlags := joinFlags(
		flags.CommonFlags(),
		flags.NodeFlags(),
		flags.OracleFlags(),
		flags.FeedFlags(),
	)
	app.Flags = daemonFlags
	app.Action = runOracle
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "Run the participant daemon (the default action)",
			Flags:  daemonFlags,
			Action: runOracle,
		},
		{
			Name:   "presets",
			Usage:  "List the known pool deployments",
			Action: listPresets,
		},
		{
			Name:   "scans",
			Usage:  "Show the node scan ids registered for this deployment",
			Flags:  daemonFlags,
			Action: showScans,
		},
		{
			Name:   "version",
			Usage:  "Print version information",
			Action: printVersion,
		},
	}
}

// Launch parses the command line and runs the selected command.
func Launch(args []string) error {
	return app.Run(args)
}

func runOracle(ctx *cli.Context) error {
	cfg, err := MakeConfig(ctx)
	if err != nil {
		return err
	}
	log, err := makeLogger(cfg)
	if err != nil {
		return err
	}

	rules, err := pool.RulesByName(cfg.Oracle.Rules)
	if err != nil {
		return err
	}
	if cfg.Oracle.PubKey == "" {
		return errors.New("launcher: oracle.pubkey is required")
	}
	pk, err := oraclepk.FromString(cfg.Oracle.PubKey)
	if err != nil {
		return fmt.Errorf("launcher: bad oracle.pubkey: %w", err)
	}

	priceSource, err := feed.New(cfg.Feed, log)
	if err != nil {
		return err
	}
	client, err := node.NewClient(cfg.Node, log)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if status, err := client.WalletStatus(runCtx); err != nil {
		log.WithError(err).Warn("node wallet status unavailable")
	} else if !status.Ready() {
		log.Warn("node wallet is locked or uninitialized, submissions will fail until it is unlocked")
	}

	scans, err := node.EnsureScans(runCtx, client, rules, pk, cfg.DataDir)
	if err != nil {
		return err
	}
	tracker := node.NewTracker(client, rules, pk, scans, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	runner, err := oracle.New(oracle.Options{
		Rules:     rules,
		Key:       pk,
		Chain:     tracker,
		Submitter: client,
		Feed:      priceSource,
		Interval:  cfg.Oracle.Interval,
		Log:       log,
		Metrics:   oracle.NewMetrics(registry),
	})
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"rules":   rules.Name,
		"oracle":  pk.String(),
		"datadir": cfg.DataDir,
	}).Info("oracle daemon starting")

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return runner.Run(groupCtx)
	})
	if cfg.API.Port != 0 {
		addr := net.JoinHostPort(cfg.API.Addr, strconv.Itoa(cfg.API.Port))
		server := api.NewServer(addr, api.NewRouter(runner, client, registry, log), log)
		group.Go(func() error {
			return server.Run(groupCtx)
		})
	}
	return group.Wait()
}

func listPresets(*cli.Context) error {
	for _, name := range pool.PresetNames() {
		r, err := pool.RulesByName(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.Writer, "%s:\n", r.Name)
		fmt.Fprintf(app.Writer, "  pool NFT      %s\n", r.Tokens.PoolNFT)
		fmt.Fprintf(app.Writer, "  refresh NFT   %s\n", r.Tokens.RefreshNFT)
		fmt.Fprintf(app.Writer, "  oracle token  %s\n", r.Tokens.OracleToken)
		fmt.Fprintf(app.Writer, "  reward token  %s\n", r.Tokens.RewardToken)
		fmt.Fprintf(app.Writer, "  base fee      %d\n", r.Economy.BaseFee)
		fmt.Fprintf(app.Writer, "  min box value %d\n", r.Economy.MinBoxValue)
	}
	return nil
}

func showScans(ctx *cli.Context) error {
	cfg, err := MakeConfig(ctx)
	if err != nil {
		return err
	}
	set, err := node.LoadScanSet(cfg.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(app.Writer, "no scans registered yet, run the daemon first")
			return nil
		}
		return err
	}
	fmt.Fprintf(app.Writer, "pool box      %d\n", set.Pool)
	fmt.Fprintf(app.Writer, "refresh box   %d\n", set.Refresh)
	fmt.Fprintf(app.Writer, "datapoints    %d\n", set.Datapoints)
	fmt.Fprintf(app.Writer, "local oracle  %d\n", set.LocalOracle)
	return nil
}

func printVersion(*cli.Context) error {
	fmt.Fprintf(app.Writer, "%s %s (%s %s/%s)\n",
		app.Name, app.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}

func makeLogger(cfg Config) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetLevel(verbosityToLevel(cfg.Logging.Verbosity))
	switch cfg.Logging.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{
			ForceColors:   cfg.Logging.Color,
			DisableColors: !cfg.Logging.Color,
			FullTimestamp: true,
		})
	default:
		return nil, fmt.Errorf("launcher: unknown log format %q", cfg.Logging.Format)
	}
	if cfg.Sentry.DSN != "" {
		hook, err := logrus_sentry.NewSentryHook(cfg.Sentry.DSN, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			return nil, fmt.Errorf("launcher: sentry hook: %w", err)
		}
		hook.StacktraceConfiguration.Enable = true
		log.AddHook(hook)
	}
	return log, nil
}

func verbosityToLevel(v int) logrus.Level {
	switch {
	case v <= 0:
		return logrus.FatalLevel
	case v == 1:
		return logrus.ErrorLevel
	case v == 2:
		return logrus.WarnLevel
	case v == 3:
		return logrus.InfoLevel
	case v == 4:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

func joinFlags(sets ...[]cli.Flag) []cli.Flag {
	var all []cli.Flag
	for _, set := range sets {
		all = append(all, set...)
	}
	return all
}
