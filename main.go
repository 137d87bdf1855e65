package main

import (
	"EPeer/config"
	"EPeer/discovery"
	"EPeer/logger"
	"EPeer/network"

	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

const LOCALNET_NODES_NUM = 3

type app struct {
	configPath string
	envFiles   []string
	network    string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "epeer",
		Short:        "Discover peers and run the version/verack handshake with them",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "TOML configuration file")
	flags.StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "dotenv files with EPEER_* overrides")
	flags.StringVar(&a.network, "network", "", "mainnet, testnet or regtest")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(a.handshakeCmd(), a.resolveCmd(), a.listenCmd(), a.localnetCmd())
	return root
}

// ======= Init =======

// init layers the configuration: defaults, the TOML file, .env files and
// EPEER_* variables, then command line flags.
func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(a.envFiles...); err != nil {
		return err
	}
	if a.network != "" {
		cfg.Network.Name = a.network
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	return a.resetLogger()
}

func (a *app) resetLogger() error {
	log, err := logger.New(a.cfg.LoggerConfig())
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

func (a *app) newManager(opts ...network.Option) (*network.Manager, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	netCfg, err := a.cfg.NetworkConfig()
	if err != nil {
		return nil, err
	}
	d, err := a.newDiscoverer()
	if err != nil {
		return nil, err
	}
	opts = append([]network.Option{network.WithLogger(a.log), network.WithDiscoverer(d)}, opts...)
	return network.NewManager(netCfg, opts...)
}

func (a *app) newDiscoverer() (*discovery.Discoverer, error) {
	return discovery.New(a.cfg.DiscoveryConfig(), discovery.WithLogger(a.log))
}

// ======= Commands =======

func (a *app) handshakeCmd() *cobra.Command {
	var (
		port        uint16
		concurrency int
		target      int
		nameserver  string
	)
	cmd := &cobra.Command{
		Use:   "handshake [seed...]",
		Short: "Resolve seeds and handshake with every address found",
		Long: "Resolve seeds (host names or IP literals) and handshake with every address found.\n" +
			"Without arguments the configured seeds, or the network's DNS seeds, are used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("port") {
				a.cfg.Network.Port = port
			}
			if flags.Changed("concurrency") {
				a.cfg.Dial.MaxConcurrency = concurrency
			}
			if flags.Changed("target") {
				a.cfg.Dial.TargetEstablished = target
			}
			if flags.Changed("nameserver") {
				a.cfg.Discovery.Nameserver = nameserver
			}
			m, err := a.newManager()
			if err != nil {
				return err
			}
			seeds := args
			if len(seeds) == 0 {
				seeds = a.cfg.Network.Seeds
			}

			report, err := m.DiscoverAndHandshake(cmd.Context(), seeds)
			if report != nil && report.Discovery != nil {
				printSeedErrors(cmd.ErrOrStderr(), report.Discovery)
			}
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().Uint16Var(&port, "port", 0, "port to dial (default: the network's port)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "handshakes in flight at once")
	cmd.Flags().IntVar(&target, "target", 0, "stop starting handshakes after this many succeed")
	cmd.Flags().StringVar(&nameserver, "nameserver", "", "query this DNS server (ip:port) directly")
	return cmd
}

func (a *app) resolveCmd() *cobra.Command {
	var port uint16
	cmd := &cobra.Command{
		Use:   "resolve [seed...]",
		Short: "Resolve seeds into candidate peer addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			netCfg, err := a.cfg.NetworkConfig()
			if err != nil {
				return err
			}
			if port == 0 {
				port = netCfg.Network.DefaultPort
				if netCfg.Port != 0 {
					port = netCfg.Port
				}
			}
			seeds := args
			if len(seeds) == 0 {
				seeds = netCfg.Network.Seeds
			}
			d, err := a.newDiscoverer()
			if err != nil {
				return err
			}

			res, err := d.Resolve(cmd.Context(), seeds, port)
			printSeedErrors(cmd.ErrOrStderr(), res)
			if err != nil {
				return err
			}
			for _, addr := range res.Addresses {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", addr, addr.Family)
			}
			return nil
		},
	}
	cmd.Flags().Uint16Var(&port, "port", 0, "port paired with every address (default: the network's port)")
	return cmd
}

func (a *app) listenCmd() *cobra.Command {
	var addr, metricsAddr string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Accept inbound peers and answer their handshake",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			m, err := a.newManager(network.WithRegisterer(reg))
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return errors.Wrap(err, "listen")
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			if metricsAddr != "" {
				srv := &http.Server{
					Addr:    metricsAddr,
					Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				}
				g.Go(func() error {
					<-ctx.Done()
					return srv.Close()
				})
				g.Go(func() error {
					if err := srv.ListenAndServe(); err != http.ErrServerClosed {
						return errors.Wrap(err, "metrics server")
					}
					return nil
				})
			}
			out := cmd.OutOrStdout()
			g.Go(func() error {
				return m.Serve(ctx, ln, func(o network.Outcome) {
					printOutcome(out, o)
				})
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:18444", "address to listen on")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// localnetCmd starts a few listening nodes on loopback and handshakes with
// all of them from a separate manager.
func (a *app) localnetCmd() *cobra.Command {
	var nodes int
	cmd := &cobra.Command{
		Use:   "localnet",
		Short: "Run listening nodes on loopback and handshake with each of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.runLocalNet(cmd.Context(), nodes)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().IntVar(&nodes, "nodes", LOCALNET_NODES_NUM, "number of listening nodes")
	return cmd
}

func (a *app) runLocalNet(ctx context.Context, nodes int) (*network.Report, error) {
	if nodes <= 0 {
		return nil, errors.Errorf("localnet needs at least one node, got %d", nodes)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// ======= Nodes =======
	g, gctx := errgroup.WithContext(ctx)
	abort := func(err error) (*network.Report, error) {
		cancel()
		_ = g.Wait()
		return nil, err
	}
	addrs := make([]discovery.PeerAddress, 0, nodes)
	for i := 0; i < nodes; i++ {
		node, err := a.newManager(network.WithLogger(a.log.With(zap.Int("node", i))))
		if err != nil {
			return abort(err)
		}
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return abort(errors.Wrap(err, "listen"))
		}
		tcp := ln.Addr().(*net.TCPAddr)
		addrs = append(addrs, discovery.NewPeerAddress(tcp.IP, uint16(tcp.Port)))
		g.Go(func() error {
			return node.Serve(gctx, ln, nil)
		})
	}

	// ======= Client =======
	client, err := a.newManager()
	if err != nil {
		return abort(err)
	}
	report := client.HandshakeAll(ctx, addrs)
	cancel()
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// ======= Output =======

func printReport(w io.Writer, report *network.Report) {
	for _, o := range report.Sorted() {
		printOutcome(w, o)
	}
	counts := report.Counts()
	fmt.Fprintf(w, "established %d of %d\n", counts[network.ReasonNone], len(report.Outcomes))
}

func printOutcome(w io.Writer, o network.Outcome) {
	if o.Established() {
		fmt.Fprintf(w, "%s\testablished\tversion=%d services=%s agent=%q height=%d\n",
			o.Peer, o.Version, o.Services, o.UserAgent, o.StartHeight)
		return
	}
	fmt.Fprintf(w, "%s\tfailed\treason=%s state=%s err=%v\n",
		o.Peer, o.Reason(), o.Failure.State, o.Failure.Err)
}

func printSeedErrors(w io.Writer, res *discovery.Result) {
	if res == nil {
		return
	}
	for _, seed := range sortedKeys(res.Errors) {
		fmt.Fprintf(w, "seed %q: %v\n", seed, res.Errors[seed])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
