package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/datawire/dlib/dgroup"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/telepresenceio/reliable-endpoint/pkg/endpoint"
	"github.com/telepresenceio/reliable-endpoint/pkg/netsim"
)

func simulateCommand() *cobra.Command {
	var dataAddr, peerAddr, metricsAddr string
	var lossRate float64
	var baseLatency, jitter time.Duration
	var seed int64

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a reliable-datagram endpoint over a simulated lossy/delayed network",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), dataAddr, peerAddr, metricsAddr, netsim.Config{
				LossRate:    lossRate,
				BaseLatency: baseLatency,
				Jitter:      jitter,
			}, seed)
		},
	}

	var flags *pflag.FlagSet = cmd.Flags()
	flags.StringVar(&dataAddr, "data-addr", "127.0.0.1:9100", "address to bind the simulated data socket")
	flags.StringVar(&peerAddr, "peer-addr", "", "remote peer address (required)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "address to bind a Prometheus /metrics endpoint (disabled if empty)")
	flags.Float64Var(&lossRate, "loss-rate", 0, "fraction of outbound datagrams to drop, in [0,1]")
	flags.DurationVar(&baseLatency, "base-latency", 0, "fixed delay added to every non-dropped outbound datagram")
	flags.DurationVar(&jitter, "jitter", 0, "maximum additional random delay added to every non-dropped outbound datagram")
	flags.Int64Var(&seed, "seed", 1, "PRNG seed for the loss/jitter simulation")
	_ = cmd.MarkFlagRequired("peer-addr")

	return cmd
}

func runSimulate(ctx context.Context, dataAddr, peerAddr, metricsAddr string, simCfg netsim.Config, seed int64) error {
	cfg, err := endpoint.LoadConfigFromEnv(ctx)
	if err != nil {
		return err
	}

	rawConn, err := net.ListenPacket("udp", dataAddr)
	if err != nil {
		return err
	}

	raddr, err := net.ResolveUDPAddr("udp", peerAddr)
	if err != nil {
		return err
	}

	transport := netsim.New(rawConn, simCfg, seed)

	ep := endpoint.NewEndpoint(transport, raddr, func(payload []byte) bool {
		return true
	}, cfg)

	g := dgroup.NewGroup(ctx, dgroup.GroupConfig{
		EnableSignalHandling: true,
	})

	g.Go("netsim", func(ctx context.Context) error {
		return transport.Run(ctx)
	})

	g.Go("endpoint", func(ctx context.Context) error {
		if err := ep.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return ep.Stop(context.Background())
	})

	g.Go("stats-report", func(ctx context.Context) error {
		return reportStatsUntilDone(ctx, ep)
	})

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: metricsAddr, Handler: mux}
		g.Go("metrics-http", func(ctx context.Context) error {
			go func() {
				<-ctx.Done()
				_ = server.Close()
			}()
			return server.ListenAndServe()
		})
	}

	return g.Wait()
}
