package main

import (
	"context"
	"net"
	"net/http"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/telepresenceio/reliable-endpoint/pkg/endpoint"
	"github.com/telepresenceio/reliable-endpoint/pkg/handshake"
	rpchandshake "github.com/telepresenceio/reliable-endpoint/rpc/handshake"
)

func listenCommand() *cobra.Command {
	var dataAddr, mgmtAddr, metricsAddr, peerAddr string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Listen for reliable-endpoint traffic on a UDP socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListen(cmd.Context(), dataAddr, mgmtAddr, metricsAddr, peerAddr)
		},
	}

	cmd.Flags().StringVar(&dataAddr, "data-addr", "127.0.0.1:9000", "address to bind the reliable-endpoint data socket")
	cmd.Flags().StringVar(&mgmtAddr, "mgmt-addr", "127.0.0.1:9001", "address to bind the handshake management gRPC server")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to bind a Prometheus /metrics endpoint (disabled if empty)")
	cmd.Flags().StringVar(&peerAddr, "peer-addr", "", "remote peer address to send/receive with (required)")
	_ = cmd.MarkFlagRequired("peer-addr")

	return cmd
}

func runListen(ctx context.Context, dataAddr, mgmtAddr, metricsAddr, peerAddr string) error {
	cfg, err := endpoint.LoadConfigFromEnv(ctx)
	if err != nil {
		return err
	}

	conn, err := net.ListenPacket("udp", dataAddr)
	if err != nil {
		return err
	}

	raddr, err := net.ResolveUDPAddr("udp", peerAddr)
	if err != nil {
		return err
	}

	ep := endpoint.NewEndpoint(conn, raddr, func(payload []byte) bool {
		dlog.Infof(ctx, "received %d bytes: %q", len(payload), string(payload))
		return true
	}, cfg)

	g := dgroup.NewGroup(ctx, dgroup.GroupConfig{
		EnableSignalHandling: true,
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

	mgmtListener, err := net.Listen("tcp", mgmtAddr)
	if err != nil {
		return err
	}
	grpcServer := grpc.NewServer()
	rpchandshake.RegisterSaltExchangeServer(grpcServer, handshake.NewServer(handshake.NewMachine()))
	g.Go("handshake-mgmt", func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			grpcServer.GracefulStop()
		}()
		return grpcServer.Serve(mgmtListener)
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
