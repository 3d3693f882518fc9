package main

import (
	"context"
	"net"
	"time"

	"github.com/datawire/dlib/dgroup"
	"github.com/spf13/cobra"

	"github.com/telepresenceio/reliable-endpoint/pkg/endpoint"
)

func sendCommand() *cobra.Command {
	var dataAddr, peerAddr, message string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one payload to a peer over a reliable-datagram endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd.Context(), dataAddr, peerAddr, message)
		},
	}

	cmd.Flags().StringVar(&dataAddr, "data-addr", "127.0.0.1:0", "local address to bind the data socket")
	cmd.Flags().StringVar(&peerAddr, "peer-addr", "", "remote peer address (required)")
	cmd.Flags().StringVar(&message, "message", "", "payload to send (required)")
	_ = cmd.MarkFlagRequired("peer-addr")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func runSend(ctx context.Context, dataAddr, peerAddr, message string) error {
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

	ep := endpoint.NewEndpoint(conn, raddr, nil, cfg)

	ctx = dgroup.WithGoroutineName(ctx, "/send")
	if err := ep.Start(ctx); err != nil {
		return err
	}
	defer ep.Stop(context.Background())

	if err := ep.Send([]byte(message)); err != nil {
		return err
	}

	// Give the endpoint's sent datagram a moment to actually leave the
	// socket before the process exits and closes it.
	time.Sleep(50 * time.Millisecond)
	return nil
}
