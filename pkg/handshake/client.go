package handshake

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	rpchandshake "github.com/telepresenceio/reliable-endpoint/rpc/handshake"
)

// DialAndExchange initiates a handshake against a peer's management port:
// over the already-established client connection cc, it sends the local
// machine's salt, completes the initiator side of the state machine with
// the response, and returns the derived connection token.
func DialAndExchange(ctx context.Context, cc grpc.ClientConnInterface, machine *Machine) (uint64, error) {
	localSalt, err := machine.Initiate()
	if err != nil {
		return 0, err
	}

	client := rpchandshake.NewSaltExchangeClient(cc)
	resp, err := client.Exchange(ctx, wrapperspb.UInt64(uint64(localSalt)))
	if err != nil {
		return 0, err
	}

	if err := machine.CompleteInitiator(Salt(resp.GetValue())); err != nil {
		return 0, err
	}
	return machine.Token()
}
