package handshake

import (
	"context"

	"google.golang.org/protobuf/types/known/wrapperspb"

	rpchandshake "github.com/telepresenceio/reliable-endpoint/rpc/handshake"
)

// Server adapts a Machine to the generated SaltExchange gRPC service,
// letting the CLI driver's listen command multiplex handshake control
// traffic over the same management port as other in-process services.
type Server struct {
	rpchandshake.UnimplementedSaltExchangeServer
	machine *Machine
}

// NewServer returns a Server driving the given Machine as the responder
// side of the handshake.
func NewServer(machine *Machine) *Server {
	return &Server{machine: machine}
}

// Exchange implements rpc/handshake.SaltExchangeServer: it treats the
// caller's salt as the initiator's and returns the responder's salt,
// advancing the underlying Machine from Idle to Challenged.
func (s *Server) Exchange(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.UInt64Value, error) {
	respSalt, err := s.machine.Respond(Salt(in.GetValue()))
	if err != nil {
		return nil, err
	}
	return wrapperspb.UInt64(uint64(respSalt)), nil
}

var _ rpchandshake.SaltExchangeServer = (*Server)(nil)
