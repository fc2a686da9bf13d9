package exchange

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/multiformats/go-multiaddr"
)

// DefaultProtocol is the libp2p stream protocol reference-subtree
// notifications travel over when the caller does not name its own topic.
const DefaultProtocol = protocol.ID("/dualtree/exchange/1.0.0")

// Host wraps a libp2p host and wires its inbound streams to a Subscriber,
// the way the teacher's pkg/p2p advanced_networking.go layers protocol
// handlers over a raw libp2p host.
type Host struct {
	h      host.Host
	sub    *Subscriber
	logger *slog.Logger
}

// NewHost starts a libp2p host listening on listenAddr and registers a
// stream handler that decodes inbound notifications via sub. topic names
// the stream protocol peers must use to reach this handler, letting
// independently operated dual-tree clusters share a libp2p network
// without colliding on the same protocol ID; an empty topic falls back to
// DefaultProtocol.
func NewHost(listenAddr, topic string, sub *Subscriber, logger *slog.Logger) (*Host, error) {
	addr, err := multiaddr.NewMultiaddr(listenAddr)
	if err != nil {
		return nil, fmt.Errorf("exchange: parse listen addr %q: %w", listenAddr, err)
	}

	h, err := libp2p.New(libp2p.ListenAddrs(addr))
	if err != nil {
		return nil, fmt.Errorf("exchange: start libp2p host: %w", err)
	}

	proto := DefaultProtocol
	if topic != "" {
		proto = protocol.ID(topic)
	}

	if logger == nil {
		logger = slog.Default()
	}
	eh := &Host{h: h, sub: sub, logger: logger}
	h.SetStreamHandler(proto, eh.handleStream)
	return eh, nil
}

// ID returns the host's libp2p peer ID.
func (eh *Host) ID() peer.ID { return eh.h.ID() }

// Addrs returns the host's listen addresses.
func (eh *Host) Addrs() []multiaddr.Multiaddr { return eh.h.Addrs() }

// Connect dials a bootstrap peer by its full multiaddr (including /p2p/<id>).
func (eh *Host) Connect(ctx context.Context, addr multiaddr.Multiaddr) error {
	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return fmt.Errorf("exchange: parse peer addr: %w", err)
	}
	return eh.h.Connect(ctx, *info)
}

// Close shuts down the underlying libp2p host.
func (eh *Host) Close() error { return eh.h.Close() }

func (eh *Host) handleStream(s network.Stream) {
	defer s.Close()

	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := s.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
	}

	from := s.Conn().RemotePeer().String()
	if err := eh.sub.HandleMessage(context.Background(), from, buf); err != nil {
		eh.logger.Warn("failed to handle exchange notification", "from", from, "error", err)
	}
}
