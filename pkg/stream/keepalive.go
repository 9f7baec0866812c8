package stream

import (
	"context"
	"fmt"
	"net"
)

// KeepAliveCommand is the camera command code that keeps the live preview
// session open.
const KeepAliveCommand = 2

// DefaultKeepAliveMessage is the payload the camera firmware expects.
var DefaultKeepAliveMessage = CommandMessage(KeepAliveCommand)

// CommandMessage builds a camera UDP command datagram.
func CommandMessage(code int) string {
	return fmt.Sprintf("_GPHD_:%d:%d:%d:%.1f\n", 0, 0, code, 0.0)
}

// Heartbeat sends one keep-alive to the camera.
type Heartbeat interface {
	Beat(ctx context.Context) error
}

// UDPHeartbeat sends each keep-alive as a one-shot datagram.
type UDPHeartbeat struct {
	addr    string
	payload []byte
	dialer  net.Dialer
}

func NewUDPHeartbeat(addr, message string) *UDPHeartbeat {
	if message == "" {
		message = DefaultKeepAliveMessage
	}
	return &UDPHeartbeat{
		addr:    addr,
		payload: []byte(message),
	}
}

func (h *UDPHeartbeat) Beat(ctx context.Context) error {
	conn, err := h.dialer.DialContext(ctx, "udp", h.addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	_, err = conn.Write(h.payload)
	return err
}
