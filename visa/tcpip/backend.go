// Package tcpip implements the raw SCPI socket backend for TCPIP resources.
//
// Supported addresses:
//
//	TCPIP[board]::host::port::SOCKET
//	TCPIP[board]::host[::inst0]::INSTR    (connects to the default port)
//
// VXI-11 and HiSLIP device names are not supported.
package tcpip

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"

	"github.com/arloliu/go-testbench/visa"
)

// Backend opens raw socket sessions.
type Backend struct {
	cfg *Config
}

var _ visa.Backend = (*Backend)(nil)

// NewBackend creates a TCP/IP backend, a nil cfg uses the defaults.
func NewBackend(cfg *Config) *Backend {
	if cfg == nil {
		cfg, _ = NewConfig()
	}

	return &Backend{cfg: cfg}
}

func (b *Backend) Schemes() []string {
	return []string{visa.InterfaceTCPIP.Scheme()}
}

// Endpoint returns the host:port of a TCPIP resource address.
func (b *Backend) Endpoint(addr visa.Address) (string, error) {
	host := strings.TrimSuffix(strings.TrimPrefix(addr.Field(0), "["), "]")
	if host == "" {
		return "", fmt.Errorf("%w: %q has no host", visa.ErrInvalidAddress, addr.Raw)
	}

	port := b.cfg.defaultPort
	switch addr.Class {
	case "SOCKET":
		if len(addr.Fields) != 2 {
			return "", fmt.Errorf("%w: %q, expect TCPIP::host::port::SOCKET", visa.ErrInvalidAddress, addr.Raw)
		}
		p, err := strconv.Atoi(addr.Field(1))
		if err != nil || p < 1 || p > 65535 {
			return "", fmt.Errorf("%w: %q has an invalid port", visa.ErrInvalidAddress, addr.Raw)
		}
		port = p
	case "INSTR":
		if name := strings.ToLower(addr.Field(1)); name != "" && !strings.HasPrefix(name, "inst") {
			return "", fmt.Errorf("%w: device %q of %q is not a raw socket", visa.ErrUnrecognizedInterface, addr.Field(1), addr.Raw)
		}
	default:
		return "", fmt.Errorf("%w: resource class %s of %q", visa.ErrUnrecognizedInterface, addr.Class, addr.Raw)
	}

	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

func (b *Backend) Open(ctx context.Context, addr visa.Address) (visa.Session, error) {
	endpoint, err := b.Endpoint(addr)
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: b.cfg.dialTimeout, KeepAlive: b.cfg.keepAlive}
	conn, err := dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", visa.ErrUnreachable, endpoint, err)
	}

	sess, err := visa.NewStreamSession(addr, conn,
		visa.WithSessionTimeout(b.cfg.sessionTimeout),
		visa.WithSessionLogger(b.cfg.logger),
	)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	b.cfg.logger.Debug("tcpip session opened", "endpoint", endpoint, "session", sess.ID())

	return sess, nil
}

// List returns the configured resources.
func (b *Backend) List(_ context.Context) ([]string, error) {
	return slices.Clone(b.cfg.resources), nil
}

func (b *Backend) Close() error {
	return nil
}
