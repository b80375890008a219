package lxi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-testbench/transfer"
	"github.com/arloliu/go-testbench/visa"
)

func TestEntryResources(t *testing.T) {
	tests := []struct {
		description string
		entry       *zeroconf.ServiceEntry
		expected    []string
	}{
		{
			description: "ipv4 addresses",
			entry: &zeroconf.ServiceEntry{
				HostName: "dmm.local.",
				Port:     5025,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.20"), net.ParseIP("10.0.0.5")},
			},
			expected: []string{"TCPIP0::192.168.1.20::5025::SOCKET", "TCPIP0::10.0.0.5::5025::SOCKET"},
		},
		{
			description: "ipv6 only",
			entry: &zeroconf.ServiceEntry{
				Port:     5025,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			expected: []string{"TCPIP0::[fe80::1]::5025::SOCKET"},
		},
		{
			description: "host name fallback",
			entry:       &zeroconf.ServiceEntry{HostName: "scope.local.", Port: 5555},
			expected:    []string{"TCPIP0::scope.local.::5555::SOCKET"},
		},
		{
			description: "no port",
			entry:       &zeroconf.ServiceEntry{HostName: "scope.local."},
		},
		{
			description: "nil entry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			resources := entryResources(tt.entry)
			if tt.expected == nil {
				require.Empty(t, resources)
				return
			}
			require.Equal(t, tt.expected, resources)

			for _, r := range resources {
				addr, err := visa.ParseAddress(r)
				require.NoError(t, err)
				require.Equal(t, visa.InterfaceTCPIP, addr.Interface)
				require.Equal(t, "SOCKET", addr.Class)
			}
		})
	}
}

func TestNewBrowser(t *testing.T) {
	require := require.New(t)

	b, err := NewBrowser()
	require.NoError(err)
	require.Equal([]string{ServiceSCPIRaw, ServiceLXI}, b.services)
	require.Empty(b.Schemes())

	_, err = NewBrowser(WithWindow(0))
	require.ErrorIs(err, transfer.ErrInvalidArgument)

	_, err = NewBrowser(WithServices())
	require.ErrorIs(err, transfer.ErrInvalidArgument)

	b, err = NewBrowser(WithServices("_hislip._tcp"), WithWindow(time.Millisecond))
	require.NoError(err)
	require.Equal([]string{"_hislip._tcp"}, b.services)

	_, err = b.Open(context.Background(), visa.Address{Raw: "TCPIP0::h::1::SOCKET"})
	require.ErrorIs(err, visa.ErrUnrecognizedInterface)
}

func TestBrowser_UnknownInterface(t *testing.T) {
	b, err := NewBrowser(WithInterfaces("no-such-interface0"))
	require.NoError(t, err)

	_, err = b.List(context.Background())
	require.ErrorIs(t, err, transfer.ErrInvalidArgument)
}
