package visa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		address   string
		iface     InterfaceType
		scheme    string
		board     string
		fields    []string
		class     string
		canonical string
	}{
		{
			address: "GPIB0::12::INSTR", iface: InterfaceGPIB, scheme: "GPIB", board: "0",
			fields: []string{"12"}, class: "INSTR", canonical: "GPIB0::12::INSTR",
		},
		{
			address: "gpib-vxi1::3", iface: InterfaceGPIBVXI, scheme: "GPIB-VXI", board: "1",
			fields: []string{"3"}, class: "INSTR", canonical: "GPIB-VXI1::3::INSTR",
		},
		{
			address: "TCPIP0::192.168.1.20::5025::SOCKET", iface: InterfaceTCPIP, scheme: "TCPIP", board: "0",
			fields: []string{"192.168.1.20", "5025"}, class: "SOCKET", canonical: "TCPIP0::192.168.1.20::5025::SOCKET",
		},
		{
			address: "TCPIP::[fe80::1]::inst0::INSTR", iface: InterfaceTCPIP, scheme: "TCPIP", board: "",
			fields: []string{"[fe80::1]", "inst0"}, class: "INSTR", canonical: "TCPIP::[fe80::1]::inst0::INSTR",
		},
		{
			address: "USB0::0x0957::0x9018::MY51140123::INSTR", iface: InterfaceUSB, scheme: "USB", board: "0",
			fields: []string{"0x0957", "0x9018", "MY51140123"}, class: "INSTR",
			canonical: "USB0::0x0957::0x9018::MY51140123::INSTR",
		},
		{
			address: "ASRL/dev/ttyUSB0::INSTR", iface: InterfaceASRL, scheme: "ASRL", board: "/dev/ttyUSB0",
			fields: []string{}, class: "INSTR", canonical: "ASRL/dev/ttyUSB0::INSTR",
		},
		{
			address: "SIM::A1::INSTR", iface: InterfaceSim, scheme: "SIM", board: "",
			fields: []string{"A1"}, class: "INSTR", canonical: "SIM::A1::INSTR",
		},
		{
			address: "FOO3::bar", iface: InterfaceUnknown, scheme: "FOO", board: "3",
			fields: []string{"bar"}, class: "INSTR", canonical: "FOO3::bar::INSTR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			require := require.New(t)

			addr, err := ParseAddress(tt.address)
			require.NoError(err)
			require.Equal(tt.address, addr.Raw)
			require.Equal(tt.iface, addr.Interface)
			require.Equal(tt.scheme, addr.Scheme)
			require.Equal(tt.board, addr.Board)
			require.ElementsMatch(tt.fields, addr.Fields)
			require.Equal(tt.class, addr.Class)
			require.Equal(tt.canonical, addr.String())
		})
	}
}

func TestParseAddress_Invalid(t *testing.T) {
	for _, address := range []string{
		"",
		"   ",
		"::INSTR",
		"GPIB0::",
		"GPIB0::12::",
		"TCPIP0::host:5025::SOCKET",
		"TCPIP0::my host::INSTR",
		"0GPIB::1",
	} {
		t.Run(address, func(t *testing.T) {
			_, err := ParseAddress(address)
			require.ErrorIs(t, err, ErrInvalidAddress)
		})
	}
}

func TestAddress_Field(t *testing.T) {
	addr, err := ParseAddress("TCPIP0::10.0.0.1::5025::SOCKET")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", addr.Field(0))
	require.Equal(t, "5025", addr.Field(1))
	require.Empty(t, addr.Field(2))
	require.Empty(t, addr.Field(-1))
}

func TestInterfaceType(t *testing.T) {
	require := require.New(t)

	require.Equal(InterfaceUSB, InterfaceFromScheme("usb"))
	require.Equal(InterfaceUnknown, InterfaceFromScheme("CAN"))
	require.Equal("Serial (RS-232 or RS-485)", InterfaceASRL.String())
	require.Equal("VXI, VME or MXI", InterfaceVXI.String())
	require.Equal("TCPIP", InterfaceTCPIP.Scheme())
	require.Equal("unknown interface", InterfaceType(200).String())
}
