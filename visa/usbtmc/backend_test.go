package usbtmc

import (
	"testing"
	"time"

	"github.com/google/gousb"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-testbench/transfer"
	"github.com/arloliu/go-testbench/visa"
)

func TestParseResource(t *testing.T) {
	tests := []struct {
		address string
		res     resource
		err     bool
	}{
		{
			address: "USB0::0x0957::0x9018::MY51140123::INSTR",
			res:     resource{vendor: 0x0957, product: 0x9018, serial: "MY51140123"},
		},
		{
			address: "USB::6833::1416::INSTR",
			res:     resource{vendor: 0x1AB1, product: 0x0588},
		},
		{address: "USB0::0x0957::INSTR", err: true},
		{address: "USB0::0xZZ::0x9018::INSTR", err: true},
		{address: "USB0::0x0957::0x19018::INSTR", err: true},
		{address: "USB0::0x0957::0x9018::SN::RAW", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			addr, err := visa.ParseAddress(tt.address)
			require.NoError(t, err)

			res, err := parseResource(addr)
			if tt.err {
				require.ErrorIs(t, err, visa.ErrInvalidAddress)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.res, res)
		})
	}
}

func TestFormatResource(t *testing.T) {
	require.Equal(t, "USB0::0x1AB1::0x0588::DS1ED141904883::INSTR", formatResource(0x1AB1, 0x0588, "DS1ED141904883"))
}

func TestTmcSetting(t *testing.T) {
	require := require.New(t)

	tmc := gousb.InterfaceSetting{
		Number:   2,
		Class:    gousb.ClassApplication,
		SubClass: subclassUSBTMC,
		Endpoints: map[gousb.EndpointAddress]gousb.EndpointDesc{
			0x02: {Number: 2, Direction: gousb.EndpointDirectionOut, TransferType: gousb.TransferTypeBulk},
			0x86: {Number: 6, Direction: gousb.EndpointDirectionIn, TransferType: gousb.TransferTypeBulk},
			0x83: {Number: 3, Direction: gousb.EndpointDirectionIn, TransferType: gousb.TransferTypeInterrupt},
		},
	}
	desc := &gousb.DeviceDesc{
		Configs: map[int]gousb.ConfigDesc{
			1: {Number: 1, Interfaces: []gousb.InterfaceDesc{
				{Number: 0, AltSettings: []gousb.InterfaceSetting{{Number: 0, Class: gousb.ClassHID}}},
				{Number: 2, AltSettings: []gousb.InterfaceSetting{tmc}},
			}},
		},
	}

	cfgNum, setting, ok := tmcSetting(desc)
	require.True(ok)
	require.Equal(1, cfgNum)
	require.Equal(2, setting.Number)

	out, in, err := bulkEndpoints(setting)
	require.NoError(err)
	require.Equal(2, out)
	require.Equal(6, in)

	_, _, ok = tmcSetting(&gousb.DeviceDesc{})
	require.False(ok)

	_, _, err = bulkEndpoints(gousb.InterfaceSetting{})
	require.Error(err)
}

func TestNewBackend(t *testing.T) {
	require := require.New(t)

	b, err := NewBackend(WithTimeout(time.Second), WithMaxTransferSize(4096))
	require.NoError(err)
	require.Equal([]string{"USB"}, b.Schemes())
	require.Equal(4096, b.maxTransfer)

	_, err = NewBackend(WithTimeout(-1))
	require.ErrorIs(err, transfer.ErrInvalidArgument)

	_, err = NewBackend(WithMaxTransferSize(8))
	require.ErrorIs(err, transfer.ErrInvalidArgument)
}
