package visa

import "strings"

// InterfaceType is the hardware interface category of a resource.
type InterfaceType uint8

const (
	InterfaceNone InterfaceType = iota
	InterfaceGPIB
	InterfaceVXI
	InterfaceGPIBVXI
	InterfaceASRL
	InterfacePXI
	InterfaceTCPIP
	InterfaceUSB
	InterfaceRIO
	InterfaceFirewire
	InterfaceRSNRP
	InterfaceUnknown
	InterfaceSim
)

var interfaceSchemes = map[InterfaceType]string{
	InterfaceGPIB:     "GPIB",
	InterfaceVXI:      "VXI",
	InterfaceGPIBVXI:  "GPIB-VXI",
	InterfaceASRL:     "ASRL",
	InterfacePXI:      "PXI",
	InterfaceTCPIP:    "TCPIP",
	InterfaceUSB:      "USB",
	InterfaceRIO:      "RIO",
	InterfaceFirewire: "FIREWIRE",
	InterfaceRSNRP:    "RSNRP",
	InterfaceSim:      "SIM",
}

var interfaceLabels = map[InterfaceType]string{
	InterfaceNone:     "not connected",
	InterfaceGPIB:     "GPIB",
	InterfaceVXI:      "VXI, VME or MXI",
	InterfaceGPIBVXI:  "GPIB-VXI",
	InterfaceASRL:     "Serial (RS-232 or RS-485)",
	InterfacePXI:      "PXI",
	InterfaceTCPIP:    "TCP/IP",
	InterfaceUSB:      "USB",
	InterfaceRIO:      "Rack IO",
	InterfaceFirewire: "Firewire",
	InterfaceRSNRP:    "Rohde & Schwarz Device via Passport",
	InterfaceUnknown:  "unknown interface",
	InterfaceSim:      "simulated",
}

// InterfaceFromScheme returns the interface type of an address scheme, InterfaceUnknown
// if the scheme is not a known one.
func InterfaceFromScheme(scheme string) InterfaceType {
	scheme = strings.ToUpper(scheme)
	for it, s := range interfaceSchemes {
		if s == scheme {
			return it
		}
	}

	return InterfaceUnknown
}

// Scheme returns the resource string prefix of the interface type.
func (it InterfaceType) Scheme() string {
	return interfaceSchemes[it]
}

// String returns the human readable label.
func (it InterfaceType) String() string {
	if label, ok := interfaceLabels[it]; ok {
		return label
	}

	return interfaceLabels[InterfaceUnknown]
}
