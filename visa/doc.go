// Package visa defines the transport contract consumed by the instrument layer: resource
// addresses, message based sessions and the resource manager that opens them.
//
// A resource address follows the VISA resource string grammar:
//
//	GPIB0::12::INSTR
//	TCPIP0::192.168.1.20::inst0::INSTR
//	TCPIP0::192.168.1.20::5025::SOCKET
//	USB0::0x0957::0x9018::MY51140123::INSTR
//	ASRL/dev/ttyUSB0::INSTR
//	SIM::A1::INSTR
//
// The scheme (the leading letters of the first field) selects the Backend that opens
// the session. Manager routes Open calls to the registered backends and merges their
// resource listings.
//
// Message based sessions are built on top of a Stream with StreamSession, which
// handles terminators, timeouts and block framing for every backend.
package visa
