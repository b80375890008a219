// Package sim provides simulated message based instruments served under the SIM scheme.
//
// A simulated Device answers "*IDN?" with its identity, fixed queries from a reply
// table, and settable properties: when the property table holds ":SENS:CURR:RANG?",
// the command ":SENS:CURR:RANG 2e-6" updates the value returned by the query.
// A custom Handler may take over any command, e.g. to return binary blocks.
//
// Queries that no table answers get no reply, the session then times out. This
// reproduces a device that does not respond.
//
// Usage Example:
//
//	backend, _ := sim.NewBackend(sim.WithDevice(sim.Device{
//		Name:     "A1",
//		Identity: "Acme,Model7,SN42,v1.0",
//	}))
//	rm := visa.NewManager(backend)
//	sess, _ := rm.Open(ctx, "SIM::A1::INSTR")
package sim
