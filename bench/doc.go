// Package bench turns resource addresses into attached instruments and owns
// their teardown.
//
// A Factory builds one instrument in five stages: find (open a session),
// identify (*IDN?), parse (four identity fields), dispatch (registry lookup)
// and attach. A failing stage closes the session and ends the build, there are
// no retries.
//
// A Manager keeps the instruments it attached in attach order. Close detaches
// them all, then releases the resource manager:
//
//	m, err := bench.NewManager(rm)
//	if err != nil {
//		return err
//	}
//	defer m.Close()
//
//	inst, err := m.Attach(ctx, "TCPIP0::192.168.1.20::5025::SOCKET")
package bench
