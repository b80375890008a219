package instrument

import "sync/atomic"

// Metrics contains atomic I/O counters of an instrument.
// Metrics can be used as the value of a prometheus CounterFunc.
type Metrics struct {
	// SendCount indicates the number of commands sent.
	SendCount atomic.Uint64
	// QueryCount indicates the number of text queries.
	QueryCount atomic.Uint64
	// DataQueryCount indicates the number of typed data queries.
	DataQueryCount atomic.Uint64
	// PointCount indicates the number of decoded data points.
	PointCount atomic.Uint64
	// ErrCount indicates the number of failed transport operations.
	ErrCount atomic.Uint64
}

func (m *Metrics) incSendCount() {
	m.SendCount.Add(1)
}

func (m *Metrics) incQueryCount() {
	m.QueryCount.Add(1)
}

func (m *Metrics) incDataQueryCount() {
	m.DataQueryCount.Add(1)
}

func (m *Metrics) addPointCount(n int) {
	m.PointCount.Add(uint64(n)) //nolint:gosec
}

func (m *Metrics) incErrCount() {
	m.ErrCount.Add(1)
}
