package bench

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-testbench/instrument"
	"github.com/arloliu/go-testbench/logger"
	"github.com/arloliu/go-testbench/transfer"
	"github.com/arloliu/go-testbench/visa"
	"github.com/arloliu/go-testbench/visa/sim"
)

// countingManager counts opened and closed sessions.
type countingManager struct {
	*visa.Manager
	opened atomic.Int32
	closed atomic.Int32
}

type countingSession struct {
	visa.Session
	rm *countingManager
}

func (s *countingSession) Close() error {
	s.rm.closed.Add(1)
	return s.Session.Close()
}

func (s *countingSession) CloseQuietly() error {
	s.rm.closed.Add(1)
	return visa.CloseQuietly(s.Session)
}

func (c *countingManager) Open(ctx context.Context, address string) (visa.Session, error) {
	sess, err := c.Manager.Open(ctx, address)
	if err != nil {
		return nil, err
	}
	c.opened.Add(1)

	return &countingSession{Session: sess, rm: c}, nil
}

func newBench(t *testing.T) *countingManager {
	t.Helper()

	backend, err := sim.NewBackend(
		sim.WithTimeout(100*time.Millisecond),
		sim.WithDevice(sim.Device{Name: "A1", Identity: "Acme,Model7,SN42,v1.0"}),
		sim.WithDevice(sim.Device{Name: "A2", Identity: "Acme,Model7,SN42"}),
		sim.WithDevice(sim.Device{Name: "A3", Identity: "Acme,Model9,SN43,v1.1"}),
		sim.WithDevice(sim.Device{Name: "B1", Identity: "Bolt Instruments,BX-1,77,2.0"}),
		sim.WithDevice(sim.Device{Name: "MUTE"}),
		sim.WithDevice(sim.Device{Name: "DOWN", Identity: "Acme,Model7,SN1,v1", Offline: true}),
	)
	require.NoError(t, err)

	return &countingManager{Manager: visa.NewManager(backend)}
}

func acmeRegistry(calls *atomic.Int32) *instrument.Registry {
	r := instrument.NewRegistry()
	r.Register("Acme", "Model7", func(desc instrument.Descriptor) (instrument.Instrument, error) {
		if calls != nil {
			calls.Add(1)
		}
		return instrument.NewBase(instrument.FamilyElectrometer, desc), nil
	})

	return r
}

func TestFactory_Build(t *testing.T) {
	require := require.New(t)
	rm := newBench(t)
	defer rm.Close()

	f, err := NewFactory(rm, WithRegistry(acmeRegistry(nil)))
	require.NoError(err)

	inst, err := f.Build(context.Background(), "SIM::A1::INSTR")
	require.NoError(err)
	require.True(inst.Attached())

	desc := inst.Descriptor()
	require.Equal(instrument.FamilyElectrometer, desc.Family)
	require.Equal("Model7", desc.Model)
	require.Equal("SN42", desc.SerialNumber)
	require.Equal("v1.0", desc.FirmwareVersion)
	require.Equal(visa.InterfaceSim, desc.Interface)

	require.NoError(inst.DetachSession())
	require.EqualValues(1, rm.closed.Load())
}

func TestFactory_BuildFailures(t *testing.T) {
	tests := []struct {
		description string
		address     string
		stage       Stage
		err         error
	}{
		{description: "malformed address", address: "SIM A1", stage: StageFind, err: visa.ErrInvalidAddress},
		{description: "unserved scheme", address: "GPIB0::22::INSTR", stage: StageFind, err: visa.ErrUnrecognizedInterface},
		{description: "offline device", address: "SIM::DOWN::INSTR", stage: StageFind, err: visa.ErrUnreachable},
		{description: "silent device", address: "SIM::MUTE::INSTR", stage: StageIdentify, err: instrument.ErrNoResponse},
		{description: "three identity fields", address: "SIM::A2::INSTR", stage: StageParse, err: instrument.ErrMalformedIdentity},
		{description: "unknown model", address: "SIM::A3::INSTR", stage: StageDispatch, err: instrument.ErrUnknownModel},
		{description: "unknown manufacturer", address: "SIM::B1::INSTR", stage: StageDispatch, err: instrument.ErrUnknownManufacturer},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			require := require.New(t)
			rm := newBench(t)
			defer rm.Close()

			var calls atomic.Int32
			f, err := NewFactory(rm, WithRegistry(acmeRegistry(&calls)), WithIdentifyTimeout(50*time.Millisecond))
			require.NoError(err)

			_, err = f.Build(context.Background(), tt.address)
			require.ErrorIs(err, tt.err)

			var buildErr *BuildError
			require.ErrorAs(err, &buildErr)
			require.Equal(tt.stage, buildErr.Stage)
			require.Equal(tt.address, buildErr.Address)
			require.Contains(err.Error(), tt.address)

			require.Zero(calls.Load())
			require.Equal(rm.opened.Load(), rm.closed.Load())
		})
	}
}

func TestFactory_UnknownManufacturerIsNotMalformed(t *testing.T) {
	require := require.New(t)
	rm := newBench(t)
	defer rm.Close()

	f, err := NewFactory(rm, WithRegistry(instrument.NewRegistry()))
	require.NoError(err)

	_, err = f.Build(context.Background(), "SIM::A1::INSTR")
	require.ErrorIs(err, instrument.ErrUnknownManufacturer)
	require.False(errors.Is(err, instrument.ErrMalformedIdentity))
}

func TestFactory_GenericFallback(t *testing.T) {
	require := require.New(t)
	rm := newBench(t)
	defer rm.Close()

	log := logger.NewMockLogger()
	log.On("Warn", "no driver, using the generic instrument", mock.Anything).Once()
	log.On("Info", "instrument attached", mock.Anything).Once()
	log.On("Debug", mock.Anything, mock.Anything).Maybe()

	f, err := NewFactory(rm, WithRegistry(acmeRegistry(nil)), WithGenericFallback(true), WithLogger(log))
	require.NoError(err)

	inst, err := f.Build(context.Background(), "SIM::B1::INSTR")
	require.NoError(err)
	require.Equal(instrument.FamilyGeneric, inst.Family())
	require.Equal("Bolt Instruments", inst.Descriptor().Manufacturer)
	require.NoError(inst.DetachSession())
	log.AssertExpectations(t)

	// malformed identities are never guessed at
	_, err = f.Build(context.Background(), "SIM::A2::INSTR")
	require.ErrorIs(err, instrument.ErrMalformedIdentity)
}

func TestFactory_IdentifyRestoresTimeout(t *testing.T) {
	require := require.New(t)
	rm := newBench(t)
	defer rm.Close()

	f, err := NewFactory(rm, WithIdentifyTimeout(time.Second))
	require.NoError(err)

	sess, err := f.Find(context.Background(), "SIM::A1::INSTR")
	require.NoError(err)
	defer sess.Close()

	reply, err := f.Identify(sess)
	require.NoError(err)
	require.Equal("Acme,Model7,SN42,v1.0", reply)
	require.Equal(100*time.Millisecond, sess.Timeout())
}

func TestNewFactory_Options(t *testing.T) {
	require := require.New(t)
	rm := newBench(t)
	defer rm.Close()

	_, err := NewFactory(nil)
	require.Error(err)

	_, err = NewFactory(rm, WithIdentifyTimeout(0))
	require.ErrorIs(err, transfer.ErrInvalidArgument)
	require.ErrorContains(err, "WithIdentifyTimeout")

	_, err = NewFactory(rm, WithRegistry(nil))
	require.ErrorIs(err, transfer.ErrInvalidArgument)

	_, err = NewFactory(rm, WithLogger(nil))
	require.ErrorIs(err, transfer.ErrInvalidArgument)
}

func TestManager_AttachFailed(t *testing.T) {
	require := require.New(t)

	m, err := NewManager(newBench(t), WithRegistry(acmeRegistry(nil)))
	require.NoError(err)
	defer m.Close()

	_, err = m.Attach(context.Background(), "SIM::B1::INSTR")
	require.ErrorIs(err, ErrAttachFailed)
	require.ErrorIs(err, instrument.ErrUnknownManufacturer)

	var attachErr *AttachError
	require.ErrorAs(err, &attachErr)
	require.Equal("SIM::B1::INSTR", attachErr.Address)

	var buildErr *BuildError
	require.ErrorAs(err, &buildErr)
	require.Equal(StageDispatch, buildErr.Stage)

	require.Empty(m.Instruments())
}

func TestManager_AttachAndClose(t *testing.T) {
	require := require.New(t)
	rm := newBench(t)

	m, err := NewManager(rm, WithRegistry(acmeRegistry(nil)))
	require.NoError(err)

	first, err := m.Attach(context.Background(), "SIM::A1::INSTR")
	require.NoError(err)
	second, err := m.Attach(context.Background(), "sim::a1::instr")
	require.NoError(err)
	require.Equal([]instrument.Instrument{first, second}, m.Instruments())

	resources, err := m.ListResources(context.Background())
	require.NoError(err)
	require.Contains(resources, "SIM::A1::INSTR")

	require.NoError(m.Close())
	require.Empty(m.Instruments())
	require.False(first.Attached())
	require.False(second.Attached())
	require.EqualValues(2, rm.closed.Load())

	require.NoError(m.Close())
	require.Empty(m.Instruments())

	_, err = m.Attach(context.Background(), "SIM::A1::INSTR")
	require.ErrorIs(err, ErrAttachFailed)
	require.ErrorIs(err, ErrClosed)

	_, err = m.ListResources(context.Background())
	require.ErrorIs(err, ErrClosed)

	_, err = rm.Open(context.Background(), "SIM::A1::INSTR")
	require.ErrorIs(err, visa.ErrManagerClosed)
}

// stubborn fails its first detach but still releases the session.
type stubborn struct {
	*instrument.Base
}

func (s *stubborn) DetachSession() error {
	if err := s.Base.DetachSession(); err != nil {
		return err
	}
	return errors.New("front panel busy")
}

func TestManager_DetachAllContinues(t *testing.T) {
	require := require.New(t)

	r := instrument.NewRegistry()
	r.Register("Acme", "Model7", func(desc instrument.Descriptor) (instrument.Instrument, error) {
		return &stubborn{Base: instrument.NewBase(instrument.FamilyGeneric, desc)}, nil
	})
	r.Register("Acme", "Model9", func(desc instrument.Descriptor) (instrument.Instrument, error) {
		return instrument.NewBase(instrument.FamilyGeneric, desc), nil
	})

	m, err := NewManager(newBench(t), WithRegistry(r))
	require.NoError(err)
	defer m.Close()

	first, err := m.Attach(context.Background(), "SIM::A1::INSTR")
	require.NoError(err)
	second, err := m.Attach(context.Background(), "SIM::A3::INSTR")
	require.NoError(err)

	err = m.DetachAll()
	require.ErrorContains(err, "front panel busy")
	require.False(first.Attached())
	require.False(second.Attached())
	require.Empty(m.Instruments())

	require.NoError(m.Close())
}

func TestManager_CleanupIsSilent(t *testing.T) {
	require := require.New(t)

	rec := logger.NewRecorder()
	prev := logger.GetLogger()
	logger.SetDefault(rec)
	t.Cleanup(func() { logger.SetDefault(prev) })

	rm := newBench(t)
	var inst instrument.Instrument
	func() {
		m, err := NewManager(rm, WithRegistry(acmeRegistry(nil)))
		require.NoError(err)
		inst, err = m.Attach(context.Background(), "SIM::A1::INSTR")
		require.NoError(err)
	}()
	rec.Reset()

	require.Eventually(func() bool {
		runtime.GC()
		return rm.closed.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.False(inst.Attached())
	require.Empty(rec.Records())

	_, err := rm.Open(context.Background(), "SIM::A1::INSTR")
	require.ErrorIs(err, visa.ErrManagerClosed)
}

func TestManager_DetachAllLogs(t *testing.T) {
	require := require.New(t)

	rec := logger.NewRecorder()
	prev := logger.GetLogger()
	logger.SetDefault(rec)
	t.Cleanup(func() { logger.SetDefault(prev) })

	m, err := NewManager(newBench(t), WithRegistry(acmeRegistry(nil)))
	require.NoError(err)
	defer m.Close()

	_, err = m.Attach(context.Background(), "SIM::A1::INSTR")
	require.NoError(err)
	rec.Reset()

	require.NoError(m.DetachAll())
	var messages []string
	for _, r := range rec.Records() {
		messages = append(messages, r.Message)
	}
	require.Contains(messages, "session detached")
	require.Contains(messages, "session closed")
}
