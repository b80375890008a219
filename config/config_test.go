package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-testbench/bench"
	"github.com/arloliu/go-testbench/instrument"
	"github.com/arloliu/go-testbench/logger"
	"github.com/arloliu/go-testbench/transfer"
	"github.com/arloliu/go-testbench/visa"
)

const benchYAML = `
log:
  level: debug
  format: console
factory:
  identify_timeout: 500ms
  generic_fallback: true
backends:
  tcpip:
    dial_timeout: 1s
    default_port: 5025
    resources:
      - TCPIP0::192.168.1.20::INSTR
  sim:
    timeout: "200"
    devices:
      - name: EM
        identity: Keysight Technologies,B2987A,MY0001,1.0
        properties:
          ":SENSe:CURRent:RANGe:UPPer?": "2e-9"
      - name: LOST
        offline: true
instruments:
  - name: em
    address: SIM::EM::INSTR
    transfer:
      activated_format: text
      text_converter: fixed
      timeout: infinite
`

const benchTOML = `
[log]
level = "warn"

[factory]
identify_timeout = "1s"

[backends.sim]
[[backends.sim.devices]]
name = "SCOPE"
identity = "Rigol Technologies,DS1102E,DS1ED1,00.04"
reply_termination = "crlf"

[[instruments]]
name = "scope"
address = "SIM::SCOPE::INSTR"

[instruments.transfer]
binary_endianness = "big"
`

func TestParse_YAML(t *testing.T) {
	require := require.New(t)

	cfg, err := Parse([]byte(benchYAML), ".yaml")
	require.NoError(err)

	require.Equal("debug", cfg.Log.Level)
	require.Equal("console", cfg.Log.Format)
	require.Equal("500ms", cfg.Factory.IdentifyTimeout)
	require.True(cfg.Factory.GenericFallback)

	require.NotNil(cfg.Backends.TCPIP)
	require.Equal(5025, cfg.Backends.TCPIP.DefaultPort)
	require.Nil(cfg.Backends.USBTMC)
	require.Nil(cfg.Backends.LXI)
	require.NotNil(cfg.Backends.Sim)
	require.Len(cfg.Backends.Sim.Devices, 2)
	require.Equal("2e-9", cfg.Backends.Sim.Devices[0].Properties[":SENSe:CURRent:RANGe:UPPer?"])
	require.True(cfg.Backends.Sim.Devices[1].Offline)

	em, ok := cfg.Instrument("em")
	require.True(ok)
	require.Equal("SIM::EM::INSTR", em.Address)
	require.Equal("infinite", em.Transfer["timeout"])

	_, ok = cfg.Instrument("scope")
	require.False(ok)
}

func TestParse_TOML(t *testing.T) {
	require := require.New(t)

	cfg, err := Parse([]byte(benchTOML), "toml")
	require.NoError(err)

	require.Equal("warn", cfg.Log.Level)
	require.Equal("json", cfg.Log.Format)
	require.Equal("1s", cfg.Factory.IdentifyTimeout)
	require.False(cfg.Factory.GenericFallback)
	require.Nil(cfg.Backends.TCPIP)
	require.NotNil(cfg.Backends.Sim)
	require.Equal("crlf", cfg.Backends.Sim.Devices[0].ReplyTermination)

	scope, ok := cfg.Instrument("scope")
	require.True(ok)
	require.Equal(map[string]string{"binary_endianness": "big"}, scope.Transfer)
}

func TestParse_Defaults(t *testing.T) {
	require := require.New(t)

	cfg, err := Parse(nil, ".yml")
	require.NoError(err)
	require.Equal(Default(), cfg)

	cfg, err = Parse([]byte(""), ".toml")
	require.NoError(err)
	require.Equal(Default(), cfg)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		description string
		data        string
		ext         string
		err         error
	}{
		{description: "unknown extension", data: "", ext: ".json", err: ErrUnsupportedFile},
		{description: "unknown yaml key", data: "log:\n  colour: red\n", ext: ".yaml", err: ErrInvalidConfig},
		{description: "unknown toml key", data: "[log]\ncolour = \"red\"\n", ext: ".toml", err: ErrInvalidConfig},
		{description: "malformed yaml", data: "log: [", ext: ".yaml", err: ErrInvalidConfig},
		{description: "malformed toml", data: "[log", ext: ".toml", err: ErrInvalidConfig},
		{description: "log level", data: "log:\n  level: loud\n", ext: ".yaml", err: ErrInvalidConfig},
		{description: "log format", data: "log:\n  format: xml\n", ext: ".yaml", err: ErrInvalidConfig},
		{description: "identify timeout", data: "factory:\n  identify_timeout: soon\n", ext: ".yaml", err: ErrInvalidConfig},
		{description: "tcpip duration", data: "backends:\n  tcpip:\n    keep_alive: -1x\n", ext: ".yaml", err: ErrInvalidConfig},
		{description: "lxi window", data: "[backends.lxi]\nwindow = \"later\"\n", ext: ".toml", err: ErrInvalidConfig},
		{
			description: "sim reply termination",
			data:        "backends:\n  sim:\n    devices:\n      - name: X\n        reply_termination: tab\n",
			ext:         ".yaml",
			err:         ErrInvalidConfig,
		},
		{
			description: "infinite sim latency",
			data:        "backends:\n  sim:\n    devices:\n      - name: X\n        latency: infinite\n",
			ext:         ".yaml",
			err:         ErrInvalidConfig,
		},
		{description: "instrument without address", data: "instruments:\n  - name: a\n", ext: ".yaml", err: ErrInvalidConfig},
		{
			description: "duplicate instrument name",
			data:        "instruments:\n  - {name: a, address: SIM::A::INSTR}\n  - {name: a, address: SIM::B::INSTR}\n",
			ext:         ".yaml",
			err:         ErrInvalidConfig,
		},
		{
			description: "bad transfer alias",
			data:        "instruments:\n  - address: SIM::A::INSTR\n    transfer:\n      read_terminator: tab\n",
			ext:         ".yaml",
			err:         transfer.ErrInvalidArgument,
		},
		{
			description: "unknown transfer key",
			data:        "instruments:\n  - address: SIM::A::INSTR\n    transfer:\n      parity: even\n",
			ext:         ".yaml",
			err:         transfer.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.ext)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestLoad(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "bench.toml")
	require.NoError(os.WriteFile(path, []byte(benchTOML), 0o600))

	cfg, err := Load(path)
	require.NoError(err)
	require.Equal("warn", cfg.Log.Level)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(err, os.ErrNotExist)
}

func TestConfig_NewLogger(t *testing.T) {
	require := require.New(t)

	cfg := Default()
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	l, err := cfg.NewLogger(&buf)
	require.NoError(err)
	require.Equal(logger.WarnLevel, l.Level())

	l.Info("hidden")
	l.Warn("shown", "address", "SIM::EM::INSTR")
	require.NotContains(buf.String(), "hidden")
	require.Contains(buf.String(), `"address":"SIM::EM::INSTR"`)
}

func TestConfig_BenchOptions(t *testing.T) {
	require := require.New(t)

	cfg, err := Parse([]byte(benchYAML), ".yaml")
	require.NoError(err)

	opts, err := cfg.BenchOptions(logger.NewMockLogger())
	require.NoError(err)
	require.Len(opts, 3)

	cfg.Factory.IdentifyTimeout = ""
	opts, err = cfg.BenchOptions(nil)
	require.NoError(err)
	require.Len(opts, 1)
}

func TestConfig_NewBackends(t *testing.T) {
	require := require.New(t)

	cfg := Default()
	backends, err := cfg.NewBackends(nil)
	require.NoError(err)
	require.Len(backends, 1)
	require.Equal([]string{"TCPIP"}, backends[0].Schemes())

	cfg, err = Parse([]byte(benchYAML), ".yaml")
	require.NoError(err)
	backends, err = cfg.NewBackends(nil)
	require.NoError(err)
	require.Len(backends, 2)

	rm := visa.NewManager(backends...)
	defer rm.Close()

	resources, err := rm.ListResources(context.Background())
	require.NoError(err)
	require.ElementsMatch([]string{"TCPIP0::192.168.1.20::INSTR", "SIM::EM::INSTR"}, resources)
}

func TestInstrumentConfig_Apply(t *testing.T) {
	require := require.New(t)

	cfg, err := Parse([]byte(benchYAML), ".yaml")
	require.NoError(err)
	backends, err := cfg.NewBackends(nil)
	require.NoError(err)
	opts, err := cfg.BenchOptions(nil)
	require.NoError(err)

	m, err := bench.NewManager(visa.NewManager(backends...), opts...)
	require.NoError(err)
	defer m.Close()

	em, _ := cfg.Instrument("em")
	inst, err := m.Attach(context.Background(), em.Address)
	require.NoError(err)
	require.Equal(instrument.FamilyGeneric, inst.Family())

	// the generic instrument supports no format until one is made available
	require.ErrorIs(em.Apply(inst), transfer.ErrInvalidArgument)
	require.Equal(transfer.FormatNone, inst.Config().ActivatedFormat())

	em.Transfer["available_formats"] = "text"
	require.NoError(em.Apply(inst))
	require.Equal(transfer.FormatText, inst.Config().ActivatedFormat())
	require.Equal(transfer.ConvFixed, inst.Config().TextConverter())
	require.Equal(transfer.Infinite, inst.Config().Timeout())

	em.Transfer["timeout"] = "whenever"
	require.ErrorIs(em.Apply(inst), transfer.ErrInvalidArgument)
	require.Equal(transfer.Infinite, inst.Config().Timeout())
}
