package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-testbench/bench"
	"github.com/arloliu/go-testbench/instrument"
	"github.com/arloliu/go-testbench/transfer"
	"github.com/arloliu/go-testbench/visa"
	"github.com/arloliu/go-testbench/visa/sim"
)

const benchYAML = `
log:
  level: error
backends:
  sim:
    timeout: 200ms
    devices:
      - name: EM
        identity: Keysight Technologies,B2987A,MY1,1.0
        replies:
          ":FETCh:ARRay:CURRent?": "+1.000000E-09,+2.500000E-09"
        properties:
          ":SENSe:CURRent:RANGe:UPPer?": "2e-9"
      - name: BOX
        identity: Nobody,Box1,0,0
instruments:
  - name: em
    address: SIM::EM::INSTR
    transfer:
      text_converter: fixed
`

func writeConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(benchYAML), 0o600))

	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func TestCommands(t *testing.T) {
	path := writeConfig(t)

	tests := []struct {
		description string
		args        []string
		expected    string
		err         error
	}{
		{
			description: "list",
			args:        []string{"list", "-c", path},
			expected:    "SIM::BOX::INSTR\nSIM::EM::INSTR\n",
		},
		{
			description: "identify by name",
			args:        []string{"identify", "-c", path, "em"},
			expected:    "electrometer from Keysight Technologies, B2987A model (SN = MY1), connected by simulated\n",
		},
		{
			description: "query by address",
			args:        []string{"query", "-c", path, "SIM::EM::INSTR", ":SENSe:CURRent:RANGe:UPPer?"},
			expected:    "2e-9\n",
		},
		{
			description: "send",
			args:        []string{"send", "-c", path, "em", ":SENSe:CURRent:RANGe:UPPer 2e-6", ":INPut:STATe ON"},
			expected:    "",
		},
		{
			description: "fetch text values",
			args:        []string{"fetch", "-c", path, "em", ":FETCh:ARRay:CURRent?"},
			expected:    "1e-09\n2.5e-09\n",
		},
		{
			description: "unknown manufacturer",
			args:        []string{"identify", "-c", path, "SIM::BOX::INSTR"},
			err:         instrument.ErrUnknownManufacturer,
		},
		{
			description: "attach failure is reported as such",
			args:        []string{"query", "-c", path, "SIM::GONE::INSTR", "*IDN?"},
			err:         bench.ErrAttachFailed,
		},
		{
			description: "bad timeout flag",
			args:        []string{"query", "-c", path, "-t", "soon", "em", "*IDN?"},
			err:         transfer.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, out)
		})
	}
}

func TestCommands_Usage(t *testing.T) {
	_, err := run(t, "query", "SIM::EM::INSTR")
	require.Error(t, err)

	_, err = run(t, "list", "-c", filepath.Join(t.TempDir(), "bench.ini"))
	require.Error(t, err)

	_, err = run(t, "list", "--log-level", "loud")
	require.Error(t, err)
}

type scriptReader struct {
	lines []string
}

func (r *scriptReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	if line == "^C" {
		return "", readline.ErrInterrupt
	}

	return line, nil
}

func TestRunShell(t *testing.T) {
	require := require.New(t)

	backend, err := sim.NewBackend(sim.WithTimeout(200*time.Millisecond), sim.WithDevice(sim.Device{
		Name:       "EM",
		Identity:   "Keysight Technologies,B2985A,MY2,1.0",
		Replies:    map[string]string{":FETCh:ARRay:CURRent?": "+1.0E-09,+2.0E-09"},
		Properties: map[string]string{":SENSe:CURRent:RANGe:UPPer?": "2e-9"},
	}))
	require.NoError(err)

	m, err := bench.NewManager(visa.NewManager(backend))
	require.NoError(err)
	defer m.Close()

	inst, err := m.Attach(context.Background(), "SIM::EM::INSTR")
	require.NoError(err)

	in := &scriptReader{lines: []string{
		":SENSe:CURRent:RANGe:UPPer 2e-6",
		"",
		"^C",
		":SENSe:CURRent:RANGe:UPPer?",
		"!fetch :FETCh:ARRay:CURRent?",
		"!format xml",
		"!timeout 500",
		"!fetch",
		"!quit",
		"*IDN?",
	}}
	var out bytes.Buffer
	require.NoError(runShell(context.Background(), inst, in, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	tail := lines[len(lines)-4:]
	require.Equal("2e-6", tail[0])
	require.Equal("1e-09,2e-09", tail[1])
	require.True(strings.HasPrefix(tail[2], "error: "))
	require.Equal("error: !fetch needs a request", tail[3])

	require.Equal(500*time.Millisecond, inst.Config().Timeout())
	require.Equal([]string{"*IDN?"}, in.lines)

	// end of input leaves the shell
	require.NoError(runShell(context.Background(), inst, &scriptReader{}, io.Discard))
}

func TestSelectFormat(t *testing.T) {
	tests := []struct {
		description string
		format      string
		dataType    string
		activated   transfer.Format
		converter   transfer.Converter
		element     transfer.ElementType
		err         error
	}{
		{description: "text with converter", format: "text", dataType: "e", activated: transfer.FormatText, converter: transfer.ConvExponential, element: transfer.Float32},
		{description: "binary with element type", format: "binary", dataType: "d", activated: transfer.FormatBinary, converter: transfer.ConvFixed, element: transfer.Float64},
		{description: "text without type", format: "ascii", activated: transfer.FormatText, converter: transfer.ConvFixed, element: transfer.Float32},
		{description: "element type is not a converter", format: "text", dataType: "Q", err: transfer.ErrInvalidArgument},
		{description: "unknown format", format: "json", dataType: "d", err: transfer.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			require := require.New(t)

			inst, err := instrument.NewGeneric(instrument.Descriptor{Manufacturer: "Nobody", Model: "Box1"})
			require.NoError(err)
			require.NoError(inst.Config().SetAvailableFormats("text", "binary"))

			err = selectFormat(inst, tt.format, tt.dataType)
			if tt.err != nil {
				require.ErrorIs(err, tt.err)
				require.Equal(transfer.FormatNone, inst.Config().ActivatedFormat())
				return
			}
			require.NoError(err)

			cfg := inst.Config()
			require.Equal(tt.activated, cfg.ActivatedFormat())
			require.Equal(tt.converter, cfg.TextConverter())
			require.Equal(tt.element, cfg.BinaryElementType())
		})
	}
}
