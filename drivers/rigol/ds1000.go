// Package rigol drives the Rigol DS1000 series oscilloscopes.
//
// Importing the package registers the DS1102E, DS1052E and DS1102D models with
// instrument.DefaultRegistry.
package rigol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-testbench/instrument"
	"github.com/arloliu/go-testbench/transfer"
)

// Manufacturer is the name reported by *IDN?.
const Manufacturer = "Rigol Technologies"

// Models lists the supported models.
var Models = []string{"DS1102E", "DS1052E", "DS1102D"}

func init() {
	for _, model := range Models {
		instrument.Register(Manufacturer, model, New)
	}
}

// DS1000 is a DS1000 series oscilloscope.
//
// Waveforms are read as 16-bit words in IEEE blocks, or as text when the
// text format is activated.
type DS1000 struct {
	*instrument.Base
	channels int
}

var _ instrument.Oscilloscope = (*DS1000)(nil)

// New builds a DS1000 series oscilloscope, it is the registered builder.
func New(desc instrument.Descriptor) (instrument.Instrument, error) {
	model := strings.ToUpper(desc.Model)
	known := false
	for _, m := range Models {
		known = known || m == model
	}
	if !known {
		return nil, fmt.Errorf("%w: %q is not a DS1000 series model", instrument.ErrUnknownModel, desc.Model)
	}

	o := &DS1000{channels: 2}
	o.Base = instrument.NewBase(instrument.FamilyOscilloscope, desc, instrument.WithPointCounter(o))

	err := o.Config().Apply(map[string]string{
		transfer.KeyAvailableFormats:  "text,binary",
		transfer.KeyActivatedFormat:   "binary",
		transfer.KeyBinaryHeader:      "ieee",
		transfer.KeyBinaryEndianness:  "little",
		transfer.KeyBinaryElementType: "H",
		transfer.KeyTextConverter:     "e",
		transfer.KeyTextSeparator:     ",",
	})
	if err != nil {
		return nil, err
	}

	return o, nil
}

func (o *DS1000) Channels() int { return o.channels }

func (o *DS1000) channel(ch int) (string, error) {
	if ch < 1 || ch > o.channels {
		return "", fmt.Errorf("%w: channel %d, valid channels are 1 to %d", transfer.ErrInvalidArgument, ch, o.channels)
	}

	return "CHANnel" + strconv.Itoa(ch), nil
}

func (o *DS1000) Run() error       { return o.Send(":RUN") }
func (o *DS1000) Stop() error      { return o.Send(":STOP") }
func (o *DS1000) Single() error    { return o.Send(":SINGle") }
func (o *DS1000) AutoScale() error { return o.Send(":AUTO") }

func (o *DS1000) setNumeric(command string, value string) error {
	v, err := instrument.NumericArg(value)
	if err != nil {
		return err
	}

	return o.Send(command + " " + v)
}

func (o *DS1000) queryFloat(command string) (float64, error) {
	reply, err := o.Query(command)
	if err != nil {
		return 0, err
	}

	return instrument.ParseFloat(reply)
}

func (o *DS1000) SetTimebaseScale(secondsPerDiv string) error {
	return o.setNumeric(":TIMebase:SCALe", secondsPerDiv)
}

func (o *DS1000) TimebaseScale() (float64, error) {
	return o.queryFloat(":TIMebase:SCALe?")
}

func (o *DS1000) SetTimebaseOffset(seconds string) error {
	return o.setNumeric(":TIMebase:OFFSet", seconds)
}

func (o *DS1000) TimebaseOffset() (float64, error) {
	return o.queryFloat(":TIMebase:OFFSet?")
}

func (o *DS1000) SetChannelScale(channel int, voltsPerDiv string) error {
	ch, err := o.channel(channel)
	if err != nil {
		return err
	}

	return o.setNumeric(":"+ch+":SCALe", voltsPerDiv)
}

func (o *DS1000) ChannelScale(channel int) (float64, error) {
	ch, err := o.channel(channel)
	if err != nil {
		return 0, err
	}

	return o.queryFloat(":" + ch + ":SCALe?")
}

func (o *DS1000) SetChannelOffset(channel int, volts string) error {
	ch, err := o.channel(channel)
	if err != nil {
		return err
	}

	return o.setNumeric(":"+ch+":OFFSet", volts)
}

func (o *DS1000) SetChannelDisplay(channel int, on bool) error {
	ch, err := o.channel(channel)
	if err != nil {
		return err
	}

	return o.Send(":" + ch + ":DISPlay " + instrument.OnOff(on))
}

func (o *DS1000) SetWaveformSource(channel int) error {
	ch, err := o.channel(channel)
	if err != nil {
		return err
	}

	return o.Send(":WAVeform:SOURce " + ch)
}

// PointCount returns the number of waveform points of the next transfer.
func (o *DS1000) PointCount() (int, error) {
	reply, err := o.Query(":WAVeform:POINts?")
	if err != nil {
		return 0, err
	}

	return instrument.ParseCount(reply)
}

// SetDataTransferFormat selects ASCii for text or WORD for 16-bit binary words.
func (o *DS1000) SetDataTransferFormat(format string, dataType string) error {
	f, err := transfer.ParseFormat(format)
	if err != nil {
		return err
	}
	cfg := o.Config()
	if !cfg.IsAvailable(f) {
		return fmt.Errorf("%w: format %s", transfer.ErrInvalidArgument, f)
	}

	command := ":WAVeform:FORMat ASCii"
	if f == transfer.FormatText && dataType != "" {
		if _, err := transfer.ParseConverter(dataType); err != nil {
			return err
		}
	}
	if f == transfer.FormatBinary {
		elem, err := transfer.ParseElementType(dataType)
		if err != nil {
			return err
		}
		if elem != transfer.Uint16 && elem != transfer.Int16 {
			return fmt.Errorf("%w: binary waveform of %s, use 16-bit words", instrument.ErrUnsupportedFormat, elem)
		}
		command = ":WAVeform:FORMat WORD"
	}

	if err := o.Send(command); err != nil {
		return err
	}
	switch {
	case f == transfer.FormatBinary:
		_ = cfg.SetBinaryElementType(dataType)
	case dataType != "":
		_ = cfg.SetTextConverter(dataType)
	}

	return cfg.SetActivatedFormat(string(f))
}

// FetchWaveform selects the channel as waveform source and reads its samples.
func (o *DS1000) FetchWaveform(channel int) (transfer.Data, error) {
	if err := o.SetWaveformSource(channel); err != nil {
		return transfer.Data{}, err
	}

	if o.Config().ActivatedFormat() != transfer.FormatText {
		return o.QueryTypedData(":WAVeform:DATA?", instrument.AutoCount)
	}

	// text waveforms keep the block header in front of the values
	reply, err := o.Query(":WAVeform:DATA?")
	if err != nil {
		return transfer.Data{}, err
	}

	return transfer.ParseText(stripBlockHeader(reply), o.Config().TextFormat())
}

// stripBlockHeader removes a leading "#<n><length>" header.
func stripBlockHeader(reply string) string {
	s := strings.TrimSpace(reply)
	if len(s) < 2 || s[0] != '#' || s[1] < '0' || s[1] > '9' {
		return s
	}
	n := int(s[1] - '0')
	if len(s) < 2+n {
		return s
	}

	return s[2+n:]
}

// Lock disables the front panel keys and checks that the lock took effect.
func (o *DS1000) Lock() error {
	if err := o.Send(":KEY:LOCK ENABle"); err != nil {
		return err
	}

	reply, err := o.Query(":KEY:LOCK?")
	if err != nil {
		return err
	}
	status := strings.ToUpper(strings.TrimSpace(reply))
	if status != "ENABLE" && status != "ENAB" && status != "1" && status != "ON" {
		o.Logger().Warn("key lock refused", "status", reply)
		return fmt.Errorf("%w: %s answered %q", instrument.ErrLockDenied, o.Descriptor().Model, reply)
	}

	return nil
}

func (o *DS1000) Unlock() error {
	return o.Send(":KEY:LOCK DISable")
}
