package instrument

import "github.com/arloliu/go-testbench/transfer"

// FormatSelector is implemented by instruments whose data format is switched by a
// device command. SetDataTransferFormat activates format and selects the text
// converter (text) or element type (binary) given by dataType.
type FormatSelector interface {
	SetDataTransferFormat(format string, dataType string) error
}

// Measurement is the quantity measured by an electrometer.
type Measurement string

const (
	MeasureCurrent    Measurement = "CURRent"
	MeasureCharge     Measurement = "CHARge"
	MeasureResistance Measurement = "RESistance"
	MeasureVoltage    Measurement = "VOLTage"
)

// Electrometer is the operation set of electrometers and ammeters.
//
// Numeric setters accept a number or one of the keywords MIN, MAX and DEF.
type Electrometer interface {
	Instrument
	PointCounter
	FormatSelector

	// Measurements returns the quantities the model can measure.
	Measurements() []Measurement

	SetRange(kind Measurement, value string) error
	Range(kind Measurement) (float64, error)
	SetAutoRange(kind Measurement, on bool) error

	SetApertureTime(kind Measurement, value string) error
	ApertureTime(kind Measurement) (float64, error)

	SetTriggerSource(source string) error
	TriggerSource() (string, error)
	SetTriggerCount(value string) error
	TriggerCount() (int, error)
	SetTriggerTimer(value string) error
	TriggerTimer() (float64, error)

	SetDisplay(on bool) error
	SetViewMode(mode string) error
	SetInput(on bool) error

	// InitiateMeasurement starts an acquisition.
	InitiateMeasurement() error
	// Fetch returns the acquired data of one quantity.
	Fetch(kind Measurement) (transfer.Data, error)
	// FetchAll returns the acquired data of every enabled quantity.
	FetchAll() (transfer.Data, error)
}

// Oscilloscope is the operation set of digital oscilloscopes.
type Oscilloscope interface {
	Instrument
	PointCounter
	FormatSelector

	// Channels returns the number of analog channels.
	Channels() int

	Run() error
	Stop() error
	Single() error
	AutoScale() error

	SetTimebaseScale(secondsPerDiv string) error
	TimebaseScale() (float64, error)
	SetTimebaseOffset(seconds string) error
	TimebaseOffset() (float64, error)

	SetChannelScale(channel int, voltsPerDiv string) error
	ChannelScale(channel int) (float64, error)
	SetChannelOffset(channel int, volts string) error
	SetChannelDisplay(channel int, on bool) error

	SetWaveformSource(channel int) error
	// FetchWaveform returns the raw samples of a channel.
	FetchWaveform(channel int) (transfer.Data, error)
}
