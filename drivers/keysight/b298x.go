// Package keysight drives the Keysight B2980 series electrometers and picoammeters.
//
// Importing the package registers the B2981A, B2983A, B2985A and B2987A models
// with instrument.DefaultRegistry under the Keysight and Agilent names.
package keysight

import (
	"fmt"
	"slices"
	"strings"

	"github.com/arloliu/go-testbench/instrument"
	"github.com/arloliu/go-testbench/transfer"
)

// Manufacturer names reported by *IDN?.
const (
	Manufacturer       = "Keysight Technologies"
	LegacyManufacturer = "Agilent Technologies"
)

var (
	ammeter      = []instrument.Measurement{instrument.MeasureCurrent}
	electrometer = []instrument.Measurement{
		instrument.MeasureCurrent,
		instrument.MeasureCharge,
		instrument.MeasureResistance,
		instrument.MeasureVoltage,
	}
)

// Models maps the supported models to their measurable quantities.
var Models = map[string][]instrument.Measurement{
	"B2981A": ammeter,
	"B2983A": ammeter,
	"B2985A": electrometer,
	"B2987A": electrometer,
}

var viewModes = map[string]string{
	"meter": "SINGle1",
	"roll":  "ROLL",
	"hist":  "HISTogram",
	"graph": "GRAPH",
}

func init() {
	for model := range Models {
		instrument.Register(Manufacturer, model, New)
		instrument.Register(LegacyManufacturer, model, New)
	}
}

// B298x is a B2980 series instrument.
type B298x struct {
	*instrument.Base
	measurements []instrument.Measurement
}

var _ instrument.Electrometer = (*B298x)(nil)

// New builds a B2980 series instrument, it is the registered builder.
func New(desc instrument.Descriptor) (instrument.Instrument, error) {
	kinds, ok := Models[strings.ToUpper(desc.Model)]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a B2980 series model", instrument.ErrUnknownModel, desc.Model)
	}

	e := &B298x{measurements: kinds}
	e.Base = instrument.NewBase(instrument.FamilyElectrometer, desc, instrument.WithPointCounter(e))

	err := e.Config().Apply(map[string]string{
		transfer.KeyAvailableFormats:  "text,binary",
		transfer.KeyActivatedFormat:   "text",
		transfer.KeyBinaryHeader:      "ieee",
		transfer.KeyBinaryEndianness:  "big",
		transfer.KeyBinaryElementType: "f",
		transfer.KeyTextConverter:     "e",
		transfer.KeyTextSeparator:     ",",
		transfer.KeyReadTerminator:    "LF",
		transfer.KeyWriteTerminator:   "LF",
	})
	if err != nil {
		return nil, err
	}

	return e, nil
}

// Measurements returns the quantities the model can measure.
func (e *B298x) Measurements() []instrument.Measurement {
	return slices.Clone(e.measurements)
}

func (e *B298x) checkKind(kind instrument.Measurement) error {
	if !slices.Contains(e.measurements, kind) {
		return fmt.Errorf("%w: %s cannot measure %s", transfer.ErrInvalidArgument, e.Descriptor().Model, kind)
	}

	return nil
}

// SetDataTransferFormat selects ASCii for text, or REAL,32 / REAL,64 for binary
// depending on the element type.
func (e *B298x) SetDataTransferFormat(format string, dataType string) error {
	f, err := transfer.ParseFormat(format)
	if err != nil {
		return err
	}
	cfg := e.Config()
	if !cfg.IsAvailable(f) {
		return fmt.Errorf("%w: format %s", transfer.ErrInvalidArgument, f)
	}

	var command string
	switch f {
	case transfer.FormatText:
		if dataType != "" {
			if _, err := transfer.ParseConverter(dataType); err != nil {
				return err
			}
		}
		command = ":FORMat:DATA ASCii"

	case transfer.FormatBinary:
		elem, err := transfer.ParseElementType(dataType)
		if err != nil {
			return err
		}
		switch elem {
		case transfer.Float32:
			command = ":FORMat:DATA REAL,32"
		case transfer.Float64:
			command = ":FORMat:DATA REAL,64"
		default:
			return fmt.Errorf("%w: binary transfer of %s, use float32 or float64", instrument.ErrUnsupportedFormat, elem)
		}
	}

	if err := e.Send(command); err != nil {
		return err
	}

	// the aliases were validated above
	if f == transfer.FormatText && dataType != "" {
		_ = cfg.SetTextConverter(dataType)
	}
	if f == transfer.FormatBinary {
		_ = cfg.SetBinaryElementType(dataType)
	}

	return cfg.SetActivatedFormat(string(f))
}

// PointCount returns the number of readings in the data buffer.
func (e *B298x) PointCount() (int, error) {
	reply, err := e.Query(":SYSTem:DATA:QUANtity?")
	if err != nil {
		return 0, err
	}

	return instrument.ParseCount(reply)
}

// Lock requests the remote lock, the instrument grants it by answering 1.
func (e *B298x) Lock() error {
	reply, err := e.Query(":SYSTem:LOCK:REQuest?")
	if err != nil {
		return err
	}
	if status, err := instrument.ParseFloat(reply); err != nil || status != 1 {
		e.Logger().Warn("remote lock refused", "status", reply)
		return fmt.Errorf("%w: %s answered %q", instrument.ErrLockDenied, e.Descriptor().Model, reply)
	}
	e.Logger().Info("remote lock granted")

	return nil
}

func (e *B298x) Unlock() error {
	return e.Send(":SYSTem:LOCK:RELease")
}

func (e *B298x) setNumeric(format string, value string, args ...any) error {
	v, err := instrument.NumericArg(value)
	if err != nil {
		return err
	}

	return e.Send(fmt.Sprintf(format, append(args, v)...))
}

func (e *B298x) queryFloat(command string) (float64, error) {
	reply, err := e.Query(command)
	if err != nil {
		return 0, err
	}

	return instrument.ParseFloat(reply)
}

func (e *B298x) SetRange(kind instrument.Measurement, value string) error {
	if err := e.checkKind(kind); err != nil {
		return err
	}

	return e.setNumeric(":SENSe:%s:RANGe:UPPer %s", value, kind)
}

func (e *B298x) Range(kind instrument.Measurement) (float64, error) {
	if err := e.checkKind(kind); err != nil {
		return 0, err
	}

	return e.queryFloat(fmt.Sprintf(":SENSe:%s:RANGe:UPPer?", kind))
}

func (e *B298x) SetAutoRange(kind instrument.Measurement, on bool) error {
	if err := e.checkKind(kind); err != nil {
		return err
	}

	return e.Send(fmt.Sprintf(":SENSe:%s:RANGe:AUTO %s", kind, instrument.OnOff(on)))
}

func (e *B298x) SetApertureTime(kind instrument.Measurement, value string) error {
	if err := e.checkKind(kind); err != nil {
		return err
	}

	return e.setNumeric(":SENSe:%s:APERture %s", value, kind)
}

func (e *B298x) ApertureTime(kind instrument.Measurement) (float64, error) {
	if err := e.checkKind(kind); err != nil {
		return 0, err
	}

	return e.queryFloat(fmt.Sprintf(":SENSe:%s:APERture?", kind))
}

// SetIntegrationTime is SetApertureTime.
func (e *B298x) SetIntegrationTime(kind instrument.Measurement, value string) error {
	return e.SetApertureTime(kind, value)
}

var triggerSources = []string{"AINT", "BUS", "TIM", "TIMER", "INT1", "INT2", "LAN", "EXT1", "EXT2", "EXT3", "EXT4", "EXT5", "EXT6", "EXT7"}

func (e *B298x) SetTriggerSource(source string) error {
	src := strings.ToUpper(strings.TrimSpace(source))
	if !slices.Contains(triggerSources, src) {
		return fmt.Errorf("%w: trigger source %q", transfer.ErrInvalidArgument, source)
	}

	return e.Send(":TRIGger:ACQuire:SOURce:SIGNal " + src)
}

func (e *B298x) TriggerSource() (string, error) {
	reply, err := e.Query(":TRIGger:ACQuire:SOURce:SIGNal?")
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(reply), nil
}

func (e *B298x) SetTriggerCount(value string) error {
	return e.setNumeric(":TRIGger:ACQuire:COUNt %s", value)
}

func (e *B298x) TriggerCount() (int, error) {
	reply, err := e.Query(":TRIGger:ACQuire:COUNt?")
	if err != nil {
		return 0, err
	}

	return instrument.ParseCount(reply)
}

func (e *B298x) SetTriggerTimer(value string) error {
	return e.setNumeric(":TRIGger:ACQuire:TIMer %s", value)
}

func (e *B298x) TriggerTimer() (float64, error) {
	return e.queryFloat(":TRIGger:ACQuire:TIMer?")
}

func (e *B298x) SetDisplay(on bool) error {
	return e.Send(":DISPlay:ENABle " + instrument.OnOff(on))
}

// SetViewMode selects the front panel view: meter, roll, hist or graph.
func (e *B298x) SetViewMode(mode string) error {
	view, ok := viewModes[strings.ToLower(strings.TrimSpace(mode))]
	if !ok {
		return fmt.Errorf("%w: view mode %q, valid modes are meter, roll, hist, graph", transfer.ErrInvalidArgument, mode)
	}

	return e.Send(":DISPlay:VIEW " + view)
}

// SetInput switches the ammeter input.
func (e *B298x) SetInput(on bool) error {
	return e.Send(":INPut:STATe " + instrument.OnOff(on))
}

func (e *B298x) InitiateMeasurement() error {
	return e.Send(":INITiate:IMMediate:ACQuire")
}

func (e *B298x) Fetch(kind instrument.Measurement) (transfer.Data, error) {
	if err := e.checkKind(kind); err != nil {
		return transfer.Data{}, err
	}

	return e.QueryTypedData(fmt.Sprintf(":FETCh:ARRay:%s?", kind), instrument.AutoCount)
}

func (e *B298x) FetchAll() (transfer.Data, error) {
	return e.QueryTypedData(":FETCh:ARRay?", instrument.AutoCount)
}
