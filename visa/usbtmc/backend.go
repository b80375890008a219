// Package usbtmc implements the USB Test & Measurement Class backend for USB resources.
//
// Addresses follow USB[board]::<vendor id>::<product id>::<serial>[::<interface>]::INSTR,
// ids are hexadecimal with a 0x prefix or decimal. The serial number may be omitted
// to open the first matching device.
package usbtmc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/gousb"

	"github.com/arloliu/go-testbench/logger"
	"github.com/arloliu/go-testbench/transfer"
	"github.com/arloliu/go-testbench/visa"
)

const subclassUSBTMC gousb.Class = 0x03

// Backend opens USBTMC sessions through libusb.
type Backend struct {
	timeout     time.Duration
	maxTransfer int
	logger      logger.Logger
}

var _ visa.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend) error

// WithTimeout sets the initial I/O timeout of opened sessions.
func WithTimeout(timeout time.Duration) Option {
	return func(b *Backend) error {
		if timeout < 0 {
			return fmt.Errorf("%w: negative timeout %s", transfer.ErrInvalidArgument, timeout)
		}
		b.timeout = timeout

		return nil
	}
}

// WithMaxTransferSize sets the largest bulk transfer, the default is 1 MiB.
func WithMaxTransferSize(size int) Option {
	return func(b *Backend) error {
		if size < 64 {
			return fmt.Errorf("%w: transfer size %d is below 64", transfer.ErrInvalidArgument, size)
		}
		b.maxTransfer = size

		return nil
	}
}

// WithLogger sets the logger of the backend and its sessions.
func WithLogger(l logger.Logger) Option {
	return func(b *Backend) error {
		b.logger = l
		return nil
	}
}

// NewBackend creates a USBTMC backend.
func NewBackend(opts ...Option) (*Backend, error) {
	b := &Backend{
		timeout:     visa.DefaultTimeout,
		maxTransfer: defaultMaxTransferSize,
		logger:      logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

func (b *Backend) Schemes() []string {
	return []string{visa.InterfaceUSB.Scheme()}
}

// resource is the device selector of a USB address.
type resource struct {
	vendor  gousb.ID
	product gousb.ID
	serial  string
}

func parseResource(addr visa.Address) (resource, error) {
	if addr.Class != "INSTR" || len(addr.Fields) < 2 {
		return resource{}, fmt.Errorf("%w: %q, expect USB::vid::pid::serial::INSTR", visa.ErrInvalidAddress, addr.Raw)
	}

	vid, err := strconv.ParseUint(addr.Field(0), 0, 16)
	if err != nil {
		return resource{}, fmt.Errorf("%w: %q has an invalid vendor id", visa.ErrInvalidAddress, addr.Raw)
	}
	pid, err := strconv.ParseUint(addr.Field(1), 0, 16)
	if err != nil {
		return resource{}, fmt.Errorf("%w: %q has an invalid product id", visa.ErrInvalidAddress, addr.Raw)
	}

	return resource{vendor: gousb.ID(vid), product: gousb.ID(pid), serial: addr.Field(2)}, nil
}

func formatResource(vendor gousb.ID, product gousb.ID, serial string) string {
	return fmt.Sprintf("USB0::0x%04X::0x%04X::%s::INSTR", uint16(vendor), uint16(product), serial)
}

// tmcSetting locates the USBTMC interface of a device.
func tmcSetting(desc *gousb.DeviceDesc) (cfgNum int, setting gousb.InterfaceSetting, ok bool) {
	numbers := make([]int, 0, len(desc.Configs))
	for n := range desc.Configs {
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)

	for _, n := range numbers {
		for _, intf := range desc.Configs[n].Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == gousb.ClassApplication && alt.SubClass == subclassUSBTMC {
					return n, alt, true
				}
			}
		}
	}

	return 0, gousb.InterfaceSetting{}, false
}

// bulkEndpoints returns the bulk OUT and IN endpoint numbers of an interface setting.
func bulkEndpoints(setting gousb.InterfaceSetting) (int, int, error) {
	out, in := -1, -1
	for _, ep := range setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if ep.Direction == gousb.EndpointDirectionOut && out < 0 {
			out = ep.Number
		}
		if ep.Direction == gousb.EndpointDirectionIn && in < 0 {
			in = ep.Number
		}
	}
	if out < 0 || in < 0 {
		return 0, 0, errors.New("bulk endpoints not found")
	}

	return out, in, nil
}

// newContext wraps gousb.NewContext, which panics when libusb cannot be initialized.
func newContext() (usb *gousb.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("libusb init: %v", r)
		}
	}()

	return gousb.NewContext(), nil
}

func (b *Backend) Open(ctx context.Context, addr visa.Address) (visa.Session, error) {
	res, err := parseResource(addr)
	if err != nil {
		return nil, err
	}

	usb, err := newContext()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", visa.ErrUnreachable, err)
	}

	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if ctx.Err() != nil || desc.Vendor != res.vendor || desc.Product != res.product {
			return false
		}
		_, _, ok := tmcSetting(desc)

		return ok
	})
	if err != nil && !errors.Is(err, gousb.ErrorAccess) {
		b.logger.Debug("usb enumeration error", "error", err)
	}

	var dev *gousb.Device
	for _, d := range devs {
		if dev == nil && (res.serial == "" || serialOf(d) == res.serial) {
			dev = d
			continue
		}
		_ = d.Close()
	}
	if dev == nil {
		_ = usb.Close()
		return nil, fmt.Errorf("%w: no USBTMC device %s", visa.ErrUnreachable, addr.Raw)
	}

	stream, err := b.claim(usb, dev)
	if err != nil {
		_ = dev.Close()
		_ = usb.Close()
		return nil, fmt.Errorf("%w: %s: %w", visa.ErrUnreachable, addr.Raw, err)
	}

	sess, err := visa.NewStreamSession(addr, stream,
		visa.WithSessionTimeout(b.timeout),
		visa.WithSessionLogger(b.logger),
	)
	if err != nil {
		_ = stream.Close()
		return nil, err
	}

	return sess, nil
}

func (b *Backend) claim(usb *gousb.Context, dev *gousb.Device) (*usbStream, error) {
	cfgNum, setting, ok := tmcSetting(dev.Desc)
	if !ok {
		return nil, errors.New("no USBTMC interface")
	}
	_ = dev.SetAutoDetach(true)

	out, in, err := bulkEndpoints(setting)
	if err != nil {
		return nil, err
	}

	cfg, err := dev.Config(cfgNum)
	if err != nil {
		return nil, fmt.Errorf("config %d: %w", cfgNum, err)
	}
	intf, err := cfg.Interface(setting.Number, setting.Alternate)
	if err != nil {
		_ = cfg.Close()
		return nil, fmt.Errorf("claim interface %d: %w", setting.Number, err)
	}

	s := &usbStream{usb: usb, dev: dev, cfg: cfg, intf: intf, maxTransfer: b.maxTransfer}
	if s.epOut, err = intf.OutEndpoint(out); err != nil {
		intf.Close()
		_ = cfg.Close()
		return nil, fmt.Errorf("open OUT endpoint: %w", err)
	}
	if s.epIn, err = intf.InEndpoint(in); err != nil {
		intf.Close()
		_ = cfg.Close()
		return nil, fmt.Errorf("open IN endpoint: %w", err)
	}

	return s, nil
}

func serialOf(d *gousb.Device) string {
	serial, err := d.SerialNumber()
	if err != nil {
		return ""
	}

	return strings.TrimSpace(serial)
}

// List enumerates the attached USBTMC devices.
func (b *Backend) List(ctx context.Context) ([]string, error) {
	usb, err := newContext()
	if err != nil {
		return nil, err
	}
	defer usb.Close()

	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if ctx.Err() != nil {
			return false
		}
		_, _, ok := tmcSetting(desc)

		return ok
	})

	resources := make([]string, 0, len(devs))
	for _, d := range devs {
		resources = append(resources, formatResource(d.Desc.Vendor, d.Desc.Product, serialOf(d)))
		_ = d.Close()
	}
	if err != nil && !errors.Is(err, gousb.ErrorAccess) {
		return resources, fmt.Errorf("usb enumeration: %w", err)
	}

	return resources, nil
}

func (b *Backend) Close() error {
	return nil
}
