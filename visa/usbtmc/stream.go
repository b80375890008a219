package usbtmc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/gousb"
)

// usbStream implements visa.Stream over the bulk endpoints of a USBTMC interface.
type usbStream struct {
	usb  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint

	tags        tagger
	maxTransfer int
	deadline    time.Time
	pending     []byte

	closeOnce sync.Once
}

func (s *usbStream) SetDeadline(t time.Time) error {
	s.deadline = t
	return nil
}

func (s *usbStream) context() (context.Context, context.CancelFunc) {
	if s.deadline.IsZero() {
		return context.WithCancel(context.Background())
	}

	return context.WithDeadline(context.Background(), s.deadline)
}

// Write sends p as one device dependent message, split into transfers of at most maxTransfer bytes.
func (s *usbStream) Write(p []byte) (int, error) {
	ctx, cancel := s.context()
	defer cancel()

	written := 0
	for {
		end := min(written+s.maxTransfer, len(p))
		msg := outMessage(s.tags.next(), p[written:end], end == len(p))
		if _, err := s.epOut.WriteContext(ctx, msg); err != nil {
			return written, s.transferError(ctx, err)
		}
		written = end
		if written >= len(p) {
			return written, nil
		}
	}
}

// Read returns buffered message bytes, requesting a new transfer from the device when the buffer is empty.
func (s *usbStream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		if err := s.fill(); err != nil {
			return 0, err
		}
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]

	return n, nil
}

func (s *usbStream) fill() error {
	ctx, cancel := s.context()
	defer cancel()

	tag := s.tags.next()
	if _, err := s.epOut.WriteContext(ctx, inRequest(tag, s.maxTransfer, 0, false)); err != nil {
		return s.transferError(ctx, err)
	}

	packet := make([]byte, headerSize+s.maxTransfer+3)
	n, err := s.epIn.ReadContext(ctx, packet)
	if err != nil {
		return s.transferError(ctx, err)
	}

	size, _, err := parseInHeader(packet[:n], tag)
	if err != nil {
		return err
	}

	data := packet[headerSize:n]
	for len(data) < size {
		more := make([]byte, size-len(data)+3)
		m, err := s.epIn.ReadContext(ctx, more)
		if err != nil {
			return s.transferError(ctx, err)
		}
		data = append(data, more[:m]...)
	}

	s.pending = data[:size]

	return nil
}

func (s *usbStream) transferError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, gousb.ErrorTimeout) {
		return os.ErrDeadlineExceeded
	}
	if errors.Is(err, gousb.ErrorNoDevice) {
		return fmt.Errorf("device disconnected: %w", io.EOF)
	}

	return err
}

func (s *usbStream) Close() error {
	s.closeOnce.Do(func() {
		if s.intf != nil {
			s.intf.Close()
		}
		if s.cfg != nil {
			_ = s.cfg.Close()
		}
		if s.dev != nil {
			_ = s.dev.Close()
		}
		if s.usb != nil {
			_ = s.usb.Close()
		}
	})

	return nil
}
