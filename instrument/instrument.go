package instrument

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/arloliu/go-testbench/logger"
	"github.com/arloliu/go-testbench/transfer"
	"github.com/arloliu/go-testbench/visa"
)

// AutoCount lets QueryTypedData decide the element count of a binary reply.
const AutoCount = -1

// Instrument is the uniform command and query surface of an instrument.
type Instrument interface {
	// Family returns the instrument category.
	Family() Family
	// Descriptor returns a copy of the instrument identity.
	Descriptor() Descriptor
	// Config returns the transfer configuration, it is owned by the instrument.
	Config() *transfer.Config
	// Metrics returns the I/O counters.
	Metrics() *Metrics

	// Attached reports whether a session is attached.
	Attached() bool
	// AttachSession attaches a session, it fails with ErrNotAttachable when one is
	// already attached and with ErrInvalidSession when sess is not usable.
	AttachSession(sess visa.Session) error
	// DetachSession closes and releases the attached session, it is a no-op without one.
	DetachSession() error

	// Send writes a command.
	Send(command string) error
	// Query writes a request and returns the reply without the read terminator.
	Query(request string) (string, error)
	// QueryTypedData writes a request and decodes the reply with the activated format.
	//
	// count is the number of binary elements to read, or AutoCount.
	QueryTypedData(request string, count int) (transfer.Data, error)

	// SetTimeout changes the I/O timeout of the configuration and of the attached session.
	SetTimeout(timeout time.Duration) error

	// Reset sends *RST.
	Reset() error
	// ClearStatus sends *CLS.
	ClearStatus() error
	// Lock requests the remote lock of the front panel.
	Lock() error
	// Unlock releases the remote lock.
	Unlock() error
}

// PointCounter is implemented by instruments that can report the number of
// points of the next data reply.
type PointCounter interface {
	PointCount() (int, error)
}

// link holds the attached session apart from Base so that a cleanup can close
// it after the instrument is unreachable.
type link struct {
	session visa.Session
}

func closeLink(l *link) {
	if l.session != nil {
		_ = visa.CloseQuietly(l.session)
		l.session = nil
	}
}

// Base implements Instrument for the generic instrument. Family drivers embed
// *Base and override Lock, Unlock and the family operations.
type Base struct {
	family  Family
	desc    Descriptor
	cfg     *transfer.Config
	link    *link
	counter PointCounter
	metrics Metrics
	base    logger.Logger
	logger  logger.Logger
}

var _ Instrument = (*Base)(nil)

// Option configures a Base.
type Option func(*Base)

// WithPointCounter sets the point counter used by QueryTypedData with AutoCount
// when the binary header does not carry the length.
func WithPointCounter(c PointCounter) Option {
	return func(b *Base) {
		b.counter = c
	}
}

// WithLogger sets the logger, the default is the global logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Base) {
		if l != nil {
			b.base = l
		}
	}
}

// NewBase creates an unattached instrument of family with the default transfer configuration.
func NewBase(family Family, desc Descriptor, opts ...Option) *Base {
	desc.Family = family
	b := &Base{
		family: family,
		desc:   desc,
		cfg:    transfer.NewConfig(),
		link:   &link{},
		base:   logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.base.With("manufacturer", desc.Manufacturer, "model", desc.Model)

	runtime.AddCleanup(b, closeLink, b.link)

	return b
}

// NewGeneric creates a generic instrument for an identity without a registered builder.
func NewGeneric(desc Descriptor) (Instrument, error) {
	return NewBase(FamilyGeneric, desc), nil
}

func (b *Base) Family() Family           { return b.family }
func (b *Base) Descriptor() Descriptor   { return b.desc }
func (b *Base) Config() *transfer.Config { return b.cfg }
func (b *Base) Metrics() *Metrics        { return &b.metrics }
func (b *Base) Attached() bool           { return b.link.session != nil }

// Logger returns the instrument logger.
func (b *Base) Logger() logger.Logger { return b.logger }

// Session returns the attached session or ErrUnattached.
func (b *Base) Session() (visa.Session, error) {
	if b.link.session == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrUnattached, b.desc.Manufacturer, b.desc.Model)
	}

	return b.link.session, nil
}

func (b *Base) AttachSession(sess visa.Session) error {
	if b.link.session != nil {
		return fmt.Errorf("%w: %s is attached to %s", ErrNotAttachable, b.desc.Model, b.link.session.Resource().Raw)
	}
	if sess == nil || !sess.Valid() {
		return fmt.Errorf("%w: cannot attach an unusable session", ErrInvalidSession)
	}

	sess.SetReadTermination(b.cfg.ReadTerminator())
	sess.SetWriteTermination(b.cfg.WriteTerminator())

	// the configuration mirrors the timeout the link runs with
	_ = b.cfg.SetTimeout(sess.Timeout())

	b.desc.Interface = sess.InterfaceType()
	b.link.session = sess
	b.logger = b.base.With("address", sess.Resource().Raw, "manufacturer", b.desc.Manufacturer, "model", b.desc.Model)
	b.logger.Debug("session attached", "session", sess.ID())

	return nil
}

func (b *Base) DetachSession() error {
	return b.detach(false)
}

// quietDetacher is satisfied by Base and every type embedding it.
type quietDetacher interface {
	detach(quiet bool) error
}

// DetachQuietly detaches inst without logging. Types that do not embed Base
// fall back to DetachSession.
func DetachQuietly(inst Instrument) error {
	if q, ok := inst.(quietDetacher); ok {
		return q.detach(true)
	}

	return inst.DetachSession()
}

func (b *Base) detach(quiet bool) error {
	sess := b.link.session
	if sess == nil {
		return nil
	}
	b.link.session = nil

	if quiet {
		if err := visa.CloseQuietly(sess); err != nil {
			b.metrics.incErrCount()
			return fmt.Errorf("detach %s: %w", sess.Resource().Raw, err)
		}
		return nil
	}

	if err := sess.Close(); err != nil {
		return b.translate(fmt.Sprintf("detach %s", sess.Resource().Raw), err)
	}
	b.logger.Debug("session detached", "session", sess.ID())

	return nil
}

func (b *Base) Send(command string) error {
	sess, err := b.Session()
	if err != nil {
		return err
	}

	b.metrics.incSendCount()
	if err := sess.Write(command); err != nil {
		return b.translate(fmt.Sprintf("send %q", command), err)
	}

	return nil
}

func (b *Base) Query(request string) (string, error) {
	sess, err := b.Session()
	if err != nil {
		return "", err
	}

	b.metrics.incQueryCount()
	reply, err := sess.Query(request)
	if err != nil {
		return "", b.translate(fmt.Sprintf("query %q", request), err)
	}

	return reply, nil
}

func (b *Base) QueryTypedData(request string, count int) (transfer.Data, error) {
	format := b.cfg.ActivatedFormat()
	if format == transfer.FormatNone {
		return transfer.Data{}, fmt.Errorf("%w: query %q", ErrNoFormatSelected, request)
	}

	sess, err := b.Session()
	if err != nil {
		return transfer.Data{}, err
	}

	b.metrics.incDataQueryCount()

	var data transfer.Data
	switch format {
	case transfer.FormatText:
		data, err = sess.QueryTextValues(request, b.cfg.TextFormat())

	case transfer.FormatBinary:
		n, cerr := b.binaryCount(count)
		if cerr != nil {
			return transfer.Data{}, fmt.Errorf("query %q: %w", request, cerr)
		}
		data, err = sess.QueryBinaryValues(request, b.cfg.BinaryFormat(n))

	default:
		return transfer.Data{}, fmt.Errorf("%w: %q for query %q", ErrUnsupportedFormat, format, request)
	}

	if err != nil {
		return transfer.Data{}, b.translate(fmt.Sprintf("query %q as %s", request, format), err)
	}
	b.metrics.addPointCount(data.Len())

	return data, nil
}

// binaryCount resolves the element count of a binary reply. A self-framed header
// carries the count, otherwise the point counter is asked first.
func (b *Base) binaryCount(count int) (int, error) {
	if count >= 0 {
		return count, nil
	}
	if count != AutoCount {
		return 0, fmt.Errorf("%w: element count %d", transfer.ErrInvalidArgument, count)
	}
	if b.cfg.BinaryHeader().SelfFramed() {
		return 0, nil
	}
	if b.counter == nil {
		return 0, fmt.Errorf("%w: point count of %s %s", ErrNotImplemented, b.family, b.desc.Model)
	}

	n, err := b.counter.PointCount()
	if err != nil {
		return 0, fmt.Errorf("point count: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: device reported %d points", ErrIO, n)
	}
	b.logger.Debug("point count", "count", n)

	return n, nil
}

func (b *Base) SetTimeout(timeout time.Duration) error {
	prev := b.cfg.Timeout()
	if err := b.cfg.SetTimeout(timeout); err != nil {
		return err
	}

	if sess := b.link.session; sess != nil {
		if err := sess.SetTimeout(timeout); err != nil {
			_ = b.cfg.SetTimeout(prev)
			return b.translate("set timeout", err)
		}
	}

	return nil
}

// SetTimeoutValue is SetTimeout for a textual value, a number of milliseconds
// or one of "immediate" and "infinite".
func (b *Base) SetTimeoutValue(value string) error {
	d, err := transfer.ParseTimeout(value)
	if err != nil {
		return err
	}

	return b.SetTimeout(d)
}

// SetTerminator changes a terminator of the configuration and of the attached session.
func (b *Base) SetTerminator(role transfer.Role, alias string) error {
	if err := b.cfg.SetTerminator(role, alias); err != nil {
		return err
	}

	if sess := b.link.session; sess != nil {
		sess.SetReadTermination(b.cfg.ReadTerminator())
		sess.SetWriteTermination(b.cfg.WriteTerminator())
	}

	return nil
}

func (b *Base) Reset() error {
	return b.Send("*RST")
}

func (b *Base) ClearStatus() error {
	return b.Send("*CLS")
}

func (b *Base) Lock() error {
	return fmt.Errorf("%w: remote lock of %s", ErrNotImplemented, b.family)
}

func (b *Base) Unlock() error {
	return fmt.Errorf("%w: remote unlock of %s", ErrNotImplemented, b.family)
}

// translate maps a transport failure to the instrument error kinds, keeping the cause.
func (b *Base) translate(op string, err error) error {
	b.metrics.incErrCount()

	switch {
	case errors.Is(err, visa.ErrInvalidSession):
		b.logger.Warn("session is no longer usable", "op", op, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrInvalidSession, op, err)
	case errors.Is(err, visa.ErrIO):
		return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
