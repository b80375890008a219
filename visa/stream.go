package visa

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/go-testbench/logger"
	"github.com/arloliu/go-testbench/transfer"
)

// Stream is the byte level transport of a message based session.
//
// net.Conn satisfies Stream. A Read or Write after the deadline must fail with an
// error for which os.IsTimeout reports true.
type Stream interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

// DefaultTimeout is the I/O timeout of a new session.
const DefaultTimeout = 2 * time.Second

const defaultMaxReplySize = 64 << 20

// SessionState is the state of a StreamSession.
type SessionState uint32

const (
	OpenedState SessionState = iota
	InvalidState
	ClosedState
)

func (st SessionState) String() string {
	switch st {
	case OpenedState:
		return "Opened"
	case InvalidState:
		return "Invalid"
	case ClosedState:
		return "Closed"
	default:
		return "Unknown"
	}
}

// StreamSession implements Session on top of a Stream.
type StreamSession struct {
	id        string
	addr      Address
	itype     InterfaceType
	stream    Stream
	reader    *bufio.Reader
	readTerm  transfer.Terminator
	writeTerm transfer.Terminator
	timeout   time.Duration
	maxReply  int
	state     atomic.Uint32
	logger    logger.Logger
}

var (
	_ Session     = (*StreamSession)(nil)
	_ QuietCloser = (*StreamSession)(nil)
)

// NewStreamSession creates a session that exchanges messages over stream.
//
// The session starts with LF terminators and DefaultTimeout. The session owns
// the stream and closes it on Close.
func NewStreamSession(addr Address, stream Stream, opts ...SessionOption) (*StreamSession, error) {
	s := &StreamSession{
		id:        uuid.NewString(),
		addr:      addr,
		itype:     addr.Interface,
		stream:    stream,
		reader:    bufio.NewReader(stream),
		readTerm:  transfer.LF,
		writeTerm: transfer.LF,
		timeout:   DefaultTimeout,
		maxReply:  defaultMaxReplySize,
	}

	for _, opt := range opts {
		if err := opt.apply(s); err != nil {
			return nil, err
		}
	}

	if s.logger == nil {
		s.logger = logger.GetLogger()
	}
	s.logger = s.logger.With("session", s.id, "resource", addr.Raw)

	return s, nil
}

// SessionOption configures a StreamSession.
type SessionOption interface {
	apply(*StreamSession) error
}

type sessionOptFunc func(*StreamSession) error

func (f sessionOptFunc) apply(s *StreamSession) error { return f(s) }

// WithSessionTimeout sets the initial I/O timeout.
func WithSessionTimeout(timeout time.Duration) SessionOption {
	return sessionOptFunc(func(s *StreamSession) error {
		if timeout < 0 {
			return fmt.Errorf("%w: negative timeout %s", transfer.ErrInvalidArgument, timeout)
		}
		s.timeout = timeout

		return nil
	})
}

// WithSessionLogger sets the logger, the default is the global logger.
func WithSessionLogger(l logger.Logger) SessionOption {
	return sessionOptFunc(func(s *StreamSession) error {
		s.logger = l
		return nil
	})
}

// WithInterfaceType overrides the interface type derived from the address.
func WithInterfaceType(it InterfaceType) SessionOption {
	return sessionOptFunc(func(s *StreamSession) error {
		s.itype = it
		return nil
	})
}

// WithMaxReplySize limits the size of one reply, the default is 64 MiB.
func WithMaxReplySize(size int) SessionOption {
	return sessionOptFunc(func(s *StreamSession) error {
		if size <= 0 {
			return fmt.Errorf("%w: reply size %d", transfer.ErrInvalidArgument, size)
		}
		s.maxReply = size

		return nil
	})
}

func (s *StreamSession) ID() string                   { return s.id }
func (s *StreamSession) Resource() Address            { return s.addr }
func (s *StreamSession) InterfaceType() InterfaceType { return s.itype }

// State returns the current session state.
func (s *StreamSession) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *StreamSession) Valid() bool {
	return s.State() == OpenedState
}

func (s *StreamSession) ReadTermination() transfer.Terminator { return s.readTerm }

func (s *StreamSession) SetReadTermination(term transfer.Terminator) { s.readTerm = term }

func (s *StreamSession) WriteTermination() transfer.Terminator { return s.writeTerm }

func (s *StreamSession) SetWriteTermination(term transfer.Terminator) { s.writeTerm = term }

func (s *StreamSession) Timeout() time.Duration { return s.timeout }

func (s *StreamSession) SetTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return fmt.Errorf("%w: negative timeout %s", transfer.ErrInvalidArgument, timeout)
	}
	s.timeout = timeout

	return nil
}

func (s *StreamSession) Write(command string) error {
	if !s.Valid() {
		return fmt.Errorf("%w: session is %s", ErrInvalidSession, s.State())
	}

	s.logger.Debug("write", "command", command)

	msg := command
	if !strings.HasSuffix(msg, string(s.writeTerm)) {
		msg += string(s.writeTerm)
	}

	if err := s.stream.SetDeadline(s.deadline()); err != nil {
		return s.classify("write", err)
	}
	if _, err := io.WriteString(s.stream, msg); err != nil {
		return s.classify("write", err)
	}

	return nil
}

func (s *StreamSession) Query(request string) (string, error) {
	if err := s.Write(request); err != nil {
		return "", err
	}

	line, err := s.readMessage()
	if err != nil {
		return "", err
	}
	reply := strings.TrimSuffix(string(line), string(s.readTerm))
	s.logger.Debug("read", "request", request, "reply", reply)

	return reply, nil
}

func (s *StreamSession) QueryTextValues(request string, format transfer.TextFormat) (transfer.Data, error) {
	reply, err := s.Query(request)
	if err != nil {
		return transfer.Data{}, err
	}

	return transfer.ParseText(reply, format)
}

func (s *StreamSession) QueryBinaryValues(request string, format transfer.BinaryFormat) (transfer.Data, error) {
	if err := s.Write(request); err != nil {
		return transfer.Data{}, err
	}

	raw, err := s.readBlock(format)
	if err != nil {
		return transfer.Data{}, err
	}
	s.logger.Debug("read block", "request", request, "size", len(raw))

	return transfer.DecodeBlock(raw, format)
}

// Close closes the stream. Closing a closed session is a no-op.
func (s *StreamSession) Close() error {
	return s.close(false)
}

// CloseQuietly is Close without the debug record.
func (s *StreamSession) CloseQuietly() error {
	return s.close(true)
}

func (s *StreamSession) close(quiet bool) error {
	for {
		st := s.state.Load()
		if SessionState(st) == ClosedState {
			return nil
		}
		if s.state.CompareAndSwap(st, uint32(ClosedState)) {
			break
		}
	}

	if !quiet {
		s.logger.Debug("session closed")
	}
	if err := s.stream.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: close: %w", ErrIO, err)
	}

	return nil
}

func (s *StreamSession) deadline() time.Time {
	if s.timeout == transfer.Infinite {
		return time.Time{}
	}

	return time.Now().Add(s.timeout)
}

// readMessage reads up to and including the read terminator.
func (s *StreamSession) readMessage() ([]byte, error) {
	if err := s.stream.SetDeadline(s.deadline()); err != nil {
		return nil, s.classify("read", err)
	}

	term := []byte(s.readTerm)
	last := term[len(term)-1]

	var msg []byte
	for {
		chunk, err := s.reader.ReadSlice(last)
		msg = append(msg, chunk...)
		if err == nil {
			if strings.HasSuffix(string(msg), string(term)) {
				return msg, nil
			}
			continue
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return nil, s.classify("read", err)
		}
		if len(msg) > s.maxReply {
			s.reader.Reset(s.stream)
			return nil, fmt.Errorf("%w: reply exceeds %d bytes", ErrIO, s.maxReply)
		}
	}
}

// readBlock reads one binary block and the read terminator that follows it.
func (s *StreamSession) readBlock(format transfer.BinaryFormat) ([]byte, error) {
	if err := s.stream.SetDeadline(s.deadline()); err != nil {
		return nil, s.classify("read", err)
	}

	var raw []byte
	for {
		size, ok, err := transfer.BlockSize(raw, format)
		if err != nil {
			// drop the rest of the reply, e.g. a text error line
			if !strings.HasSuffix(string(raw), string(s.readTerm)) {
				_, _ = s.readMessage()
			}
			return nil, err
		}
		if !ok {
			b, err := s.reader.ReadByte()
			if err != nil {
				return nil, s.classify("read", err)
			}
			if len(raw) == 0 && (b == ' ' || b == '\r' || b == '\n') {
				continue
			}
			raw = append(raw, b)

			continue
		}

		if size < 0 {
			rest, err := s.readMessage()
			if err != nil {
				return nil, err
			}

			return append(raw, rest...), nil
		}
		if size > s.maxReply {
			s.reader.Reset(s.stream)
			return nil, fmt.Errorf("%w: block of %d bytes exceeds %d bytes", ErrIO, size, s.maxReply)
		}

		block := make([]byte, size)
		copy(block, raw)
		if _, err := io.ReadFull(s.reader, block[len(raw):]); err != nil {
			return nil, s.classify("read", err)
		}
		if _, err := s.readMessage(); err != nil {
			return nil, err
		}

		return block, nil
	}
}

// classify maps a stream error to ErrIO or ErrInvalidSession, the latter marks the session invalid.
func (s *StreamSession) classify(op string, err error) error {
	if os.IsTimeout(err) {
		s.reader.Reset(s.stream)
		return fmt.Errorf("%w: %s: %w", ErrIO, op, ErrTimeout)
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		s.state.CompareAndSwap(uint32(OpenedState), uint32(InvalidState))
		s.logger.Warn("session became invalid", "op", op, "error", err)

		return fmt.Errorf("%w: %s: %w", ErrInvalidSession, op, err)
	}

	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
