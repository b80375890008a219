package usbtmc

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// USBTMC bulk message ids.
const (
	msgDevDepMsgOut        byte = 1
	msgRequestDevDepMsgIn  byte = 2
	headerSize                  = 12
	attrEOM                byte = 0x01
	attrTermCharEnabled    byte = 0x02
	defaultMaxTransferSize      = 1 << 20
)

// ErrProtocol indicates a malformed bulk-in header.
var ErrProtocol = errors.New("usbtmc protocol error")

// tagger generates the bTag sequence 1..255.
type tagger struct {
	last byte
}

func (t *tagger) next() byte {
	t.last++
	if t.last == 0 {
		t.last = 1
	}

	return t.last
}

// outMessage frames data as one DEV_DEP_MSG_OUT transfer padded to a 4 byte boundary.
func outMessage(tag byte, data []byte, eom bool) []byte {
	size := headerSize + len(data)
	padded := (size + 3) &^ 3

	buf := make([]byte, padded)
	buf[0] = msgDevDepMsgOut
	buf[1] = tag
	buf[2] = ^tag
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(data))) //nolint:gosec
	if eom {
		buf[8] = attrEOM
	}
	copy(buf[headerSize:], data)

	return buf
}

// inRequest builds a REQUEST_DEV_DEP_MSG_IN header asking for up to maxSize bytes.
// termChar is used when termEnabled is set and the device supports it.
func inRequest(tag byte, maxSize int, termChar byte, termEnabled bool) []byte {
	buf := make([]byte, headerSize)
	buf[0] = msgRequestDevDepMsgIn
	buf[1] = tag
	buf[2] = ^tag
	binary.LittleEndian.PutUint32(buf[4:8], uint32(maxSize)) //nolint:gosec
	if termEnabled {
		buf[8] = attrTermCharEnabled
		buf[9] = termChar
	}

	return buf
}

// parseInHeader validates a DEV_DEP_MSG_IN header and returns the transfer size and the EOM flag.
func parseInHeader(buf []byte, tag byte) (int, bool, error) {
	if len(buf) < headerSize {
		return 0, false, fmt.Errorf("%w: short bulk-in header of %d bytes", ErrProtocol, len(buf))
	}
	if buf[0] != msgRequestDevDepMsgIn {
		return 0, false, fmt.Errorf("%w: unexpected MsgID %d", ErrProtocol, buf[0])
	}
	if buf[1] != tag || buf[2] != ^tag {
		return 0, false, fmt.Errorf("%w: bTag mismatch, expect %d got %d", ErrProtocol, tag, buf[1])
	}

	return int(binary.LittleEndian.Uint32(buf[4:8])), buf[8]&attrEOM != 0, nil
}
