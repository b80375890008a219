package sim

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-testbench/transfer"
	"github.com/arloliu/go-testbench/visa"
)

// Handler answers a command. ok is false when the handler does not serve the
// command, a nil reply with ok set means the command has no reply.
type Handler func(command string) (reply []byte, ok bool)

// Device describes a simulated instrument.
type Device struct {
	// Name is the resource name, the device is reachable at "SIM::<Name>::INSTR".
	Name string
	// Identity is the reply to "*IDN?", no reply when empty.
	Identity string
	// Interface is the interface type reported by sessions, InterfaceSim when zero.
	Interface visa.InterfaceType
	// Replies maps queries to fixed replies, keys are matched case-insensitively.
	Replies map[string]string
	// Properties maps property queries to their initial values.
	Properties map[string]string
	// ErrorReply answers unknown queries when set.
	ErrorReply string
	// Handler is consulted before the tables.
	Handler Handler
	// Latency delays every reply.
	Latency time.Duration
	// ReplyTermination ends every reply, LF when empty.
	ReplyTermination transfer.Terminator
	// Offline makes Open fail with visa.ErrUnreachable.
	Offline bool
}

func (d Device) validate() error {
	if d.Name == "" || strings.Contains(d.Name, ":") || strings.ContainsAny(d.Name, " \t\r\n") {
		return fmt.Errorf("%w: simulated device name %q", transfer.ErrInvalidArgument, d.Name)
	}

	return nil
}

// device is the runtime state of a Device shared by its sessions.
type device struct {
	Device

	mu      sync.Mutex
	replies map[string]string
	props   map[string]string
	log     []string
}

func newDevice(d Device) *device {
	dev := &device{
		Device:  d,
		replies: make(map[string]string, len(d.Replies)),
		props:   make(map[string]string, len(d.Properties)),
	}
	for k, v := range d.Replies {
		dev.replies[normalize(k)] = v
	}
	for k, v := range d.Properties {
		dev.props[normalize(k)] = v
	}
	if dev.ReplyTermination == "" {
		dev.ReplyTermination = transfer.LF
	}
	if dev.Interface == visa.InterfaceNone {
		dev.Interface = visa.InterfaceSim
	}

	return dev
}

func normalize(command string) string {
	return strings.ToUpper(strings.TrimSpace(command))
}

// respond returns the reply to one command, nil for no reply.
func (d *device) respond(command string) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.log = append(d.log, command)

	if d.Handler != nil {
		if reply, ok := d.Handler(command); ok {
			return d.terminate(reply)
		}
	}

	key := normalize(command)
	if key == "*IDN?" && d.Identity != "" {
		return d.terminate([]byte(d.Identity))
	}
	if reply, ok := d.replies[key]; ok {
		return d.terminate([]byte(reply))
	}
	if value, ok := d.props[key]; ok {
		return d.terminate([]byte(value))
	}

	if head, arg, found := strings.Cut(strings.TrimSpace(command), " "); found {
		prop := normalize(head) + "?"
		if _, ok := d.props[prop]; ok {
			d.props[prop] = strings.TrimSpace(arg)
			return nil
		}
	}

	if strings.HasSuffix(key, "?") && d.ErrorReply != "" {
		return d.terminate([]byte(d.ErrorReply))
	}

	return nil
}

func (d *device) terminate(reply []byte) []byte {
	if reply == nil {
		return nil
	}
	out := make([]byte, 0, len(reply)+len(d.ReplyTermination))
	out = append(out, reply...)

	return append(out, d.ReplyTermination...)
}

func (d *device) property(query string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.props[normalize(query)]

	return v, ok
}

func (d *device) commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.log...)
}
