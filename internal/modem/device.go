// Package modem implements the stream-oriented AT-command modem device
// (spec.md §4.9), grounded on
// include/fujinet/io/devices/modem_device.h (field layout, ring sizes,
// tick constants) and include/fujinet/io/devices/modem_device_diagnostics.h
// (the state surface exposed here via State()). Neither header's .cpp
// body survives in the reference tree, so the AT dispatch, dial/listen/
// answer state machine, and Telnet filter below are this repo's own,
// built directly against the header's fields and spec.md §4.9.
package modem

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/markjfisher/fujinet-nio-sub001/internal/core/model"
	"github.com/markjfisher/fujinet-nio-sub001/internal/pkg/logger"
)

const (
	hostRxBufSize = 4096 // modem -> host (toHost)
	netTxBufSize  = 1024 // host -> network when backpressured (toNet)

	ringIntervalTicks = 40      // ~2s at ~50ms/tick
	ringTimeoutTicks  = 40 * 30 // ~60s
	answerDelayTicks  = 20      // ~1s at ~50ms/tick
	plusGuardTicks    = 20      // ~1s guard around the "+++" escape

	maxCmdBufLen = 256
)

// Config selects the modem's fixed behavior at construction time.
type Config struct {
	SocketOps  SocketOps
	ListenPort uint16 // 0 disables listening
	AutoAnswer bool
	UseTelnet  bool
	Baud       uint32
}

// Device implements device.Device for the modem.
type Device struct {
	log logger.Logger
	ops SocketOps

	// on-wire host stream cursors
	hostWriteCursor uint32
	hostReadCursor  uint32
	netWriteCursor  uint32
	netReadCursor   uint32

	cmdMode       bool
	useTelnet     bool
	commandEcho   bool
	numericResult bool
	autoAnswer    bool

	modemBaud uint32
	baudLock  bool

	listenPort uint16
	listener   Listener
	socket     Socket
	pending    Socket

	tickNow          uint64
	lastRingTick     uint64
	pendingSinceTick uint64
	answerAtTick     uint64
	answered         bool

	plusCount        int
	escapeArmedAtTick uint64

	cmdBuf   []byte
	termType string

	toHost *RingBuffer
	toNet  *RingBuffer

	tnState      telnetState
	tnPendingCmd byte

	s0Rings int
}

// New creates a Device per cfg. If cfg.ListenPort is non-zero, listening
// starts immediately.
func New(cfg Config, log logger.Logger) *Device {
	d := &Device{
		log:           logger.OrNop(log),
		ops:           cfg.SocketOps,
		cmdMode:       true,
		useTelnet:     cfg.UseTelnet,
		commandEcho:   true,
		numericResult: false,
		autoAnswer:    cfg.AutoAnswer,
		modemBaud:     cfg.Baud,
		listenPort:    cfg.ListenPort,
		termType:      "DUMB",
		toHost:        NewRingBuffer(hostRxBufSize),
		toNet:         NewRingBuffer(netTxBufSize),
	}
	if d.modemBaud == 0 {
		d.modemBaud = 9600
	}
	if d.listenPort != 0 && d.ops != nil {
		ln, err := d.ops.Listen(d.listenPort)
		if err != nil {
			d.log.Warnf("modem: listen on %d: %v", d.listenPort, err)
		} else {
			d.listener = ln
		}
	}
	return d
}

func (d *Device) isConnected() bool { return d.socket != nil }

// Handle implements device.Device. Only Read and Write carry the host
// byte streams; everything else is Unsupported (AT commands ride inside
// the Write stream, per spec.md §4.9).
func (d *Device) Handle(req model.Request) model.Response {
	switch req.Type {
	case model.RequestWrite:
		return d.handleWrite(req)
	case model.RequestRead:
		return d.handleRead(req)
	default:
		return model.NewErrorResponse(req, model.StatusUnsupported)
	}
}

func (d *Device) handleWrite(req model.Request) model.Response {
	accepted := 0
	for _, b := range req.Payload {
		if d.cmdMode {
			d.processCommandByte(b)
		} else if !d.processDataByte(b) {
			break
		}
		d.hostWriteCursor++
		accepted++
	}
	payload := []byte{byte(accepted), byte(accepted >> 8), byte(accepted >> 16), byte(accepted >> 24)}
	return model.Response{ID: req.ID, DeviceID: req.DeviceID, Status: model.StatusOk, Command: req.Command, Payload: payload}
}

func (d *Device) handleRead(req model.Request) model.Response {
	length := 4096
	if len(req.Params) > 0 && req.Params[0] > 0 {
		length = int(req.Params[0])
	}
	data := d.toHost.PopBytes(length)
	d.hostReadCursor += uint32(len(data))
	return model.Response{ID: req.ID, DeviceID: req.DeviceID, Status: model.StatusOk, Command: req.Command, Payload: data}
}

// processCommandByte accumulates a line and dispatches it on CR/LF.
func (d *Device) processCommandByte(b byte) {
	if d.commandEcho {
		d.toHost.Push(b)
	}
	switch b {
	case '\r', '\n':
		if len(d.cmdBuf) > 0 {
			line := string(d.cmdBuf)
			d.cmdBuf = d.cmdBuf[:0]
			d.dispatchATLine(line)
		}
	default:
		if len(d.cmdBuf) < maxCmdBufLen {
			d.cmdBuf = append(d.cmdBuf, b)
		}
	}
}

// processDataByte tracks the "+++" escape sequence and forwards the byte
// into toNet (telnet-escaped if enabled), returning false if toNet has
// no room (back-pressure; the caller stops consuming more host bytes).
func (d *Device) processDataByte(b byte) bool {
	if b == '+' {
		if d.plusCount < 3 {
			d.plusCount++
			if d.plusCount == 3 {
				d.escapeArmedAtTick = d.tickNow + plusGuardTicks
			}
		}
	} else {
		d.plusCount = 0
		d.escapeArmedAtTick = 0
	}

	out := []byte{b}
	if d.useTelnet {
		out = telnetEscapeOutgoing(out)
	}
	if d.toNet.FreeSpace() < len(out) {
		return false
	}
	d.toNet.PushBytes(out)
	return true
}

// dispatchATLine parses and executes one AT command line.
func (d *Device) dispatchATLine(line string) {
	upper := strings.ToUpper(strings.TrimSpace(line))
	if !strings.HasPrefix(upper, "AT") {
		d.emitResultError()
		return
	}
	rest := upper[2:]
	origRest := strings.TrimSpace(line)
	if len(origRest) >= 2 {
		origRest = origRest[2:]
	} else {
		origRest = ""
	}

	switch {
	case rest == "":
		d.emitResultOK()
	case rest == "Z":
		d.resetToIdle()
		d.emitResultOK()
	case strings.HasPrefix(rest, "DT"):
		d.dialHostPort(strings.TrimSpace(origRest[min(2, len(origRest)):]))
	case rest == "H":
		d.hangUp()
		d.emitResultOK()
	case rest == "A":
		d.answerPending()
	case rest == "O":
		if d.isConnected() {
			d.cmdMode = false
		} else {
			d.emitResultError()
		}
	case rest == "E0":
		d.commandEcho = false
		d.emitResultOK()
	case rest == "E1":
		d.commandEcho = true
		d.emitResultOK()
	case rest == "V0":
		d.numericResult = true
		d.emitResultOK()
	case rest == "V1":
		d.numericResult = false
		d.emitResultOK()
	case rest == "S0?":
		d.emitLine(strconv.Itoa(d.s0Rings))
	case strings.HasPrefix(rest, "S0="):
		n, err := strconv.Atoi(rest[3:])
		if err != nil || n < 0 {
			d.emitResultError()
			return
		}
		d.s0Rings = n
		d.autoAnswer = n > 0
		d.emitResultOK()
	default:
		d.emitResultError()
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (d *Device) resetToIdle() {
	d.closeNetwork()
	d.cmdMode = true
	d.toHost.Clear()
	d.toNet.Clear()
	d.hostWriteCursor = 0
	d.hostReadCursor = 0
	d.netWriteCursor = 0
	d.netReadCursor = 0
	d.plusCount = 0
	d.escapeArmedAtTick = 0
	d.cmdBuf = d.cmdBuf[:0]
	d.tnState = telnetNormal
}

func (d *Device) closeNetwork() {
	if d.socket != nil {
		d.socket.Close()
		d.socket = nil
	}
}

func (d *Device) hangUp() {
	d.closeNetwork()
	d.cmdMode = true
}

func (d *Device) dialHostPort(hostPort string) {
	if d.ops == nil || hostPort == "" {
		d.emitResultNoCarrier()
		return
	}
	sock, err := d.ops.Dial(hostPort)
	if err != nil {
		d.log.Warnf("modem: dial %q: %v", hostPort, err)
		d.emitResultNoCarrier()
		return
	}
	d.socket = sock
	d.cmdMode = false
	d.tnState = telnetNormal
	d.emitResultConnect()
}

func (d *Device) answerPending() {
	if d.pending == nil {
		d.emitResultError()
		return
	}
	d.socket = d.pending
	d.pending = nil
	d.cmdMode = false
	d.tnState = telnetNormal
	d.emitResultConnect()
}

// Poll implements device.Device.
func (d *Device) Poll() {
	d.tickNow++
	d.pollEscape()
	d.pollListen()
	d.pollTcpRx()
	d.pollTcpTx()
}

func (d *Device) pollEscape() {
	if d.escapeArmedAtTick != 0 && d.tickNow >= d.escapeArmedAtTick {
		d.cmdMode = true
		d.escapeArmedAtTick = 0
		d.plusCount = 0
	}
}

func (d *Device) pollListen() {
	if d.listener == nil {
		return
	}

	if d.pending == nil && !d.isConnected() {
		sock, err := d.listener.Accept()
		if err == nil {
			d.pending = sock
			d.pendingSinceTick = d.tickNow
			d.lastRingTick = d.tickNow
			d.answered = false
			if d.autoAnswer {
				d.answerAtTick = d.tickNow + answerDelayTicks
			} else {
				d.answerAtTick = 0
			}
		}
	}

	if d.pending == nil {
		return
	}

	if d.tickNow-d.pendingSinceTick >= ringTimeoutTicks {
		d.pending.Close()
		d.pending = nil
		d.emitResultNoCarrier()
		return
	}

	if d.tickNow-d.lastRingTick >= ringIntervalTicks {
		d.lastRingTick = d.tickNow
		d.emitResultRing()
	}

	if d.autoAnswer && !d.answered && d.answerAtTick != 0 && d.tickNow >= d.answerAtTick {
		d.answered = true
		d.answerPending()
	}
}

func (d *Device) pollTcpRx() {
	if !d.isConnected() {
		return
	}
	for {
		free := d.toHost.FreeSpace()
		if free == 0 {
			return
		}
		bufLen := free
		if bufLen > 512 {
			bufLen = 512
		}
		buf := make([]byte, bufLen)
		n, err := d.socket.Recv(buf)
		if err == ErrWouldBlock {
			return
		}
		if err != nil {
			d.disconnectWithNoCarrier()
			return
		}
		if n == 0 {
			return
		}
		d.netReadCursor += uint32(n)
		d.toHost.PushBytes(d.telnetFilterIncoming(buf[:n]))
	}
}

func (d *Device) pollTcpTx() {
	if !d.isConnected() {
		return
	}
	for {
		chunk := d.toNet.Peek(4096)
		if len(chunk) == 0 {
			return
		}
		n, err := d.socket.Send(chunk)
		if err == ErrWouldBlock {
			return
		}
		if err != nil {
			d.disconnectWithNoCarrier()
			return
		}
		d.toNet.Discard(n)
		d.netWriteCursor += uint32(n)
		if n < len(chunk) {
			return
		}
	}
}

func (d *Device) disconnectWithNoCarrier() {
	d.closeNetwork()
	d.cmdMode = true
	d.emitResultNoCarrier()
}

// --- result-code emission ---

func (d *Device) emitLine(s string) {
	d.toHost.PushBytes([]byte(s))
	d.toHost.PushBytes([]byte{'\r', '\n'})
}

func (d *Device) emitResultOK() {
	if d.numericResult {
		d.emitLine("0")
	} else {
		d.emitLine("OK")
	}
}

func (d *Device) emitResultError() {
	if d.numericResult {
		d.emitLine("4")
	} else {
		d.emitLine("ERROR")
	}
}

func (d *Device) emitResultNoCarrier() {
	if d.numericResult {
		d.emitLine("3")
	} else {
		d.emitLine("NO CARRIER")
	}
}

func (d *Device) emitResultRing() {
	if d.numericResult {
		d.emitLine("2")
	} else {
		d.emitLine("RING")
	}
}

func (d *Device) emitResultConnect() {
	if d.numericResult {
		d.emitLine("1")
	} else {
		d.emitLine(fmt.Sprintf("CONNECT %d", d.modemBaud))
	}
}

// SetBaud sets the informational baud rate, subject to baudLock. Only
// the permitted Hayes rates are accepted.
func (d *Device) SetBaud(baud uint32) {
	if d.baudLock {
		return
	}
	switch baud {
	case 300, 600, 1200, 1800, 2400, 4800, 9600, 19200:
		d.modemBaud = baud
	}
}

// SetBaudLock enables or disables further SetBaud calls.
func (d *Device) SetBaudLock(enable bool) { d.baudLock = enable }

// State is the diagnostic snapshot, grounded on
// ModemDeviceDiagnosticsAccessor::StateRow.
type State struct {
	CmdMode         bool
	Connected       bool
	Listening       bool
	Pending         bool
	AutoAnswer      bool
	Telnet          bool
	Echo            bool
	Numeric         bool
	BaudLock        bool
	ListenPort      uint16
	Baud            uint32
	HostWriteCursor uint32
	HostReadCursor  uint32
	HostRxAvail     uint32
}

// State reports the modem's current diagnostic snapshot.
func (d *Device) State() State {
	return State{
		CmdMode:         d.cmdMode,
		Connected:       d.isConnected(),
		Listening:       d.listener != nil,
		Pending:         d.pending != nil,
		AutoAnswer:      d.autoAnswer,
		Telnet:          d.useTelnet,
		Echo:            d.commandEcho,
		Numeric:         d.numericResult,
		BaudLock:        d.baudLock,
		ListenPort:      d.listenPort,
		Baud:            d.modemBaud,
		HostWriteCursor: d.hostWriteCursor,
		HostReadCursor:  d.hostReadCursor,
		HostRxAvail:     uint32(d.toHost.Size()),
	}
}

// InjectBytes feeds bytes directly to the AT parser, for diagnostics use
// without going through a transport (ModemDeviceDiagnosticsAccessor::inject_bytes).
func (d *Device) InjectBytes(s string) {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if d.cmdMode {
			d.processCommandByte(b)
		} else {
			d.processDataByte(b)
		}
	}
}

// DrainOutput pops up to maxBytes from toHost, for diagnostics use
// (ModemDeviceDiagnosticsAccessor::drain_output).
func (d *Device) DrainOutput(maxBytes int) string {
	return string(d.toHost.PopBytes(maxBytes))
}
