package runtime

import (
	"io"
	"net"
	"thzgateway/pkg/runtime/constant"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"k8s.io/klog/v2"
)

var _ Messenger = (*TcpClient)(nil)
var _ Messenger = (*SerialClient)(nil)

var StopBitsToStopBits = map[constant.StopBits]serial.StopBits{
	constant.OneStopBit:           serial.OneStopBit,
	constant.OnePointFiveStopBits: serial.OnePointFiveStopBits,
	constant.TwoStopBits:          serial.TwoStopBits,
}

var ParityToParity = map[constant.Parity]serial.Parity{
	constant.NoParity:    serial.NoParity,
	constant.OddParity:   serial.OddParity,
	constant.EvenParity:  serial.EvenParity,
	constant.MarkParity:  serial.MarkParity,
	constant.SpaceParity: serial.SpaceParity,
}

// Messenger is the raw byte stream under one device session. It carries
// no framing knowledge; the session state machine owns the protocol.
type Messenger interface {
	Send(request []byte) error
	// ReceiveAtLeast blocks until at least min bytes arrived or the
	// deadline passed, returning the number of bytes read into response.
	ReceiveAtLeast(response []byte, min int, deadline time.Time) (int, error)
	// Alive reports whether the connection still looks usable without
	// consuming pending input.
	Alive() bool
	// DiscardInput drops whatever unread bytes the transport buffered.
	DiscardInput()
	Available() bool
	Close()
}

// Connector re-dials the transport of a session. Reconnects replace the
// messenger wholesale, never mutate it.
type Connector func() (Messenger, error)

type TcpClient struct {
	Tunnel net.Conn
}

// NewTcpMessenger dials the heat pump's ethernet service adapter.
// Keepalive tuning failures are logged, not fatal.
func NewTcpMessenger(address string, timeout time.Duration) (Messenger, error) {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", address)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := configureKeepAlive(tcp); err != nil {
			klog.V(2).InfoS("Failed to configure tcp keepalive", "address", address, "err", err)
		}
	}
	return &TcpClient{Tunnel: conn}, nil
}

func (tc *TcpClient) Send(request []byte) error {
	if _, err := tc.Tunnel.Write(request); err != nil {
		klog.V(2).InfoS("Failed to send bytes", "err", err)
		return ErrBadConn
	}
	klog.V(5).InfoS("Succeed to send bytes", "bytes", request)
	return nil
}

func (tc *TcpClient) ReceiveAtLeast(response []byte, min int, deadline time.Time) (int, error) {
	if err := tc.Tunnel.SetReadDeadline(deadline); err != nil {
		return 0, ErrBadConn
	}
	n, err := io.ReadAtLeast(tc.Tunnel, response, min)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return n, ErrResponseTimeout
		}
		klog.V(2).InfoS("Failed to receive bytes", "err", err)
		return n, ErrBadConn
	}
	klog.V(5).InfoS("Succeed to receive bytes", "bytes", response[:n])
	return n, nil
}

func (tc *TcpClient) Alive() bool {
	if tc.Tunnel == nil {
		return false
	}
	return tcpAlive(tc.Tunnel)
}

func (tc *TcpClient) DiscardInput() {
	scratch := make([]byte, 64)
	_ = tc.Tunnel.SetReadDeadline(time.Now().Add(time.Millisecond))
	for {
		n, err := tc.Tunnel.Read(scratch)
		if n == 0 || err != nil {
			return
		}
	}
}

func (tc *TcpClient) Available() bool {
	return tc.Tunnel != nil
}

func (tc *TcpClient) Close() {
	_ = tc.Tunnel.Close()
}

type SerialClient struct {
	Port   serial.Port
	closed bool
}

func NewSerialMessenger(location string, mode *serial.Mode) (Messenger, error) {
	port, err := serial.Open(location, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", location)
	}
	return &SerialClient{Port: port}, nil
}

func (sc *SerialClient) Send(request []byte) error {
	if _, err := sc.Port.Write(request); err != nil {
		klog.V(2).InfoS("Failed to write bytes to serial port", "err", err)
		return ErrBadConn
	}
	klog.V(5).InfoS("Succeed to write bytes to serial port", "bytes", request)
	return nil
}

func (sc *SerialClient) ReceiveAtLeast(response []byte, min int, deadline time.Time) (int, error) {
	read := 0
	for read < min {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return read, ErrResponseTimeout
		}
		if err := sc.Port.SetReadTimeout(remaining); err != nil {
			return read, ErrBadConn
		}
		n, err := sc.Port.Read(response[read:])
		if err != nil {
			klog.V(2).InfoS("Failed to read bytes from serial port", "err", err)
			return read, ErrBadConn
		}
		// The serial library reports a timeout as a zero-length read.
		if n == 0 {
			return read, ErrResponseTimeout
		}
		read += n
	}
	klog.V(5).InfoS("Succeed to read bytes from serial port", "bytes", response[:read])
	return read, nil
}

func (sc *SerialClient) Alive() bool {
	return sc.Port != nil && !sc.closed
}

func (sc *SerialClient) DiscardInput() {
	if err := sc.Port.ResetInputBuffer(); err != nil {
		klog.V(3).InfoS("Failed to reset serial input buffer", "err", err)
	}
}

func (sc *SerialClient) Available() bool {
	return sc.Port != nil
}

func (sc *SerialClient) Close() {
	_ = sc.Port.Close()
	sc.closed = true
}
