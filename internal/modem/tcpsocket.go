package modem

import (
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/netutil"
)

// nonBlockingPollTimeout is how long a Recv will wait for a byte before
// reporting ErrWouldBlock; small enough that a tick-driven Poll never
// stalls noticeably.
const nonBlockingPollTimeout = time.Millisecond

// dialTimeout bounds ATDT's connect attempt. The engine has no async
// connect state machine (spec.md doesn't define one), so dialing blocks
// the single cooperative thread for at most this long — the same
// "bounded busy-wait" tradeoff spec.md §5 already accepts for legacy
// byte-based data phases.
const dialTimeout = 5 * time.Second

// TCPSocketOps is the default SocketOps backed by real TCP sockets.
type TCPSocketOps struct{}

// NewTCPSocketOps creates the default TCP-backed SocketOps.
func NewTCPSocketOps() TCPSocketOps { return TCPSocketOps{} }

// Dial implements SocketOps.
func (TCPSocketOps) Dial(hostPort string) (Socket, error) {
	conn, err := net.DialTimeout("tcp", hostPort, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &tcpSocket{conn: conn}, nil
}

// Listen implements SocketOps. The listener is wrapped in
// netutil.LimitListener(1): the modem only ever holds one unanswered
// pending call at a time (spec.md §4.9 "Listening, Pending"), so the
// socket layer enforces that instead of the modem rejecting extra
// accepts itself.
func (TCPSocketOps) Listen(port uint16) (Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	limited := netutil.LimitListener(ln, 1)
	return newTCPListener(limited), nil
}

type tcpSocket struct {
	conn net.Conn
}

func (s *tcpSocket) Send(data []byte) (int, error) {
	return s.conn.Write(data)
}

func (s *tcpSocket) Recv(buf []byte) (int, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(nonBlockingPollTimeout)); err != nil {
		return 0, err
	}
	n, err := s.conn.Read(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return n, ErrWouldBlock
		}
		return n, err
	}
	return n, nil
}

func (s *tcpSocket) Close() error { return s.conn.Close() }

// tcpListener turns a blocking net.Listener into a non-blocking one: a
// single background goroutine drives Accept and hands results over a
// channel, which tcpListener.Accept drains with a select/default.
type tcpListener struct {
	ln     net.Listener
	accept chan net.Conn
	errs   chan error
}

func newTCPListener(ln net.Listener) *tcpListener {
	l := &tcpListener{ln: ln, accept: make(chan net.Conn, 1), errs: make(chan error, 1)}
	go l.acceptLoop()
	return l
}

func (l *tcpListener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			l.errs <- err
			return
		}
		l.accept <- conn
	}
}

func (l *tcpListener) Accept() (Socket, error) {
	select {
	case conn := <-l.accept:
		return &tcpSocket{conn: conn}, nil
	case err := <-l.errs:
		return nil, err
	default:
		return nil, ErrWouldBlock
	}
}

func (l *tcpListener) Close() error { return l.ln.Close() }
