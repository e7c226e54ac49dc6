package channel

import "sync"

// Memory is an in-memory byte pipe implementing Channel, used by tests and
// by the CLI's loopback diagnostics mode. Bytes written with Feed become
// available to Read/Available; bytes written with Write accumulate in Sent
// for inspection.
type Memory struct {
	mu   sync.Mutex
	in   []byte
	Sent []byte
}

// NewMemory creates an empty Memory channel.
func NewMemory() *Memory {
	return &Memory{}
}

// Feed appends bytes to the channel's read side, as if the remote peer had
// transmitted them.
func (m *Memory) Feed(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.in = append(m.in, b...)
}

// Available implements Channel.
func (m *Memory) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.in) > 0
}

// Read implements Channel.
func (m *Memory) Read(buf []byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := copy(buf, m.in)
	m.in = m.in[n:]
	return n
}

// Write implements Channel.
func (m *Memory) Write(buf []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, buf...)
}

// TakeSent returns and clears everything written so far.
func (m *Memory) TakeSent() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.Sent
	m.Sent = nil
	return out
}
