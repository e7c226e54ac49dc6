package modem

import "testing"

func TestRingBufferInvariants(t *testing.T) {
	r := NewRingBuffer(4)

	if r.Size() != 0 || r.FreeSpace() != 4 || r.Full() {
		t.Fatalf("expected empty ring, got size=%d free=%d full=%v", r.Size(), r.FreeSpace(), r.Full())
	}

	for _, b := range []byte{1, 2, 3, 4} {
		if !r.Push(b) {
			t.Fatalf("push %d should have succeeded", b)
		}
	}
	if !r.Full() || r.Size() != 4 || r.FreeSpace() != 0 {
		t.Fatalf("expected full ring, got size=%d free=%d full=%v", r.Size(), r.FreeSpace(), r.Full())
	}
	if r.Push(5) {
		t.Fatal("push into a full ring should fail")
	}

	b, ok := r.Pop()
	if !ok || b != 1 {
		t.Fatalf("expected to pop 1, got %d ok=%v", b, ok)
	}
	if r.Full() || r.Size() != 3 || r.FreeSpace() != 1 {
		t.Fatalf("expected size=3 free=1, got size=%d free=%d", r.Size(), r.FreeSpace())
	}

	if !r.Push(5) {
		t.Fatal("push should succeed after freeing a slot")
	}

	got := r.PopBytes(10)
	if string(got) != string([]byte{2, 3, 4, 5}) {
		t.Fatalf("expected [2 3 4 5], got %v", got)
	}
	if r.Size() != 0 {
		t.Fatalf("expected empty ring after draining, got size=%d", r.Size())
	}
}

func TestRingBufferPeekDoesNotConsume(t *testing.T) {
	r := NewRingBuffer(8)
	r.PushBytes([]byte("hello"))

	peeked := r.Peek(3)
	if string(peeked) != "hel" {
		t.Fatalf("expected 'hel', got %q", peeked)
	}
	if r.Size() != 5 {
		t.Fatalf("peek must not consume, size should stay 5, got %d", r.Size())
	}

	n := r.Discard(2)
	if n != 2 || r.Size() != 3 {
		t.Fatalf("expected to discard 2 bytes leaving size=3, got n=%d size=%d", n, r.Size())
	}
	rest := r.PopBytes(10)
	if string(rest) != "llo" {
		t.Fatalf("expected remaining 'llo', got %q", rest)
	}
}

func TestRingBufferClear(t *testing.T) {
	r := NewRingBuffer(4)
	r.PushBytes([]byte{1, 2, 3, 4})
	r.Clear()
	if r.Size() != 0 || r.Full() {
		t.Fatalf("expected empty ring after Clear, got size=%d full=%v", r.Size(), r.Full())
	}
	if !r.Push(9) {
		t.Fatal("ring should accept pushes again after Clear")
	}
}
