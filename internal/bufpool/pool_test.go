package bufpool

import "testing"

func TestGetReturnsEmptyBuffer(t *testing.T) {
	buf := Get()
	defer Put(buf)

	if buf.Len() != 0 {
		t.Fatalf("expected empty buffer, got len %d", buf.Len())
	}
}

func TestPutResetsForReuse(t *testing.T) {
	buf := Get()
	buf.WriteString("hello")
	Put(buf)

	buf2 := Get()
	defer Put(buf2)
	if buf2.Len() != 0 {
		t.Fatalf("expected reused buffer reset to len 0, got %d", buf2.Len())
	}
}

func TestWriteAccumulates(t *testing.T) {
	buf := Get()
	defer Put(buf)

	buf.WriteString("abc")
	buf.Write([]byte("def"))

	if got := buf.String(); got != "abcdef" {
		t.Fatalf("got %q, want %q", got, "abcdef")
	}
}
