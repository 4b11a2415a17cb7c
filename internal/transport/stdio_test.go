package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestReceiveFrames(t *testing.T) {
	input := "{\"a\":1}\n\n   \r\n{\"b\":2}\r\n"
	tr := NewLines(strings.NewReader(input), io.Discard)
	ctx := context.Background()

	frame, err := tr.Receive(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(frame) != `{"a":1}` {
		t.Errorf("frame 1 = %q", frame)
	}

	frame, err = tr.Receive(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(frame) != `{"b":2}` {
		t.Errorf("frame 2 = %q", frame)
	}

	if _, err := tr.Receive(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestReceiveFrameTooLarge(t *testing.T) {
	big := strings.Repeat("x", MaxFrameSize+1) + "\n"
	tr := NewLines(strings.NewReader(big), io.Discard)
	if _, err := tr.Receive(context.Background()); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestReceiveCancelled(t *testing.T) {
	tr := NewLines(strings.NewReader("{}\n"), io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tr.Receive(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReceiveCancelledWhileBlocked(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	tr := NewLines(r, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := tr.Receive(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive did not return after cancellation")
	}
}

func TestReceiveErrorIsSticky(t *testing.T) {
	tr := NewLines(strings.NewReader("{}\n"), io.Discard)
	ctx := context.Background()
	if _, err := tr.Receive(ctx); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := tr.Receive(ctx); !errors.Is(err, io.EOF) {
			t.Errorf("call %d: expected io.EOF, got %v", i, err)
		}
	}
}

func TestSendAppendsNewline(t *testing.T) {
	var out bytes.Buffer
	tr := NewLines(strings.NewReader(""), &out)
	if err := tr.Send(context.Background(), []byte(`{"ok":true}`)); err != nil {
		t.Fatal(err)
	}
	if err := tr.Send(context.Background(), []byte(`{"ok":false}`)); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "{\"ok\":true}\n{\"ok\":false}\n" {
		t.Errorf("output = %q", got)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestSendWriteFailure(t *testing.T) {
	tr := NewLines(strings.NewReader(""), failingWriter{})
	if err := tr.Send(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("expected error from broken writer")
	}
}
