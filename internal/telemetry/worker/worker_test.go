package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
)

// sliceReader serves queued messages, then cancels the run.
type sliceReader struct {
	msgs   []kafka.Message
	errs   []error
	cancel context.CancelFunc
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

type recordingPusher struct {
	mu    sync.Mutex
	lines []string
	fail  map[string]bool
}

func (p *recordingPusher) PushEventJSON(_ context.Context, raw []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[string(raw)] {
		return errors.New("loki 500")
	}
	p.lines = append(p.lines, string(raw))
	return nil
}

func TestRun_ForwardsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &sliceReader{
		msgs: []kafka.Message{
			{Value: []byte(`{"eventType":"otp_issued"}`)},
			{Value: []byte(`bad`)},
			{Value: []byte(`{"eventType":"otp_verified"}`)},
		},
		cancel: cancel,
	}
	p := &recordingPusher{fail: map[string]bool{"bad": true}}

	pushed := Run(ctx, r, p)

	if pushed != 2 {
		t.Errorf("pushed = %d, want 2", pushed)
	}
	if len(p.lines) != 2 || p.lines[1] != `{"eventType":"otp_verified"}` {
		t.Errorf("lines = %v", p.lines)
	}
}

func TestRun_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &sliceReader{errs: []error{context.Canceled}, cancel: cancel}
	if got := Run(ctx, r, &recordingPusher{}); got != 0 {
		t.Errorf("pushed = %d, want 0", got)
	}
}
