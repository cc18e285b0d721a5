package telemetry

import (
	"context"
	"log"
	"time"

	"tg-otp-relay/backend/internal/telemetry/domain"
)

// emitTimeout caps one background emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is the pause between stopping the servers and shutting down
// the OTel providers so pending EmitAsync calls can land. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync hands event to emitter on a new goroutine and returns at once. The emit is
// detached from any request context and bounded by emitTimeout. Failures are logged
// with the event type and never reach the caller. Nil emitter or event is a no-op.
func EmitAsync(emitter EventEmitter, event *domain.Event) {
	if emitter == nil || event == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil {
			log.Printf("telemetry: emit %s from %s: %v", event.EventType, event.Source, err)
		}
	}()
}
