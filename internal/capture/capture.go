// Package capture snapshots rendered chart surfaces into raster images for
// report embedding. Capture never fails loudly: a surface that is missing,
// not ready, broken or slow yields nil and the report omits its chart.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	internalerrors "github.com/rcourtman/energy-reports/internal/errors"
	"github.com/rcourtman/energy-reports/internal/logging"
	"github.com/rcourtman/energy-reports/internal/metrics"
)

// DefaultTimeout bounds a capture when Options.Timeout is unset.
const DefaultTimeout = 5 * time.Second

// ErrNotReady is returned by a Ref whose surface has nothing to render yet.
var ErrNotReady = errors.New("chart surface not ready")

// Ref is an opaque handle to a rendered chart region.
type Ref interface {
	// Snapshot renders the region to PNG or JPEG bytes.
	Snapshot(ctx context.Context) ([]byte, error)
}

// Options tunes a single capture.
type Options struct {
	Timeout time.Duration
}

// Capturer turns a Ref into image bytes within a deadline.
type Capturer struct{}

// NewCapturer creates a capturer.
func NewCapturer() *Capturer {
	return &Capturer{}
}

type snapshotResult struct {
	data []byte
	err  error
}

// Capture returns the snapshot of ref, or nil when the region is absent,
// not ready, fails, or does not finish within opts.Timeout.
func (c *Capturer) Capture(ctx context.Context, ref Ref, opts Options) []byte {
	logger := logging.FromContext(ctx)
	if ref == nil {
		logger.Debug().Msg("No chart reference supplied; report will omit the chart")
		metrics.RecordCapture("missing")
		return nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan snapshotResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- snapshotResult{err: fmt.Errorf("snapshot panicked: %v", r)}
			}
		}()
		data, err := ref.Snapshot(ctx)
		done <- snapshotResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		err := internalerrors.RenderCapture("capture", ctx.Err())
		logger.Warn().Err(err).Dur("timeout", timeout).Msg("Chart capture did not finish in time")
		metrics.RecordCapture("timeout")
		return nil
	case res := <-done:
		if res.err == nil && len(res.data) == 0 {
			res.err = ErrNotReady
		}
		if res.err != nil {
			err := internalerrors.RenderCapture("capture", res.err)
			logger.Warn().Err(err).Msg("Chart capture failed")
			metrics.RecordCapture("failed")
			return nil
		}
		metrics.RecordCapture("success")
		return res.data
	}
}
