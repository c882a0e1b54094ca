package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	internalerrors "github.com/rcourtman/energy-reports/internal/errors"
	"github.com/rcourtman/energy-reports/internal/netutil"
)

const maxSnapshotBytes = 10 << 20

// RemoteChart fetches a snapshot from a chart-render endpoint.
type RemoteChart struct {
	URL    string
	Client *http.Client // optional
}

// Snapshot downloads and sanity-checks the image.
func (r *RemoteChart) Snapshot(ctx context.Context) ([]byte, error) {
	if r.URL == "" {
		return nil, internalerrors.NotFound("capture", "", fmt.Errorf("no chart URL"))
	}
	client := r.Client
	if client == nil {
		client = netutil.NewHTTPClient(0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Accept", "image/png, image/jpeg")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, internalerrors.NotFound("capture", "", fmt.Errorf("chart %s not found", r.URL))
	case resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusServiceUnavailable:
		return nil, ErrNotReady
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("snapshot endpoint returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) > maxSnapshotBytes {
		return nil, fmt.Errorf("snapshot exceeds %d bytes", maxSnapshotBytes)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if format != "png" && format != "jpeg" {
		return nil, fmt.Errorf("unsupported snapshot format %q", format)
	}
	return data, nil
}
