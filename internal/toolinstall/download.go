package toolinstall

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jfellner/k3seed/internal/errdefs"
	"github.com/jfellner/k3seed/internal/util/retry"
)

// Fetch downloads url into dest with the same bounded-timeout and retry
// behavior as tool artifact downloads. Used by the runtime installer for
// the k3s install script.
func (i *Installer) Fetch(ctx context.Context, url, dest string) error {
	return i.download(ctx, url, dest)
}

// download fetches url into dest. Transient failures are retried with
// backoff; a response that is not 200 or carries an empty body fails with a
// DownloadError.
func (i *Installer) download(ctx context.Context, url, dest string) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		resp, err := i.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("unexpected status %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return retry.Permanent(err)
			}
			return err
		}

		out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
		if err != nil {
			return retry.Permanent(err)
		}
		n, err := io.Copy(out, resp.Body)
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return retry.Permanent(fmt.Errorf("empty response body"))
		}
		return nil
	}

	err := retry.Do(ctx, op, retry.WithAttempts(3), retry.WithInitialDelay(2*time.Second))
	if err != nil {
		return &errdefs.DownloadError{URL: url, Err: err}
	}
	return nil
}
