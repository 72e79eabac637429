package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/jfellner/k3seed/internal/config"
	"github.com/jfellner/k3seed/internal/errdefs"
	"github.com/jfellner/k3seed/internal/keymat"
	"github.com/jfellner/k3seed/internal/platform/s3"
	"github.com/jfellner/k3seed/internal/preflight"
)

// checkResult is one line of the diagnostic report.
type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "warn", or "fail"
	Detail string `json:"detail,omitempty"`
}

const (
	statusOK   = "ok"
	statusWarn = "warn"
	statusFail = "fail"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Doctor runs every precondition check without mutating anything and
// reports the results. Returns an error when any check fails so the exit
// code reflects machine state.
func Doctor(ctx context.Context, configPath string, jsonOutput bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	results := runChecks(ctx, cfg)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		printReport(results)
	}

	for _, r := range results {
		if r.Status == statusFail {
			return fmt.Errorf("%d of %d checks failed", countStatus(results, statusFail), len(results))
		}
	}
	return nil
}

func runChecks(ctx context.Context, cfg *config.Config) []checkResult {
	var results []checkResult
	add := func(name string, err error, warnOnly bool) {
		r := checkResult{Name: name, Status: statusOK}
		if err != nil {
			r.Status = statusFail
			if warnOnly {
				r.Status = statusWarn
			}
			r.Detail = err.Error()
		}
		results = append(results, r)
	}

	add("configuration complete", cfg.Validate(), false)
	add("running unprivileged", preflight.CheckNotRoot(), false)
	add("network reachable", preflight.CheckConnectivity(ctx, nil, cfg.ProbeURL), false)

	for _, tool := range []string{"k3s", "flux", "sops", "age"} {
		_, err := exec.LookPath(tool)
		// Absent tools get installed during bootstrap; their absence is
		// informational, not a failure.
		add("tool installed: "+tool, err, true)
	}

	results = append(results, checkKeyMaterial())
	results = append(results, checkBackupBucket(ctx, cfg))

	return results
}

// checkKeyMaterial reports key file state. A missing file is a warning
// (bootstrap will generate one); a file that yields no public key is a
// failure because every later encryption would fail too.
func checkKeyMaterial() checkResult {
	r := checkResult{Name: "key material", Status: statusOK}
	// Read-only use; no staging dir is ever needed here.
	keys := keymat.NewManager(os.TempDir())

	if _, err := os.Stat(keys.Path); err != nil {
		r.Status = statusWarn
		r.Detail = "no key file; bootstrap will generate one"
		return r
	}

	pub, err := keys.PublicKey()
	if err != nil {
		r.Status = statusFail
		var keyErr *errdefs.KeyExtractionError
		if errors.As(err, &keyErr) {
			r.Detail = fmt.Sprintf("key file %s has no public key marker", keys.Path)
		} else {
			r.Detail = err.Error()
		}
		return r
	}
	r.Detail = "recipient " + pub
	return r
}

func checkBackupBucket(ctx context.Context, cfg *config.Config) checkResult {
	r := checkResult{Name: "backup bucket accessible", Status: statusOK}

	if cfg.S3Endpoint == "" || cfg.S3Bucket == "" {
		r.Status = statusWarn
		r.Detail = "backup storage not configured"
		return r
	}

	client, err := s3.NewClient(ctx, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey)
	if err != nil {
		r.Status = statusFail
		r.Detail = err.Error()
		return r
	}
	exists, err := client.BucketExists(ctx, cfg.S3Bucket)
	switch {
	case err != nil:
		r.Status = statusFail
		r.Detail = err.Error()
	case !exists:
		r.Status = statusFail
		r.Detail = fmt.Sprintf("bucket %s does not exist at %s", cfg.S3Bucket, cfg.S3Endpoint)
	default:
		r.Detail = "bucket " + cfg.S3Bucket
	}
	return r
}

func printReport(results []checkResult) {
	styled := isatty.IsTerminal(os.Stdout.Fd())

	for _, r := range results {
		label := r.Status
		if styled {
			switch r.Status {
			case statusOK:
				label = okStyle.Render("ok")
			case statusWarn:
				label = warnStyle.Render("warn")
			case statusFail:
				label = failStyle.Render("fail")
			}
		}
		line := fmt.Sprintf("%-6s %s", label, r.Name)
		if r.Detail != "" {
			line += " (" + r.Detail + ")"
		}
		fmt.Println(line)
	}
}

func countStatus(results []checkResult, status string) int {
	n := 0
	for _, r := range results {
		if r.Status == status {
			n++
		}
	}
	return n
}
