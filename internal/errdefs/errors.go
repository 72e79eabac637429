// Package errdefs defines the error taxonomy shared by all bootstrap stages.
//
// Every error produced here is fatal to the run: the pipeline never retries
// in-process. Re-invoking the whole pipeline is the retry mechanism, which is
// safe because every stage is idempotent.
package errdefs

import (
	"fmt"
	"strings"
	"time"
)

// ConfigurationError reports every missing or empty required configuration
// name at once, not just the first one encountered.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// PrivilegeError indicates the process is running under an identity it must
// not use (the bootstrap refuses to run as root).
type PrivilegeError struct {
	UID int
}

func (e *PrivilegeError) Error() string {
	return fmt.Sprintf("refusing to run as root (uid %d); run as an unprivileged user with sudo access", e.UID)
}

// ConnectivityError indicates the pre-flight reachability probe failed.
type ConnectivityError struct {
	Endpoint string
	Err      error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("endpoint %s not reachable: %v", e.Endpoint, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// DownloadError indicates a release artifact could not be fetched, or the
// transfer produced an empty body.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download of %s failed: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// InstallError indicates a downloaded tool could not be installed into the
// system binary location.
type InstallError struct {
	Tool string
	Err  error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install of %s failed: %v", e.Tool, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// TimeoutError indicates a bounded wait exceeded its limit with the awaited
// condition never satisfied.
type TimeoutError struct {
	Condition string
	Limit     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s", e.Limit, e.Condition)
}

// KeyExtractionError indicates the public key marker line could not be found
// in the private key file.
type KeyExtractionError struct {
	Path string
}

func (e *KeyExtractionError) Error() string {
	return fmt.Sprintf("no public key marker found in %s; key file is malformed", e.Path)
}
