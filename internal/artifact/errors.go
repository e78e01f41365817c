package artifact

import (
	"errors"
	"fmt"
	"strings"
)

// ErrArtifactNotFound is wrapped by DiscoveryError.
var ErrArtifactNotFound = errors.New("could not find downloaded artifact")

// FetchError is returned when the tarball cannot be downloaded.
type FetchError struct {
	URL string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	Err error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// VerifyError is returned when the staged tarball fails its digest check.
type VerifyError struct {
	Path string
	Err  error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify %s: %v", e.Path, e.Err)
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// ExtractionError is returned when the extraction tool exits non-zero.
type ExtractionError struct {
	Archive  string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: rc=%d out=%s", e.Archive, e.ExitCode, strings.TrimSpace(e.Output))
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// DiscoveryError is returned when the extracted directory is missing or
// ambiguous.
type DiscoveryError struct {
	Pattern string
	Matches []string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("%v: %s matched %d entries %v", ErrArtifactNotFound, e.Pattern, len(e.Matches), e.Matches)
}

func (e *DiscoveryError) Unwrap() error {
	return ErrArtifactNotFound
}

// Kind names the failed step of err for logs: fetch, verify, extract,
// discover, or install for anything else.
func Kind(err error) string {
	var (
		fetchErr    *FetchError
		verifyErr   *VerifyError
		extractErr  *ExtractionError
		discoverErr *DiscoveryError
	)
	switch {
	case errors.As(err, &fetchErr):
		return "fetch"
	case errors.As(err, &verifyErr):
		return "verify"
	case errors.As(err, &extractErr):
		return "extract"
	case errors.As(err, &discoverErr):
		return "discover"
	default:
		return "install"
	}
}
