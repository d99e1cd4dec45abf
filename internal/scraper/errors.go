package scraper

import (
	"errors"
	"fmt"
	"strings"
)

// Closed set of scrape failures. Each variant carries an explicit close
// policy: NeedsSessionClose reports whether the remote browser session must be
// force-closed before the error propagates. Errors that are scraper-visible to
// the target site close the session so the remote session budget is not
// burned; a connection failure has nothing to close.

// BrowserConnectionError means the remote session was never established. It is
// fatal to the request and never retried here.
type BrowserConnectionError struct {
	Err error
}

func (e *BrowserConnectionError) Error() string {
	return fmt.Sprintf("browser connection failed: %v", e.Err)
}

func (e *BrowserConnectionError) Unwrap() error { return e.Err }

func (e *BrowserConnectionError) NeedsSessionClose() bool { return false }

// CaptchaTimeoutError means the challenge was not passed after the attempt
// budget was exhausted.
type CaptchaTimeoutError struct {
	Attempts int
}

func (e *CaptchaTimeoutError) Error() string {
	return fmt.Sprintf("captcha not solved after %d attempts", e.Attempts)
}

func (e *CaptchaTimeoutError) NeedsSessionClose() bool { return true }

// ScraperBlockedError means the target site explicitly denied access. The
// session identity is burned; callers must not retry it.
type ScraperBlockedError struct {
	Marker string
}

func (e *ScraperBlockedError) Error() string {
	return fmt.Sprintf("target site blocked the session (marker %q)", e.Marker)
}

func (e *ScraperBlockedError) NeedsSessionClose() bool { return true }

// DataCaptureError covers navigation failure, incomplete capture within
// budget, and downstream parse failure.
type DataCaptureError struct {
	Phase   string
	Missing []string
	Err     error
}

func (e *DataCaptureError) Error() string {
	msg := "data capture failed"
	if e.Phase != "" {
		msg += " during " + e.Phase
	}
	if len(e.Missing) > 0 {
		msg += ": missing " + strings.Join(e.Missing, ", ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataCaptureError) Unwrap() error { return e.Err }

func (e *DataCaptureError) NeedsSessionClose() bool { return true }

// NeedsSessionClose resolves the close policy for any error coming out of a
// scrape. Unknown errors close the session: by then navigation has happened
// and the session is visible to the target.
func NeedsSessionClose(err error) bool {
	var policy interface{ NeedsSessionClose() bool }
	if errors.As(err, &policy) {
		return policy.NeedsSessionClose()
	}
	return true
}
