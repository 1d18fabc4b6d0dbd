package recipe

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound reports an unknown job ID.
	ErrJobNotFound = errors.New("job not found")
	// ErrRecipeNotFound reports an unknown recipe ID.
	ErrRecipeNotFound = errors.New("recipe not found")
	// ErrJobRunning rejects a retry while the job is still processing.
	ErrJobRunning = errors.New("job is already processing")
	// ErrNoRecipe marks a page where every extraction strategy came up empty.
	ErrNoRecipe = errors.New("no recipe found on page")
	// ErrQueueFull rejects a submission when the work queue has no room.
	ErrQueueFull = errors.New("queue full")
	// ErrInvalidURL rejects submissions that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid url")
	// ErrBlockedDomain rejects submissions whose host matches the blocklist.
	ErrBlockedDomain = errors.New("domain is blocked")
	// ErrTooManyURLs rejects bulk submissions over the batch cap.
	ErrTooManyURLs = errors.New("too many urls")
)

// NoRecipeMessage is stored verbatim on jobs that exhaust every strategy.
// Clients key off this string, keep it stable.
const NoRecipeMessage = "Could not extract recipe data"

// FetchError describes a page retrieval failure: transport errors, timeouts,
// non-2xx statuses, and interstitial pages served with a 200.
type FetchError struct {
	URL        string
	StatusCode int
	Reason     string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Reason != "":
		return fmt.Sprintf("fetch %s: status %d: %s", e.URL, e.StatusCode, e.Reason)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	case e.Reason != "":
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s failed", e.URL)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// UserMessage flattens an extraction failure into the short message stored on
// the job and shown to clients. Internal wrapping chains stay in logs.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNoRecipe) {
		return NoRecipeMessage
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	return err.Error()
}
