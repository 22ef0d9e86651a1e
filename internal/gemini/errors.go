package gemini

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned by every call when the client was
	// built without an API key.
	ErrMissingCredential = errors.New("GEMINI_API_KEY or API_KEY environment variable not set")
	ErrEmptyPrompt       = errors.New("prompt cannot be empty")
	ErrNoImage           = errors.New("image generation returned no image")
	ErrNoQuestions       = errors.New("question generation did not return a non-empty array of strings")
	ErrNoRoast           = errors.New("roast generation returned no text")
)

// StatusError is a non-200 reply from the generative API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status error, got status %d with response body %s", e.Code, e.Body)
}
