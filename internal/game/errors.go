package game

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

// Rejections. None of them touch the session.
var (
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
	ErrEmptyAnswer = errors.New("answer cannot be empty")
	ErrBusy        = errors.New("a request is already in progress")
	ErrWrongPhase  = errors.New("action not allowed in the current phase")
)

// Set on sessions whose outcome cannot be trusted.
var (
	ErrNoQuestions = errors.New("no questions were generated")
	ErrNoImage     = errors.New("no image was generated")
	ErrNoMeme      = errors.New("no meme was generated")
	ErrInterrupted = errors.New("generation was interrupted, please try again")
)

// Message turns a collaborator failure into the text shown to the player.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if msg == "" {
		return "An unknown error occurred."
	}
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}
