package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"roastblur/internal/gemini"
	"roastblur/internal/types"
)

// apiGameHandler generates an image and quiz questions for a prompt.
func (app *App) apiGameHandler(c *gin.Context) {
	var req types.GameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: ErrorInvalidBody})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: ErrorPromptRequired})
		return
	}

	data, err := app.Generator.GenerateGameData(c.Request.Context(), req.Prompt)
	if err != nil {
		app.apiError(c, "Error in game API", err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// apiMemeHandler generates the roast meme for a finished quiz.
func (app *App) apiMemeHandler(c *gin.Context) {
	var req types.MemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: ErrorInvalidBody})
		return
	}
	if len(req.Questions) == 0 || len(req.Answers) == 0 {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: ErrorQuestionsAndAnswers})
		return
	}

	memeURL, err := app.Generator.GenerateRoastMeme(c.Request.Context(), req.Questions, req.Answers)
	if err != nil {
		app.apiError(c, "Error in meme API", err)
		return
	}
	c.JSON(http.StatusOK, types.MemeResponse{MemeURL: memeURL})
}

// apiWordCloudHandler aggregates the posted answers into word cloud entries.
func (app *App) apiWordCloudHandler(c *gin.Context) {
	var req types.WordCloudRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: ErrorInvalidBody})
		return
	}
	c.JSON(http.StatusOK, types.WordCloudResponse{Words: wordCloudWords(req.Answers)})
}

func (app *App) apiError(c *gin.Context, msg string, err error) {
	reqLogger(c.Request.Context()).Errorw(msg, "error", err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gemini.ErrMissingCredential):
		status = http.StatusServiceUnavailable
	case errors.Is(err, gemini.ErrEmptyPrompt):
		status = http.StatusBadRequest
	}
	text := err.Error()
	if text == "" {
		text = ErrorUnknown
	}
	c.JSON(status, types.ErrorResponse{Error: text})
}
