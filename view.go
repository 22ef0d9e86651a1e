package main

import (
	"html/template"
	"strings"

	"github.com/samber/lo"

	"roastblur/internal/game"
	"roastblur/internal/types"
	"roastblur/internal/wordcloud"
)

// gameView is what the templates see of a session.
type gameView struct {
	Phase          string
	Prompt         string
	ImageURL       template.URL
	MemeURL        template.URL
	Question       string
	QuestionNumber int
	TotalQuestions int
	BlurClass      string
	Error          string
	GeneratingMeme bool
	Busy           bool
	Answers        []string
}

func newGameView(s game.Session, busy bool) gameView {
	return gameView{
		Phase:          s.Phase.String(),
		Prompt:         s.Prompt,
		ImageURL:       safeImageURL(s.ImageURL),
		MemeURL:        safeImageURL(s.MemeURL),
		Question:       s.CurrentQuestion(),
		QuestionNumber: s.CurrentQuestionIndex + 1,
		TotalQuestions: len(s.Questions),
		BlurClass:      blurClass(s.BlurLevel()),
		Error:          s.Error,
		GeneratingMeme: s.GeneratingMeme,
		Busy:           busy,
		Answers:        s.Answers,
	}
}

// safeImageURL marks generated image URLs as trusted for html/template.
// Only base64 image data URLs and https URLs are accepted; anything else
// renders as no image.
func safeImageURL(u string) template.URL {
	if strings.HasPrefix(u, "data:image/") || strings.HasPrefix(u, "https://") {
		return template.URL(u)
	}
	return ""
}

func blurClass(level int) string {
	if level < 0 || level >= len(blurClasses) {
		return blurClasses[len(blurClasses)-1]
	}
	return blurClasses[level]
}

func tierClass(tier int) string {
	if tier < 1 || tier >= len(tierClasses) {
		return tierClasses[1]
	}
	return tierClasses[tier]
}

// wordCloudWords aggregates answers into the word cloud DTO.
func wordCloudWords(answers []string) []types.WordCloudWord {
	return lo.Map(wordcloud.Aggregate(answers), func(e wordcloud.WordEntry, _ int) types.WordCloudWord {
		return types.WordCloudWord{Text: e.Text, Value: e.Value, Tier: wordcloud.Tier(e.Value)}
	})
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"tierClass": tierClass,
	}
}
