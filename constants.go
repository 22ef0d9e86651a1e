package main

// Session configuration constants
const (
	SessionCookieName = "session_id"
)

// Route constants
const (
	RouteHome      = "/"
	RouteSearch    = "/search"
	RouteAnswer    = "/answer"
	RoutePlayAgain = "/play-again"
	RouteGameState = "/game-state"
	RouteWordCloud = "/word-cloud"
	RouteHealthz   = "/healthz"
	RouteAPIGame   = "/api/game"
	RouteAPIMeme   = "/api/meme"
	RouteAPICloud  = "/api/word-cloud"
)

// Error message constants
const (
	ErrorPromptRequired      = "Prompt is required."
	ErrorAnswerRequired      = "Please type an answer first."
	ErrorRequestInFlight     = "Hang on, we're still working on your last request."
	ErrorActionNotAllowed    = "That action isn't available right now."
	ErrorQuestionsAndAnswers = "Questions and answers are required."
	ErrorInvalidBody         = "Request body must be valid JSON."
	ErrorUnknown             = "An unknown error occurred."
)

const pageTitle = "Roastblur - Unblur the image, earn your roast"

// Blur and word cloud classes used by the templates, indexed by level/tier.
var (
	blurClasses = []string{"blur-none", "blur-sm", "blur-md", "blur-lg", "blur-xl", "blur-2xl", "blur-3xl"}
	tierClasses = []string{"", "word-tier-1", "word-tier-2", "word-tier-3", "word-tier-4", "word-tier-5"}
)

type contextKey string

// Context key constants
const (
	requestIDKey contextKey = "request_id"
)
