package types

type GameData struct {
	ImageURL  string   `json:"imageUrl"`
	Questions []string `json:"questions"`
}

type GameRequest struct {
	Prompt string `json:"prompt"`
}

type MemeRequest struct {
	Questions []string `json:"questions"`
	Answers   []string `json:"answers"`
}

type MemeResponse struct {
	MemeURL string `json:"memeUrl"`
}

type WordCloudRequest struct {
	Answers []string `json:"answers"`
}

type WordCloudWord struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
	Tier  int    `json:"tier"`
}

type WordCloudResponse struct {
	Words []WordCloudWord `json:"words"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
