package web

type SessionSummary struct {
	ID           string `json:"id"`
	JoinCode     string `json:"join_code"`
	Participants int    `json:"participants"`
	Revealed     bool   `json:"revealed"`
}

type PhaseItem struct {
	ID    string
	Label string
}

type ScaleItem struct {
	Value float64
	Label string
}

type SessionPageData struct {
	SessionID string
	JoinCode  string
	Name      string
	Phases    []PhaseItem
	Scale     []ScaleItem
}
