package tui

// explainedMsg is sent when an explanation request finishes.
type explainedMsg struct {
	id   string
	text string
	err  error
}
