package domain

import "strings"

// ScriptSeparator joins the narration sections of a script.
const ScriptSeparator = "\n\n"

// Story is one selected headline with its narration.
type Story struct {
	Headline string `json:"headline"`
	Script   string `json:"script"`
}

// ScriptDocument is the structured output of the script stage.
//
// FullScript is the only text fed to speech synthesis and must always equal
// ComposeFullScript() for the document's current sections.
type ScriptDocument struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Stories     []Story  `json:"stories"`
	IntroScript string   `json:"intro_script"`
	OutroScript string   `json:"outro_script"`
	FullScript  string   `json:"full_script"`
	Date        string   `json:"date"`
}

// ComposeFullScript joins intro, every story script in order, and outro.
func (d ScriptDocument) ComposeFullScript() string {
	parts := make([]string, 0, len(d.Stories)+2)
	parts = append(parts, d.IntroScript)
	for _, story := range d.Stories {
		parts = append(parts, story.Script)
	}
	parts = append(parts, d.OutroScript)
	return strings.Join(parts, ScriptSeparator)
}

// Seal recomputes FullScript from the sections.
func (d *ScriptDocument) Seal() {
	d.FullScript = d.ComposeFullScript()
}

// WordCount reports the narration length in words.
func (d ScriptDocument) WordCount() int {
	return len(strings.Fields(d.FullScript))
}

// TitleOr returns the document title, or fallback when the document has none.
func (d *ScriptDocument) TitleOr(fallback string) string {
	if d == nil || strings.TrimSpace(d.Title) == "" {
		return fallback
	}
	return d.Title
}
