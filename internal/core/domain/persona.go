package domain

import "strings"

// Persona shapes how answers are voiced.
type Persona struct {
	Name         string
	Personality  string
	Tone         string
	EndingPhrase string
	Emoji        string
	Greeting     string
	NoResults    string
}

// DefaultPersona returns the built-in assistant persona.
func DefaultPersona() Persona {
	return Persona{
		Name:        "Ragtube",
		Personality: "friendly",
		Tone:        "casual",
		Emoji:       "🐾",
		Greeting:    "Here is what I found in the videos.",
		NoResults:   "Sorry, I couldn't find anything related to that in the ingested videos.",
	}
}

// Apply wraps a generated answer with the persona's greeting prefix, ending
// phrase and emoji suffix. It is pure: the same input always yields the
// same output.
func (p Persona) Apply(answer string) string {
	answer = strings.TrimSpace(answer)
	var b strings.Builder
	if p.Greeting != "" {
		b.WriteString(p.Greeting)
		b.WriteString("\n\n")
	}
	b.WriteString(answer)
	if p.EndingPhrase != "" && !strings.HasSuffix(answer, p.EndingPhrase) {
		b.WriteByte(' ')
		b.WriteString(p.EndingPhrase)
	}
	if p.Emoji != "" && !strings.HasSuffix(answer, p.Emoji) {
		b.WriteByte(' ')
		b.WriteString(p.Emoji)
	}
	return b.String()
}

// NoResultsAnswer returns the fixed reply used when retrieval finds nothing.
func (p Persona) NoResultsAnswer() string {
	if p.NoResults == "" {
		return DefaultPersona().NoResults
	}
	return p.NoResults
}
