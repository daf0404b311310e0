package llm

// Turn is a single model response within a conversation: who spoke and what
// they said.
type Turn struct {
	Speaker string `json:"speaker" yaml:"speaker"`
	Text    string `json:"text" yaml:"text"`
}

// String renders the turn the way it is shown to the other participant,
// e.g. "llama2: Hello there".
func (t Turn) String() string {
	return t.Speaker + ": " + t.Text
}

// Transcript is the ordered record of a conversation. Insertion order is
// chronological order.
type Transcript []Turn

// Lines returns one "<speaker>: <text>" line per turn.
func (t Transcript) Lines() []string {
	lines := make([]string, 0, len(t))
	for _, turn := range t {
		lines = append(lines, turn.String())
	}
	return lines
}

// Speakers returns the speaker of each turn, in order.
func (t Transcript) Speakers() []string {
	speakers := make([]string, 0, len(t))
	for _, turn := range t {
		speakers = append(speakers, turn.Speaker)
	}
	return speakers
}
