package provider

// Capability is one remote operation of the pipeline.
type Capability int

const (
	Transcription Capability = iota
	Translation
	Synthesis
)

func (c Capability) String() string {
	switch c {
	case Transcription:
		return "transcription"
	case Translation:
		return "translation"
	case Synthesis:
		return "synthesis"
	}
	return "unknown"
}

// Model represents a model with display metadata
type Model struct {
	ID          string // e.g. "whisper-1", "gpt-4o-mini"
	Name        string
	Description string
	Capability  Capability
	// Voices is only set for synthesis models.
	Voices []string
}

// ModelsWith filters p's models by capability.
func ModelsWith(p Provider, c Capability) []Model {
	var out []Model
	for _, m := range p.Models() {
		if m.Capability == c {
			out = append(out, m)
		}
	}
	return out
}

// FindModel looks up a model by ID across p's models.
func FindModel(p Provider, id string) (Model, bool) {
	for _, m := range p.Models() {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// SupportsVoice reports whether voice is valid for this model. Models without
// a voice list accept any voice.
func (m Model) SupportsVoice(voice string) bool {
	if len(m.Voices) == 0 {
		return true
	}
	for _, v := range m.Voices {
		if v == voice {
			return true
		}
	}
	return false
}
