package speech

import "context"

// Recognizer turns an audio artifact into plain text using a shared Model.
type Recognizer struct {
	model *Model
}

// NewRecognizer binds a Recognizer to a loaded model.
func NewRecognizer(model *Model) *Recognizer {
	return &Recognizer{model: model}
}

// Transcribe returns the text spoken in the audio at audioPath.
func (r *Recognizer) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return r.model.Infer(ctx, audioPath)
}
