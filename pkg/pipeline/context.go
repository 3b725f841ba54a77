package pipeline

import (
	"errors"
	"strings"
)

// ErrMissingProfile is returned when a run is requested without any profile
// text. No stage runs in that case.
var ErrMissingProfile = errors.New("profile text is required")

// noResumeBlock stands in for the resume section when the candidate did not
// supply one, so the fitness stage degrades explicitly instead of failing
// or fabricating a resume.
const noResumeBlock = "No resume provided — evaluate generally."

// InputBundle is the raw text input for one pipeline run.
type InputBundle struct {
	Profile string
	Resume  string
}

// StageContext is the set of text artifacts available to a stage: the
// profile text, the resume block, and the final outputs of every
// lower-ordinal stage. It is built fresh per stage invocation and read-only
// once handed to the executor.
type StageContext struct {
	Profile     string
	ResumeBlock string
	Outputs     map[string]string
}

// BuildContext assembles the context for the next stage from the input
// bundle and the outputs of the stages completed so far. It never mutates
// its inputs; the outputs map is copied.
func BuildContext(in InputBundle, completed map[string]string) (*StageContext, error) {
	if strings.TrimSpace(in.Profile) == "" {
		return nil, ErrMissingProfile
	}

	resumeBlock := noResumeBlock
	if strings.TrimSpace(in.Resume) != "" {
		resumeBlock = "CANDIDATE RESUME:\n" + in.Resume
	}

	outputs := make(map[string]string, len(completed))
	for id, text := range completed {
		outputs[id] = text
	}

	return &StageContext{
		Profile:     in.Profile,
		ResumeBlock: resumeBlock,
		Outputs:     outputs,
	}, nil
}
