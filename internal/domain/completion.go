package domain

import "strings"

// Completion is a model response. Providers either expose the answer
// directly in Text or nest it under Candidates[].Content.Parts[].
type Completion struct {
	Text       string
	Candidates []Candidate
}

type Candidate struct {
	Content      *CandidateContent
	FinishReason string
}

type CandidateContent struct {
	Parts []ContentPart
}

type ContentPart struct {
	Text string
}

// AnswerText tries the direct shape first, then the nested one, and
// returns false when neither carries non-blank text.
func (c *Completion) AnswerText() (string, bool) {
	if c == nil {
		return "", false
	}
	if text := strings.TrimSpace(c.Text); text != "" {
		return text, true
	}
	for _, cand := range c.Candidates {
		if cand.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			return text, true
		}
	}
	return "", false
}
