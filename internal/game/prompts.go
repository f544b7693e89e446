package game

import (
	"github.com/google/uuid"
	"github.com/kiliankoe/botornot/internal/broadcast"
)

// AddPrompt stores a prompt suggestion. A prompt whose normalized text
// already exists accumulates the new submitter and bumps its count
// instead of creating a duplicate entry. Shadowbanned submitters are
// stored like everyone else and receive an ordinary acknowledgement;
// the filtering happens purely on the host-facing read path.
func (s *Session) AddPrompt(text, imageRef string, source PromptSource, submitterID string) (Prompt, error) {
	norm := normalizeText(text)
	if norm == "" && imageRef == "" {
		return Prompt{}, validationErr("empty_prompt", "prompt needs text or an image")
	}

	if norm != "" {
		for _, existing := range s.store.Prompts() {
			if normalizeText(existing.Text) != norm {
				continue
			}
			s.store.MutatePrompt(existing.ID, func(p *Prompt) {
				p.SubmissionCount++
				if submitterID != "" && !containsString(p.SubmitterIDs, submitterID) {
					p.SubmitterIDs = append(p.SubmitterIDs, submitterID)
				}
			})
			s.store.BumpVersion()
			s.publishPrompts()
			merged, _ := s.store.Prompt(existing.ID)
			return merged, nil
		}
	}

	p := &Prompt{
		ID:              uuid.NewString(),
		Text:            text,
		ImageRef:        imageRef,
		Source:          source,
		SubmissionCount: 1,
		CreatedAt:       s.now(),
	}
	if submitterID != "" {
		p.SubmitterIDs = []string{submitterID}
	}
	s.store.PutPrompt(p)
	s.store.BumpVersion()
	s.publishPrompts()
	return copyPrompt(p), nil
}

// HostPrompts is the pool as the host sees it: prompts whose
// submitters are all shadowbanned are hidden. Host-sourced prompts
// (no submitters) always show.
func (s *Session) HostPrompts() []Prompt {
	all := s.store.Prompts()
	out := make([]Prompt, 0, len(all))
	for _, p := range all {
		if s.allSubmittersBanned(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *Session) allSubmittersBanned(p Prompt) bool {
	if len(p.SubmitterIDs) == 0 {
		return false
	}
	for _, id := range p.SubmitterIDs {
		if !s.store.IsShadowbanned(id) {
			return false
		}
	}
	return true
}

// PromptTally summarizes the pool for the beamer.
func (s *Session) PromptTally() (prompts, submissions int) {
	for _, p := range s.store.Prompts() {
		prompts++
		submissions += p.SubmissionCount
	}
	return prompts, submissions
}

// ShadowbanVoter silently hides a voter's prompts from the host. The
// voter gets no signal.
func (s *Session) ShadowbanVoter(voterID string, banned bool) {
	if banned {
		s.store.Shadowban(voterID)
	} else {
		s.store.Unshadowban(voterID)
	}
	s.store.BumpVersion()
	s.log.Info().Str("voter", voterID).Bool("banned", banned).Msg("shadowban updated")
	s.publishPrompts()
}

func (s *Session) publishPrompts() {
	s.hub.Publish(broadcast.ScopeHost, broadcast.Message{
		Event: "prompts",
		Payload: map[string]any{
			"prompts": s.HostPrompts(),
			"version": s.store.Version(),
		},
	})
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
