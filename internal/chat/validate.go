package chat

import (
	"fmt"
	"unicode/utf8"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
)

// validate bounds-checks the caller-supplied turns before any
// attachment work or upstream call. Rejections name the violated
// constraint; they never reach an external collaborator.
func (s *Service) validate(turns []gateway.ChatTurn) error {
	if len(turns) == 0 {
		return fmt.Errorf("%w: messages must not be empty", gateway.ErrBadRequest)
	}
	for i, turn := range turns {
		if !turn.Content.IsValid() {
			return fmt.Errorf("%w: message %d: content must be a string or a list of content parts", gateway.ErrBadRequest, i)
		}
		// The limit counts characters, not bytes: accented text must not
		// trip it early.
		if !turn.Content.IsParts() {
			if utf8.RuneCountInString(turn.Content.Text) > s.maxChars {
				return fmt.Errorf("%w: message %d: text exceeds the maximum length of %d characters", gateway.ErrBadRequest, i, s.maxChars)
			}
			continue
		}
		for j, p := range turn.Content.Parts {
			if p.Type == gateway.PartText && utf8.RuneCountInString(p.Text) > s.maxChars {
				return fmt.Errorf("%w: message %d part %d: text exceeds the maximum length of %d characters", gateway.ErrBadRequest, i, j, s.maxChars)
			}
		}
	}
	return nil
}
