package lead

import "github.com/sells-group/followup-cli/internal/model"

// Resolve finds where the follow-up conversation stopped. Only the contiguous
// populated prefix counts: a populated slot after an empty one does not
// advance the position.
func Resolve(l model.Lead) model.Position {
	last := 0
	for _, s := range l.FollowUps {
		if !s.Populated() {
			break
		}
		last = s.Index
	}
	return model.Position{LastCompleted: last, Next: last + 1}
}
