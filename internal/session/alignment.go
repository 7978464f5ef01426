package session

import (
	"fmt"

	"github.com/facereader/facereader/internal/faceimage"
	"github.com/facereader/facereader/internal/models"
)

// AlignJob is a snapshot of a pending alignment, rasterized outside the lock
type AlignJob struct {
	Token  uint64
	Source []byte
	State  faceimage.AlignmentState
}

// StartAlignment re-opens alignment for the current primary photo
func (s *Session) StartAlignment() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != models.ModeMirror {
		return models.ErrBadRequest.WithError(fmt.Errorf("alignment is only used in %s mode", models.ModeMirror))
	}
	if img, ok := s.images[models.SlotPrimary]; !ok || img.Empty() {
		return models.ErrMissingImage
	}
	s.aligning = true
	s.alignment = faceimage.Identity()
	s.alignToken++
	s.touch()
	return nil
}

// UpdateAlignment replaces the pending transform. Rotation and scale are
// clamped to the interactive ranges. Jobs taken before the update can no
// longer be confirmed.
func (s *Session) UpdateAlignment(st faceimage.AlignmentState) (faceimage.AlignmentState, error) {
	if err := st.Validate(); err != nil {
		return faceimage.AlignmentState{}, err
	}
	st = st.Clamped()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.aligning {
		return faceimage.AlignmentState{}, models.ErrNotAligning
	}
	s.alignment = st
	s.alignToken++
	s.touch()
	return st, nil
}

// PendingAlignment returns the work needed to confirm the current alignment
func (s *Session) PendingAlignment() (AlignJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.aligning {
		return AlignJob{}, models.ErrNotAligning
	}
	img := s.images[models.SlotPrimary]
	return AlignJob{Token: s.alignToken, Source: img.Data, State: s.alignment}, nil
}

// ConfirmAlignment stores the aligned photo as the new primary image along
// with its mirror pair. A job whose source photo has since changed is rejected.
func (s *Session) ConfirmAlignment(token uint64, aligned models.Image, pair models.MirrorPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.aligning || token != s.alignToken {
		return models.ErrNotAligning.WithError(fmt.Errorf("alignment changed while rendering"))
	}
	aligned.Filename = s.images[models.SlotPrimary].Filename
	s.images[models.SlotPrimary] = aligned
	s.mirror = &pair
	s.generation++
	s.aligning = false
	s.alignment = faceimage.Identity()
	s.alignToken++
	s.result = ""
	s.errMsg = ""
	s.touch()
	return nil
}

// CancelAlignment abandons alignment and discards the photo being aligned
func (s *Session) CancelAlignment() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.aligning {
		return models.ErrNotAligning
	}
	s.aligning = false
	s.alignment = faceimage.Identity()
	delete(s.images, models.SlotPrimary)
	s.generation++
	s.alignToken++
	s.touch()
	return nil
}

// FailAlignment records a failed confirm without touching the pending state
func (s *Session) FailAlignment(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
	s.touch()
}
