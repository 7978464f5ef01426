// Package session holds the per-visitor state of the reading UI and the
// transitions allowed on it.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/facereader/facereader/internal/faceimage"
	"github.com/facereader/facereader/internal/models"
)

// Session is safe for concurrent use. Fields are only changed through the
// transition methods.
type Session struct {
	mu sync.Mutex

	id        string
	createdAt time.Time
	updatedAt time.Time

	language  string
	mode      models.Mode
	agingPath models.AgingPath
	images    map[models.Slot]models.Image

	aligning   bool
	alignment  faceimage.AlignmentState
	alignToken uint64
	mirror     *models.MirrorPair

	result string
	errMsg string

	// generation changes whenever a pending response would no longer
	// belong to what is on screen
	generation uint64
	seq        uint64
	inflight   map[models.Mode]uint64
}

func New(id, language string) *Session {
	now := time.Now()
	return &Session{
		id:        id,
		createdAt: now,
		updatedAt: now,
		language:  language,
		mode:      models.ModeSingle,
		images:    make(map[models.Slot]models.Image),
		alignment: faceimage.Identity(),
		inflight:  make(map[models.Mode]uint64),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) touch() {
	s.updatedAt = time.Now()
}

func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *Session) Mode() models.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SelectMode switches the active mode. A different mode discards the shown
// result, the mirror pair and any pending alignment, and invalidates
// responses still in flight.
func (s *Session) SelectMode(mode models.Mode) error {
	if !mode.Valid() {
		return models.ErrBadRequest.WithError(fmt.Errorf("unknown mode: %s", mode))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == s.mode {
		return nil
	}
	s.mode = mode
	s.generation++
	s.result = ""
	s.errMsg = ""
	s.mirror = nil
	s.aligning = false
	s.alignment = faceimage.Identity()
	s.agingPath = ""
	s.touch()
	return nil
}

func (s *Session) SetLanguage(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = tag
	s.touch()
}

func (s *Session) SetAgingPath(p models.AgingPath) error {
	if !p.Valid() {
		return models.ErrValidation.WithError(fmt.Errorf("unknown aging path: %s", p))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agingPath = p
	s.touch()
	return nil
}

// SetImage stores a validated upload. In mirror mode a new primary photo
// starts alignment from the identity state and drops the old pair.
func (s *Session) SetImage(slot models.Slot, img models.Image) error {
	if !slot.Valid() {
		return models.ErrBadRequest.WithError(fmt.Errorf("unknown image slot: %s", slot))
	}
	if img.Empty() {
		return models.ErrValidation.WithError(fmt.Errorf("empty image"))
	}
	if img.UploadedAt.IsZero() {
		img.UploadedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.images[slot] = img
	s.generation++
	s.errMsg = ""
	if slot == models.SlotPrimary {
		s.alignToken++
		if s.mode == models.ModeMirror {
			s.aligning = true
			s.alignment = faceimage.Identity()
			s.mirror = nil
		} else {
			s.result = ""
			s.agingPath = ""
		}
	} else {
		s.result = ""
	}
	s.touch()
	return nil
}

// ClearImage removes an uploaded photo. Removing the primary photo also
// drops alignment and the mirror pair derived from it.
func (s *Session) ClearImage(slot models.Slot) error {
	if !slot.Valid() {
		return models.ErrBadRequest.WithError(fmt.Errorf("unknown image slot: %s", slot))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.images, slot)
	s.generation++
	if slot == models.SlotPrimary {
		s.alignToken++
		s.aligning = false
		s.alignment = faceimage.Identity()
		s.mirror = nil
	}
	s.touch()
	return nil
}

// Image returns a stored photo by name: a slot, or "inner"/"outer" for the
// mirror pair.
func (s *Session) Image(name string) (models.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case "inner":
		if s.mirror == nil {
			return models.Image{}, false
		}
		return s.mirror.Inner, true
	case "outer":
		if s.mirror == nil {
			return models.Image{}, false
		}
		return s.mirror.Outer, true
	}
	img, ok := s.images[models.Slot(name)]
	return img, ok
}
