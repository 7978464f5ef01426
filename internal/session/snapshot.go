package session

import (
	"sort"
	"time"

	"github.com/facereader/facereader/internal/faceimage"
	"github.com/facereader/facereader/internal/models"
)

// Snapshot is the JSON view of a session. Image bytes are served separately.
type Snapshot struct {
	ID         string                       `json:"id"`
	Language   string                       `json:"language"`
	Mode       models.Mode                  `json:"mode"`
	AgingPath  models.AgingPath             `json:"aging_path,omitempty"`
	Images     map[models.Slot]models.Image `json:"images"`
	Aligning   bool                         `json:"aligning"`
	Alignment  *faceimage.AlignmentState    `json:"alignment,omitempty"`
	Mirror     *models.MirrorPair           `json:"mirror,omitempty"`
	Result     string                       `json:"result"`
	Error      string                       `json:"error,omitempty"`
	Busy       bool                         `json:"busy"`
	Generation uint64                       `json:"generation"`
	CreatedAt  time.Time                    `json:"created_at"`
	UpdatedAt  time.Time                    `json:"updated_at"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	images := make(map[models.Slot]models.Image, len(s.images))
	for k, v := range s.images {
		images[k] = v
	}

	snap := Snapshot{
		ID:         s.id,
		Language:   s.language,
		Mode:       s.mode,
		AgingPath:  s.agingPath,
		Images:     images,
		Aligning:   s.aligning,
		Result:     s.result,
		Error:      s.errMsg,
		Generation: s.generation,
		CreatedAt:  s.createdAt,
		UpdatedAt:  s.updatedAt,
	}
	if _, busy := s.inflight[s.mode]; busy {
		snap.Busy = true
	}
	if s.aligning {
		st := s.alignment
		snap.Alignment = &st
	}
	if s.mirror != nil {
		pair := *s.mirror
		snap.Mirror = &pair
	}
	return snap
}

// SortByCreated orders snapshots oldest first
func SortByCreated(snaps []Snapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.Before(snaps[j].CreatedAt)
	})
}
