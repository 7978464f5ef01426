package session

import (
	"fmt"

	"github.com/facereader/facereader/internal/models"
)

// Ticket identifies one dispatched analysis and carries its inputs
type Ticket struct {
	Seq        uint64
	Generation uint64
	Mode       models.Mode
	Language   string
	AgingPath  models.AgingPath
	Images     []models.Image
}

// BeginAnalysis marks the current mode busy and snapshots its inputs.
// It fails with ErrBusy while a request for the same mode is in flight.
func (s *Session) BeginAnalysis() (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[s.mode]; busy {
		return Ticket{}, models.ErrBusy
	}

	s.seq++
	s.inflight[s.mode] = s.seq
	s.errMsg = ""
	s.touch()

	return Ticket{
		Seq:        s.seq,
		Generation: s.generation,
		Mode:       s.mode,
		Language:   s.language,
		AgingPath:  s.agingPath,
		Images:     s.imagesFor(s.mode),
	}, nil
}

func (s *Session) imagesFor(mode models.Mode) []models.Image {
	switch mode {
	case models.ModeCouple:
		return []models.Image{s.images[models.SlotPartner1], s.images[models.SlotPartner2]}
	case models.ModeMirror:
		if s.mirror == nil {
			return nil
		}
		return []models.Image{s.mirror.Inner, s.mirror.Outer}
	default:
		return []models.Image{s.images[models.SlotPrimary]}
	}
}

// CompleteAnalysis applies the outcome of a ticket. A response whose
// generation is no longer current is dropped with ErrStale. On failure the
// previous result stays and the error message replaces any earlier one.
func (s *Session) CompleteAnalysis(t Ticket, text string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight[t.Mode] == t.Seq {
		delete(s.inflight, t.Mode)
	}
	s.touch()

	if t.Generation != s.generation {
		return models.ErrStale.WithError(fmt.Errorf("ticket generation %d, session generation %d", t.Generation, s.generation))
	}

	if err != nil {
		s.errMsg = models.AsAppError(err).Message
		return nil
	}
	s.result = text
	s.errMsg = ""
	return nil
}

// Busy reports whether the active mode has a request in flight
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inflight[s.mode]
	return busy
}
