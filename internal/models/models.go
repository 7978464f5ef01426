package models

import "time"

// Mode selects the kind of reading requested from the analysis provider
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeCouple     Mode = "couple"
	ModeDaily      Mode = "daily"
	ModeAging      Mode = "aging"
	ModeCareer2026 Mode = "career2026"
	ModeMirror     Mode = "mirror"
	ModeFortune    Mode = "fortune"
)

// Modes lists every supported mode in display order
var Modes = []Mode{ModeSingle, ModeCouple, ModeDaily, ModeAging, ModeCareer2026, ModeMirror, ModeFortune}

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

// AgingPath is the life path simulated by the aging mode
type AgingPath string

const (
	AgingVirtue AgingPath = "virtue"
	AgingWorry  AgingPath = "worry"
)

func (p AgingPath) Valid() bool {
	return p == AgingVirtue || p == AgingWorry
}

// Slot names one of the session's image inputs
type Slot string

const (
	SlotPrimary  Slot = "primary"
	SlotPartner1 Slot = "partner1"
	SlotPartner2 Slot = "partner2"
)

func (s Slot) Valid() bool {
	return s == SlotPrimary || s == SlotPartner1 || s == SlotPartner2
}

// Image is an encoded photo held in session memory
type Image struct {
	MIME       string    `json:"mime"`
	Data       []byte    `json:"-"`
	Filename   string    `json:"filename,omitempty"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Empty reports whether the image carries no bytes
func (i *Image) Empty() bool {
	return i == nil || len(i.Data) == 0
}

// MirrorPair holds the two symmetric faces derived from one aligned photo
type MirrorPair struct {
	Inner Image `json:"inner"`
	Outer Image `json:"outer"`
}
