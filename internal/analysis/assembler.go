package analysis

import (
	"fmt"

	"github.com/facereader/facereader/internal/i18n"
	"github.com/facereader/facereader/internal/models"
	"github.com/facereader/facereader/internal/providers"
)

// MaxImages bounds a single request
const MaxImages = 3

// Input is everything the assembler needs from a session
type Input struct {
	Mode      models.Mode
	Images    []models.Image
	Language  string
	AgingPath models.AgingPath
}

// Assembler turns a session snapshot into a provider request
type Assembler struct {
	catalog *i18n.Catalog
}

func NewAssembler(catalog *i18n.Catalog) *Assembler {
	return &Assembler{catalog: catalog}
}

// Assemble validates the inputs for the mode and builds the request. Errors
// carry the localized message for the session language.
func (a *Assembler) Assemble(in Input) (providers.Request, error) {
	spec, ok := modeSpecs[in.Mode]
	if !ok {
		return providers.Request{}, models.ErrBadRequest.WithError(fmt.Errorf("unknown mode: %s", in.Mode))
	}

	if len(in.Images) > MaxImages {
		return providers.Request{}, models.ErrValidation.WithError(fmt.Errorf("at most %d images per request, got %d", MaxImages, len(in.Images)))
	}
	if len(in.Images) != spec.images || anyEmpty(in.Images) {
		key := "upload.error_empty"
		if in.Mode == models.ModeCouple {
			key = "couple.error_missing"
		}
		return providers.Request{}, models.ErrMissingImage.
			WithMessage(a.catalog.Lookup(in.Language, key)).
			WithError(fmt.Errorf("mode %s needs %d images, got %d usable", in.Mode, spec.images, usable(in.Images)))
	}

	var path models.AgingPath
	if in.Mode == models.ModeAging {
		if !in.AgingPath.Valid() {
			return providers.Request{}, models.ErrValidation.WithError(fmt.Errorf("aging path must be %q or %q", models.AgingVirtue, models.AgingWorry))
		}
		path = in.AgingPath
	}

	images := make([]providers.Image, 0, len(in.Images))
	for _, img := range in.Images {
		images = append(images, providers.Image{MIME: img.MIME, Data: img.Data})
	}

	return providers.Request{
		SystemPrompt: spec.system,
		UserPrompt:   spec.userPrompt(a.catalog.PromptLanguage(in.Language), path),
		Images:       images,
	}, nil
}

func anyEmpty(images []models.Image) bool {
	return usable(images) != len(images)
}

func usable(images []models.Image) int {
	n := 0
	for i := range images {
		if !images[i].Empty() {
			n++
		}
	}
	return n
}
