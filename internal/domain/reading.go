package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Reading Type
// =============================================================================

// ReadingType identifies which fortune-telling practice a reading uses.
type ReadingType string

const (
	ReadingTypeFace   ReadingType = "face"
	ReadingTypePalm   ReadingType = "palm"
	ReadingTypeTarot  ReadingType = "tarot"
	ReadingTypeCoffee ReadingType = "coffee"
)

// String returns the string representation of the reading type.
func (t ReadingType) String() string {
	return string(t)
}

// IsValid returns true if the reading type is a recognized value.
func (t ReadingType) IsValid() bool {
	switch t {
	case ReadingTypeFace, ReadingTypePalm, ReadingTypeTarot, ReadingTypeCoffee:
		return true
	}
	return false
}

// RequiresImage returns true if the reading type needs a source photo.
// Tarot readings are drawn from the prompt alone.
func (t ReadingType) RequiresImage() bool {
	return t != ReadingTypeTarot
}

// =============================================================================
// Cultural Origin
// =============================================================================

// CulturalOrigin selects the cultural tradition flavoring a reading.
type CulturalOrigin string

const (
	OriginChinese       CulturalOrigin = "chinese"
	OriginMiddleEastern CulturalOrigin = "middle_eastern"
	OriginEuropean      CulturalOrigin = "european"
	OriginIndian        CulturalOrigin = "indian"
	OriginAfrican       CulturalOrigin = "african"
)

// String returns the string representation of the origin.
func (o CulturalOrigin) String() string {
	return string(o)
}

// IsValid returns true if the origin is a recognized value.
func (o CulturalOrigin) IsValid() bool {
	switch o {
	case OriginChinese, OriginMiddleEastern, OriginEuropean, OriginIndian, OriginAfrican:
		return true
	}
	return false
}

// =============================================================================
// Reading Request
// =============================================================================

// ReadingRequest is the ephemeral input to the reading pipeline. It is
// never persisted; only the resulting Reading is.
type ReadingRequest struct {
	ReadingType    ReadingType
	CulturalOrigin CulturalOrigin
	ImageURL       string // Required for face/palm/coffee, ignored for tarot
}

// Validate checks request shape before any identity or quota work is done.
func (r ReadingRequest) Validate() error {
	const op = "domain.ReadingRequest.Validate"

	if !r.ReadingType.IsValid() {
		return Invalid(op, "reading_type must be one of: face, palm, tarot, coffee")
	}
	if !r.CulturalOrigin.IsValid() {
		return Invalid(op, "cultural_origin must be one of: chinese, middle_eastern, european, indian, african")
	}
	if r.ReadingType.RequiresImage() && r.ImageURL == "" {
		return Invalid(op, "image_url is required for "+r.ReadingType.String()+" readings")
	}
	return nil
}

// =============================================================================
// Reading Domain Type
// =============================================================================

// Reading is one persisted AI-generated fortune result. Immutable after
// creation except ShareCardURL, which the share-card job fills in later.
type Reading struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ReadingType    ReadingType
	CulturalOrigin CulturalOrigin
	ImageURL       string  // Source photo URL, empty for tarot
	ResultText     string  // Generated narrative
	ShareCardURL   *string // Filled by the share-card generation job
	IsPremium      bool    // Premium status at generation time
	CreatedAt      time.Time
}

// ReadingResponse is what a successful pipeline run returns to the client.
type ReadingResponse struct {
	ResultText     string
	ReadingType    ReadingType
	CulturalOrigin CulturalOrigin
	ShareCardURL   *string
	ProcessingTime time.Duration
}
