package services

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"allrentr/models"
	"allrentr/utils"
)

// pinRegexp matches a six-digit Indian PIN code.
var pinRegexp = regexp.MustCompile(`^\d{6}$`)

// ValidPinCode reports whether pin is a six-digit PIN code.
func ValidPinCode(pin string) bool {
	return pinRegexp.MatchString(strings.TrimSpace(pin))
}

// Cleaner normalises listings loaded from the store before they reach the
// resolver and clustering code.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean drops listings without an id and repeated ids, normalises text
// fields and clears coordinates that cannot be used.
func (c *Cleaner) Clean(listings []*models.Listing) []*models.Listing {
	seen := utils.NewIDSet()
	result := make([]*models.Listing, 0, len(listings))
	droppedCoords := 0

	for _, l := range listings {
		if l == nil {
			continue
		}
		id := strings.TrimSpace(l.ID)
		if id == "" {
			c.logger.Warn("[cleaner] Dropping listing with empty id: %s", l.ProductName)
			continue
		}
		if !seen.Add(id) {
			c.logger.Debug("[cleaner] Duplicate id skipped: %s", id)
			continue
		}

		cleaned := *l
		cleaned.ID = id
		cleaned.ProductName = normaliseText(l.ProductName)
		cleaned.Description = normaliseText(l.Description)
		cleaned.Category = strings.ToLower(strings.TrimSpace(l.Category))
		cleaned.PinCode = strings.TrimSpace(l.PinCode)
		// City is a cluster key and is only trimmed.
		cleaned.City = strings.TrimSpace(l.City)
		cleaned.State = normaliseText(l.State)
		cleaned.Locality = normaliseText(l.Locality)

		if l.Latitude != nil || l.Longitude != nil {
			if !usableCoordinates(l.Latitude, l.Longitude) {
				cleaned.Latitude, cleaned.Longitude = nil, nil
				droppedCoords++
			}
		}

		result = append(result, &cleaned)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d, cleared coordinates on %d)",
		len(listings), len(result), len(listings)-len(result), droppedCoords)
	return result
}

func usableCoordinates(lat, lng *float64) bool {
	if lat == nil || lng == nil {
		return false
	}
	if math.IsNaN(*lat) || math.IsNaN(*lng) || math.IsInf(*lat, 0) || math.IsInf(*lng, 0) {
		return false
	}
	return *lat >= -90 && *lat <= 90 && *lng >= -180 && *lng <= 180
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
