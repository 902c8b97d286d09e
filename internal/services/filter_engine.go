package services

import (
	"sort"

	"go.mongodb.org/mongo-driver/bson"

	"swisswheels/app/internal/models"
)

// The filter engine is a pure function of (criteria, listings) -> listings.
// MatchesCriteria is the semantic reference; MongoFilterFor compiles the same
// criteria to a server-side query for the browse API. An empty result is a
// valid "no results" state, never an error.

// MatchesCriteria reports whether the listing satisfies every populated criterion.
func MatchesCriteria(c *models.FilterCriteria, l *models.Listing) bool {
	if c == nil {
		return true
	}
	if c.Make != "" && l.Make != c.Make {
		return false
	}
	if c.Model != "" && l.Model != c.Model {
		return false
	}
	if c.Fuel != "" && l.Fuel != c.Fuel {
		return false
	}
	if c.Gearbox != "" && l.Gearbox != c.Gearbox {
		return false
	}
	if c.Canton != "" && l.Canton != c.Canton {
		return false
	}
	if c.Drive != "" && l.Drive != c.Drive {
		return false
	}
	if c.Seats != nil && l.Seats != *c.Seats {
		return false
	}
	if c.Condition != "" && l.Condition != c.Condition {
		return false
	}
	if c.ExteriorColor != "" && l.ExteriorColor != c.ExteriorColor {
		return false
	}
	if c.InteriorColor != "" && l.InteriorColor != c.InteriorColor {
		return false
	}
	if !c.Price.Contains(l.Price) {
		return false
	}
	if !c.Mileage.Contains(l.Mileage) {
		return false
	}
	if !c.Year.Contains(l.Year) {
		return false
	}
	if !c.Power.Contains(l.PowerValue) {
		return false
	}
	return true
}

// ApplyCriteria returns the subset of listings matching every populated criterion.
func ApplyCriteria(c *models.FilterCriteria, listings []models.Listing) []models.Listing {
	result := make([]models.Listing, 0, len(listings))
	for i := range listings {
		if MatchesCriteria(c, &listings[i]) {
			result = append(result, listings[i])
		}
	}
	return result
}

// ModelsForMake returns the sorted, de-duplicated model names observed among
// listings of the given make. Drives the narrowing of the model dropdown.
func ModelsForMake(listings []models.Listing, vehicleMake string) []string {
	seen := make(map[string]bool)
	var result []string
	for i := range listings {
		if listings[i].Make != vehicleMake {
			continue
		}
		if m := listings[i].Model; m != "" && !seen[m] {
			seen[m] = true
			result = append(result, m)
		}
	}
	sort.Strings(result)
	return result
}

// NormalizeCriteria clears a selected model that is no longer valid for the
// selected make. Called after every make change.
func NormalizeCriteria(c *models.FilterCriteria, listings []models.Listing) {
	if c == nil || c.Make == "" || c.Model == "" {
		return
	}
	for _, m := range ModelsForMake(listings, c.Make) {
		if m == c.Model {
			return
		}
	}
	c.Model = ""
}

// MongoFilterFor compiles the criteria into a listings query. The base filter
// restricts to publicly visible documents (published and approved).
func MongoFilterFor(c *models.FilterCriteria) bson.M {
	filter := bson.M{
		"published": true,
		"status":    models.StatusApproved,
	}
	if c == nil {
		return filter
	}
	if c.Make != "" {
		filter["make"] = c.Make
	}
	if c.Model != "" {
		filter["model"] = c.Model
	}
	if c.Fuel != "" {
		filter["fuel"] = c.Fuel
	}
	if c.Gearbox != "" {
		filter["gearbox"] = c.Gearbox
	}
	if c.Canton != "" {
		filter["canton"] = c.Canton
	}
	if c.Drive != "" {
		filter["drive"] = c.Drive
	}
	if c.Seats != nil {
		filter["seats"] = *c.Seats
	}
	if c.Condition != "" {
		filter["condition"] = c.Condition
	}
	if c.ExteriorColor != "" {
		filter["exterior_color"] = c.ExteriorColor
	}
	if c.InteriorColor != "" {
		filter["interior_color"] = c.InteriorColor
	}
	addRange(filter, "price", c.Price)
	addRange(filter, "mileage", c.Mileage)
	addRange(filter, "year", c.Year)
	addRange(filter, "power_value", c.Power)
	return filter
}

func addRange(filter bson.M, field string, r *models.IntRange) {
	if r.IsZero() {
		return
	}
	bounds := bson.M{}
	if r.Min != nil {
		bounds["$gte"] = *r.Min
	}
	if r.Max != nil {
		bounds["$lte"] = *r.Max
	}
	filter[field] = bounds
}
