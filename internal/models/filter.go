package models

// IntRange is an optional numeric interval. A nil bound is unbounded on that
// side; a nil range matches everything.
type IntRange struct {
	Min *int `json:"min,omitempty" form:"min"`
	Max *int `json:"max,omitempty" form:"max"`
}

// Contains reports whether v falls inside the range. Nil-receiver safe.
func (r *IntRange) Contains(v int) bool {
	if r == nil {
		return true
	}
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// IsZero reports whether the range constrains nothing. Nil-receiver safe.
func (r *IntRange) IsZero() bool {
	return r == nil || (r.Min == nil && r.Max == nil)
}

// FilterCriteria is the browse filter form. Empty string and nil fields mean
// "any". Criteria combine with AND.
type FilterCriteria struct {
	Make          string    `json:"make,omitempty" form:"make"`
	Model         string    `json:"model,omitempty" form:"model"`
	Fuel          FuelType  `json:"fuel,omitempty" form:"fuel"`
	Gearbox       Gearbox   `json:"gearbox,omitempty" form:"gearbox"`
	Canton        string    `json:"canton,omitempty" form:"canton"`
	Drive         DriveType `json:"drive,omitempty" form:"drive"`
	Seats         *int      `json:"seats,omitempty" form:"seats"`
	Condition     Condition `json:"condition,omitempty" form:"condition"`
	ExteriorColor Color     `json:"exterior_color,omitempty" form:"exterior_color"`
	InteriorColor Color     `json:"interior_color,omitempty" form:"interior_color"`
	Price         *IntRange `json:"price,omitempty"`
	Mileage       *IntRange `json:"mileage,omitempty"`
	Year          *IntRange `json:"year,omitempty"`
	Power         *IntRange `json:"power,omitempty"`
}
