package models

// FuelType is the powertrain fuel of a vehicle. Values match the French
// labels shown in the UI.
type FuelType string

const (
	FuelEssence    FuelType = "Essence"
	FuelDiesel     FuelType = "Diesel"
	FuelHybride    FuelType = "Hybride"
	FuelElectrique FuelType = "Électrique"
)

// Gearbox is the transmission kind.
type Gearbox string

const (
	GearboxManuelle    Gearbox = "Manuelle"
	GearboxAutomatique Gearbox = "Automatique"
)

// DriveType is the driven-axle layout.
type DriveType string

const (
	DriveFront DriveType = "front"
	DriveRear  DriveType = "rear"
	Drive4x4   DriveType = "4x4"
)

// Condition is the sale condition of a vehicle.
type Condition string

const (
	ConditionNew  Condition = "new"
	ConditionUsed Condition = "used"
	ConditionDemo Condition = "demo"
)

// PowerUnit is the unit engine power is expressed in.
type PowerUnit string

const (
	PowerCh PowerUnit = "ch"
	PowerKw PowerUnit = "kW"
)

// Color is a vehicle color. Values match the French labels shown in the UI.
type Color string

const (
	ColorNoir     Color = "Noir"
	ColorBlanc    Color = "Blanc"
	ColorGris     Color = "Gris"
	ColorArgent   Color = "Argent"
	ColorBleu     Color = "Bleu"
	ColorRouge    Color = "Rouge"
	ColorVert     Color = "Vert"
	ColorJaune    Color = "Jaune"
	ColorOrange   Color = "Orange"
	ColorBrun     Color = "Brun"
	ColorBeige    Color = "Beige"
	ColorViolet   Color = "Violet"
	ColorBordeaux Color = "Bordeaux"
)

// Cantons lists the 26 Swiss canton codes accepted as listing locations.
var Cantons = []string{
	"AG", "AI", "AR", "BE", "BL", "BS", "FR", "GE", "GL", "GR",
	"JU", "LU", "NE", "NW", "OW", "SG", "SH", "SO", "SZ", "TG",
	"TI", "UR", "VD", "VS", "ZG", "ZH",
}

// IsValidCanton reports whether code is a known canton code.
func IsValidCanton(code string) bool {
	for _, c := range Cantons {
		if c == code {
			return true
		}
	}
	return false
}

// IsValidDoorCount accepts the door counts offered by the sell form.
func IsValidDoorCount(n int) bool {
	return n == 3 || n == 5
}

// IsValidSeatCount accepts the seat counts offered by the sell form.
func IsValidSeatCount(n int) bool {
	return n == 2 || n == 5 || n == 7
}

// IsValidFuelType reports whether f is a known fuel type.
func IsValidFuelType(f FuelType) bool {
	switch f {
	case FuelEssence, FuelDiesel, FuelHybride, FuelElectrique:
		return true
	}
	return false
}

// IsValidGearbox reports whether g is a known gearbox kind.
func IsValidGearbox(g Gearbox) bool {
	return g == GearboxManuelle || g == GearboxAutomatique
}

// IsValidDriveType reports whether d is a known drive layout.
func IsValidDriveType(d DriveType) bool {
	switch d {
	case DriveFront, DriveRear, Drive4x4:
		return true
	}
	return false
}

// IsValidColor reports whether c is a known vehicle color.
func IsValidColor(c Color) bool {
	switch c {
	case ColorNoir, ColorBlanc, ColorGris, ColorArgent, ColorBleu, ColorRouge,
		ColorVert, ColorJaune, ColorOrange, ColorBrun, ColorBeige, ColorViolet,
		ColorBordeaux:
		return true
	}
	return false
}

// IsValidCondition reports whether c is a known sale condition.
func IsValidCondition(c Condition) bool {
	switch c {
	case ConditionNew, ConditionUsed, ConditionDemo:
		return true
	}
	return false
}
