package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swisswheels/app/internal/models"
	"swisswheels/app/internal/services"
)

func validInput() services.ListingInput {
	return services.ListingInput{
		Make:          "BMW",
		Model:         "320d",
		Year:          2021,
		Price:         38000,
		Mileage:       25000,
		Fuel:          models.FuelDiesel,
		Gearbox:       models.GearboxAutomatique,
		Canton:        "ZH",
		Doors:         5,
		Seats:         5,
		Drive:         models.DriveRear,
		PowerValue:    190,
		PowerUnit:     models.PowerCh,
		ExteriorColor: models.ColorGris,
		InteriorColor: models.ColorNoir,
		Condition:     models.ConditionUsed,
	}
}

func TestListingInput_Validate_OK(t *testing.T) {
	in := validInput()
	assert.Nil(t, in.Validate())
}

func TestListingInput_Validate_FieldErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*services.ListingInput)
		field  string
	}{
		{"missing make", func(in *services.ListingInput) { in.Make = "  " }, "make"},
		{"missing model", func(in *services.ListingInput) { in.Model = "" }, "model"},
		{"year too old", func(in *services.ListingInput) { in.Year = 1850 }, "year"},
		{"year in the future", func(in *services.ListingInput) { in.Year = 2200 }, "year"},
		{"zero price", func(in *services.ListingInput) { in.Price = 0 }, "price"},
		{"negative mileage", func(in *services.ListingInput) { in.Mileage = -1 }, "mileage"},
		{"unknown fuel", func(in *services.ListingInput) { in.Fuel = "Charbon" }, "fuel"},
		{"unknown gearbox", func(in *services.ListingInput) { in.Gearbox = "CVT?" }, "gearbox"},
		{"unknown canton", func(in *services.ListingInput) { in.Canton = "XX" }, "canton"},
		{"four doors", func(in *services.ListingInput) { in.Doors = 4 }, "doors"},
		{"six seats", func(in *services.ListingInput) { in.Seats = 6 }, "seats"},
		{"unknown drive", func(in *services.ListingInput) { in.Drive = "tracks" }, "drive"},
		{"zero power", func(in *services.ListingInput) { in.PowerValue = 0 }, "power_value"},
		{"bad power unit", func(in *services.ListingInput) { in.PowerUnit = "hp" }, "power_unit"},
		{"unknown exterior color", func(in *services.ListingInput) { in.ExteriorColor = "Turquoise" }, "exterior_color"},
		{"unknown interior color", func(in *services.ListingInput) { in.InteriorColor = "Fuchsia" }, "interior_color"},
		{"unknown condition", func(in *services.ListingInput) { in.Condition = "wrecked" }, "condition"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			fe := in.Validate()
			require.NotNil(t, fe)
			assert.Contains(t, fe, tc.field)
		})
	}
}

func TestListingInput_Validate_CollectsAllProblems(t *testing.T) {
	in := services.ListingInput{}
	fe := in.Validate()
	require.NotNil(t, fe)
	assert.Contains(t, fe, "make")
	assert.Contains(t, fe, "price")
	assert.Contains(t, fe, "canton")
	assert.Contains(t, fe, "condition")
}

func TestProfileInput_Validate(t *testing.T) {
	in := services.ProfileInput{AccountType: models.AccountParticulier}
	assert.Nil(t, in.Validate())

	in = services.ProfileInput{AccountType: models.AccountProfessionnel, CompanyName: "Garage Müller AG"}
	assert.Nil(t, in.Validate())

	in = services.ProfileInput{AccountType: models.AccountProfessionnel}
	fe := in.Validate()
	require.NotNil(t, fe)
	assert.Contains(t, fe, "company_name")

	in = services.ProfileInput{AccountType: "entreprise"}
	fe = in.Validate()
	require.NotNil(t, fe)
	assert.Contains(t, fe, "account_type")
}

func TestFieldErrors_ErrorIsStableAcrossRuns(t *testing.T) {
	fe := services.FieldErrors{"year": "year must be between 1900 and 2027", "make": "make is required"}
	// Keys come out sorted, so the message is deterministic.
	assert.Equal(t, "validation failed: make: make is required; year: year must be between 1900 and 2027", fe.Error())
}
