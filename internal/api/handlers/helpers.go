package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swisswheels/app/internal/api/middleware"
	"swisswheels/app/internal/models"
	"swisswheels/app/internal/services"
)

// currentUserID extracts the authenticated user's ID from the Gin context.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	raw, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		return primitive.NilObjectID, false
	}
	hex, ok := raw.(string)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// viewerState derives the verification state of the request's viewer.
func viewerState(c *gin.Context) models.VerificationState {
	_, authenticated := currentUserID(c)
	return models.ViewerStateOf(
		authenticated,
		c.GetBool(middleware.ContextKeyAnonymous),
		c.GetBool(middleware.ContextKeyPhoneVerified),
	)
}

// writeServiceError maps service errors to HTTP responses.
func writeServiceError(c *gin.Context, err error) {
	var fe services.FieldErrors
	switch {
	case errors.As(err, &fe):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Validation failed", "fields": fe})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// parseObjectIDParam parses a hex ObjectID path parameter, writing a 400 on
// failure.
func parseObjectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " format"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// criteriaFromQuery builds filter criteria from browse query parameters.
func criteriaFromQuery(c *gin.Context) *models.FilterCriteria {
	criteria := &models.FilterCriteria{
		Make:          c.Query("make"),
		Model:         c.Query("model"),
		Fuel:          models.FuelType(c.Query("fuel")),
		Gearbox:       models.Gearbox(c.Query("gearbox")),
		Canton:        c.Query("canton"),
		Drive:         models.DriveType(c.Query("drive")),
		Condition:     models.Condition(c.Query("condition")),
		ExteriorColor: models.Color(c.Query("exterior_color")),
		InteriorColor: models.Color(c.Query("interior_color")),
	}
	if seats, err := strconv.Atoi(c.Query("seats")); err == nil {
		criteria.Seats = &seats
	}
	criteria.Price = rangeFromQuery(c, "price_min", "price_max")
	criteria.Mileage = rangeFromQuery(c, "mileage_min", "mileage_max")
	criteria.Year = rangeFromQuery(c, "year_min", "year_max")
	criteria.Power = rangeFromQuery(c, "power_min", "power_max")
	return criteria
}

func rangeFromQuery(c *gin.Context, minKey, maxKey string) *models.IntRange {
	var r models.IntRange
	if v, err := strconv.Atoi(c.Query(minKey)); err == nil {
		r.Min = &v
	}
	if v, err := strconv.Atoi(c.Query(maxKey)); err == nil {
		r.Max = &v
	}
	if r.IsZero() {
		return nil
	}
	return &r
}
