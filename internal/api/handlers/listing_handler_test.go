package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swisswheels/app/internal/api/handlers"
	"swisswheels/app/internal/api/middleware"
	"swisswheels/app/internal/models"
	"swisswheels/app/internal/services"
)

// sessionFor fakes an authenticated session the way AuthMiddleware would.
func sessionFor(userID primitive.ObjectID, anonymous, phoneVerified, isAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID.Hex())
		c.Set(middleware.ContextKeyAnonymous, anonymous)
		c.Set(middleware.ContextKeyPhoneVerified, phoneVerified)
		c.Set(middleware.ContextKeyIsAdmin, isAdmin)
		c.Next()
	}
}

func approvedListing(owner primitive.ObjectID) *models.Listing {
	return &models.Listing{
		ID:        primitive.NewObjectID(),
		UserID:    owner,
		Make:      "Audi",
		Model:     "A4",
		Year:      2019,
		Price:     25000,
		Published: true,
		Status:    models.StatusApproved,
	}
}

func validListingInput() services.ListingInput {
	return services.ListingInput{
		Make:          "Audi",
		Model:         "A4",
		Year:          2019,
		Price:         25000,
		Mileage:       60000,
		Fuel:          models.FuelDiesel,
		Gearbox:       models.GearboxAutomatique,
		Canton:        "VD",
		Doors:         5,
		Seats:         5,
		Drive:         models.Drive4x4,
		PowerValue:    190,
		PowerUnit:     models.PowerCh,
		ExteriorColor: models.ColorNoir,
		InteriorColor: models.ColorBeige,
		Condition:     models.ConditionUsed,
	}
}

func TestListingHandler_GetListingByID_Public(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := new(MockListingService)
	handler := handlers.NewListingHandler(mockSvc)

	r := gin.New()
	r.GET("/v1/listings/:id", handler.GetListingByID)

	listing := approvedListing(primitive.NewObjectID())
	mockSvc.On("FindListingByID", mock.Anything, listing.ID).Return(listing, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listings/"+listing.ID.Hex(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var got models.Listing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, listing.ID, got.ID)
	mockSvc.AssertExpectations(t)
}

func TestListingHandler_GetListingByID_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := new(MockListingService)
	handler := handlers.NewListingHandler(mockSvc)

	r := gin.New()
	r.GET("/v1/listings/:id", handler.GetListingByID)

	listingID := primitive.NewObjectID()
	mockSvc.On("FindListingByID", mock.Anything, listingID).Return(nil, services.ErrNotFound)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listings/"+listingID.Hex(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestListingHandler_GetListingByID_OwnerSeesPending(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := new(MockListingService)
	handler := handlers.NewListingHandler(mockSvc)

	owner := primitive.NewObjectID()
	listing := approvedListing(owner)
	listing.Status = models.StatusPending

	r := gin.New()
	r.GET("/v1/listings/:id", sessionFor(owner, false, true, false), handler.GetListingByID)

	mockSvc.On("FindListingForViewer", mock.Anything, listing.ID, owner, false).Return(listing, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listings/"+listing.ID.Hex(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestListingHandler_GetListingByID_InvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewListingHandler(new(MockListingService))

	r := gin.New()
	r.GET("/v1/listings/:id", handler.GetListingByID)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listings/not-an-id", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListingHandler_SearchListings_PassesCriteriaAndCursor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := new(MockListingService)
	handler := handlers.NewListingHandler(mockSvc)

	r := gin.New()
	r.GET("/v1/listings", handler.SearchListings)

	expected := []models.Listing{*approvedListing(primitive.NewObjectID())}
	mockSvc.On("SearchListings", mock.Anything, mock.MatchedBy(func(c *models.FilterCriteria) bool {
		return c.Make == "Audi" && c.Price != nil && *c.Price.Max == 30000
	}), 10, "1700000000_abc").Return(expected, "next123", nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listings?make=Audi&price_max=30000&limit=10&cursor=1700000000_abc", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data       []models.Listing `json:"data"`
		NextCursor string           `json:"next_cursor"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, "next123", resp.NextCursor)
	mockSvc.AssertExpectations(t)
}

func TestListingHandler_CreateListing_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := new(MockListingService)
	handler := handlers.NewListingHandler(mockSvc)

	userID := primitive.NewObjectID()
	r := gin.New()
	r.POST("/v1/listings", sessionFor(userID, false, true, false), handler.CreateListing)

	input := validListingInput()
	created := approvedListing(userID)
	mockSvc.On("CreateListing", mock.Anything, userID, input).Return(created, nil)

	body, _ := json.Marshal(input)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/listings", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestListingHandler_CreateListing_ValidationFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := new(MockListingService)
	handler := handlers.NewListingHandler(mockSvc)

	userID := primitive.NewObjectID()
	r := gin.New()
	r.POST("/v1/listings", sessionFor(userID, false, true, false), handler.CreateListing)

	input := validListingInput()
	input.Price = 0
	mockSvc.On("CreateListing", mock.Anything, userID, input).
		Return(nil, services.FieldErrors{"price": "price must be positive"})

	body, _ := json.Marshal(input)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/listings", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	fields := resp["fields"].(map[string]any)
	assert.Contains(t, fields, "price")
	mockSvc.AssertExpectations(t)
}

func TestListingHandler_DeleteListing_RequiresReason(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := new(MockListingService)
	handler := handlers.NewListingHandler(mockSvc)

	userID := primitive.NewObjectID()
	r := gin.New()
	r.DELETE("/v1/listings/:id", sessionFor(userID, false, true, false), handler.DeleteListing)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/v1/listings/"+primitive.NewObjectID().Hex(), bytes.NewReader([]byte(`{}`)))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	mockSvc.AssertNotCalled(t, "DeleteListing")
}

func TestListingHandler_DeleteListing_Forbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := new(MockListingService)
	handler := handlers.NewListingHandler(mockSvc)

	userID := primitive.NewObjectID()
	listingID := primitive.NewObjectID()
	r := gin.New()
	r.DELETE("/v1/listings/:id", sessionFor(userID, false, true, false), handler.DeleteListing)

	mockSvc.On("DeleteListing", mock.Anything, listingID, userID, "sold").Return(services.ErrForbidden)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/v1/listings/"+listingID.Hex(), bytes.NewReader([]byte(`{"reason":"sold"}`)))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestListingHandler_ApproveListing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := new(MockListingService)
	handler := handlers.NewListingHandler(mockSvc)

	listingID := primitive.NewObjectID()
	r := gin.New()
	r.POST("/v1/admin/listings/:id/approve", handler.ApproveListing)

	mockSvc.On("ApproveListing", mock.Anything, listingID).Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/listings/"+listingID.Hex()+"/approve", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}
