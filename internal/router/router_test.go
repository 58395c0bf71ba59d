// internal/router/router_test.go
package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ricelink/ricelink-backend/internal/config"
	"github.com/ricelink/ricelink-backend/internal/models"
	"github.com/ricelink/ricelink-backend/internal/utils"
)

type RouterTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	farmer *models.User
	miller *models.User
}

func (suite *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)
	suite.Require().NoError(db.AutoMigrate(
		&models.User{},
		&models.RiceField{},
		&models.YieldEstimation{},
		&models.SaleListing{},
	))
	suite.db = db

	cfg := &config.Config{
		Environment: "test",
		JWT:         config.JWTConfig{SecretKey: "test-secret"},
		Geofence: config.GeofenceConfig{
			Enabled: true,
			MinLon:  99.80, MinLat: 19.00,
			MaxLon: 100.10, MaxLat: 19.35,
		},
		Imagery:  config.ImageryConfig{LookbackDays: 60, CloudThreshold: 0.8, Scale: 10},
		Classify: config.ClassifyConfig{WaterMax: 0, RoadMax: 0.30, YoungRiceMax: 0.45},
		Yield:    config.YieldConfig{Slope: 6.5, Intercept: 1.2, Divisor: 6.25, SquareMetersPerRai: 1600},
		Prices:   config.PriceConfig{Default: 10000},
	}
	suite.router = Initialize(db, cfg)

	suite.farmer = suite.createUser("somchai", models.RoleFarmer)
	suite.miller = suite.createUser("mill-one", models.RoleMiller)
}

func (suite *RouterTestSuite) createUser(username string, role models.Role) *models.User {
	user := &models.User{Username: username, Role: role, Phone: "081-000-0000"}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *RouterTestSuite) request(method, path string, body interface{}, actor *models.User) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := utils.GenerateJWT(actor.ID, actor.Username, string(actor.Role), 1)
		suite.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *RouterTestSuite) fieldPayload(name string) map[string]interface{} {
	return map[string]interface{}{
		"name": name,
		"geometry": map[string]interface{}{
			"type": "Polygon",
			"coordinates": [][][]float64{{
				{99.900, 19.160},
				{99.902, 19.160},
				{99.902, 19.162},
				{99.900, 19.162},
				{99.900, 19.160},
			}},
		},
	}
}

func (suite *RouterTestSuite) TestHealthIsPublic() {
	w := suite.request(http.MethodGet, "/health", nil, nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *RouterTestSuite) TestFieldsRequireAuthentication() {
	w := suite.request(http.MethodGet, "/v1/fields", nil, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *RouterTestSuite) TestFarmerCreatesField() {
	w := suite.request(http.MethodPost, "/v1/fields", suite.fieldPayload("main paddy"), suite.farmer)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Field models.RiceField `json:"field"`
		} `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.Success)
	suite.Greater(resp.Data.Field.AreaRai, 0.0)
}

func (suite *RouterTestSuite) TestMillerCannotCreateField() {
	w := suite.request(http.MethodPost, "/v1/fields", suite.fieldPayload("mill plot"), suite.miller)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *RouterTestSuite) TestOutOfAreaFieldRejected() {
	payload := map[string]interface{}{
		"name": "Bangkok plot",
		"geometry": map[string]interface{}{
			"type": "Polygon",
			"coordinates": [][][]float64{{
				{100.500, 13.750},
				{100.502, 13.750},
				{100.502, 13.752},
				{100.500, 13.752},
				{100.500, 13.750},
			}},
		},
	}

	w := suite.request(http.MethodPost, "/v1/fields", payload, suite.farmer)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), "OUT_OF_BOUNDS")
}

func (suite *RouterTestSuite) TestReportsGatedToOfficials() {
	w := suite.request(http.MethodGet, "/v1/reports/dashboard", nil, suite.farmer)
	suite.Equal(http.StatusForbidden, w.Code)

	official := suite.createUser("inspector", models.RoleGovt)
	w = suite.request(http.MethodGet, "/v1/reports/dashboard", nil, official)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *RouterTestSuite) TestSaleLifecycleOverHTTP() {
	w := suite.request(http.MethodPost, "/v1/fields", suite.fieldPayload("main paddy"), suite.farmer)
	suite.Require().Equal(http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			Field models.RiceField `json:"field"`
		} `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))

	w = suite.request(http.MethodPost, "/v1/sales", map[string]interface{}{
		"field_id":      created.Data.Field.ID,
		"quantity_ton":  3.2,
		"price_per_ton": "12000",
		"phone":         "081-234-5678",
	}, suite.farmer)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var listed struct {
		Data struct {
			Listing models.SaleListing `json:"listing"`
		} `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &listed))
	listingID := listed.Data.Listing.ID.String()

	// The farmer cannot request to buy, even their own listing.
	w = suite.request(http.MethodPost, "/v1/sales/"+listingID+"/request", map[string]interface{}{}, suite.farmer)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, "/v1/sales/"+listingID+"/request", map[string]interface{}{
		"negotiated_price": "13500",
	}, suite.miller)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, "/v1/sales/"+listingID+"/approve", nil, suite.farmer)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Contains(w.Body.String(), `"SOLD"`)
	suite.Contains(w.Body.String(), "13500")
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
