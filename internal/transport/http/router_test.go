package httptransport

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"krishichain/internal/custody"
	"krishichain/internal/dashboard"
	"krishichain/internal/identity"
	"krishichain/internal/jwttoken"
	"krishichain/internal/ledger"
	"krishichain/internal/platform/metrics"
	"krishichain/internal/product"
	"krishichain/internal/verify"
	"krishichain/pkg/testutil"
)

// The suite drives the real router with in-memory storage, so routing,
// middleware, JSON shapes and status codes are all exercised the way a
// client sees them.
type RouterSuite struct {
	suite.Suite
	router http.Handler

	farmerToken      string
	distributorToken string
	retailerToken    string
	customerToken    string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(prometheus.NewRegistry())

	stores := custody.Stores{
		Products: product.NewInMemoryStore(),
		Records:  custody.NewInMemoryRecordStore(),
		Ledger:   ledger.NewInMemoryStore(),
	}
	tx := custody.NewShardedTx(stores)

	identitySvc := identity.NewService(identity.NewInMemoryStore())
	tokens := jwttoken.NewService("test-signing-key", time.Hour)
	engine := custody.NewEngine(tx, log, m)
	assembler := verify.NewAssembler(tx, identitySvc, nil, 16, log, m)
	dashboards := dashboard.NewService(stores.Products, stores.Records)

	s.router = NewRouter(NewHandler(log, identitySvc, tokens, engine, assembler, dashboards))

	s.farmerToken = s.registerAndLogin("farmer1", "farmer", "Rajesh Kumar")
	s.distributorToken = s.registerAndLogin("distributor1", "distributor", "Sunil Gupta")
	s.retailerToken = s.registerAndLogin("retailer1", "retailer", "Priya Sharma")
	s.customerToken = s.registerAndLogin("customer1", "customer", "Amit Verma")
}

func (s *RouterSuite) registerAndLogin(username, role, fullName string) string {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/register", map[string]string{
		"username":  username,
		"email":     username + "@krishichain.com",
		"password":  "password123",
		"role":      role,
		"full_name": fullName,
	}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/login", map[string]string{
		"username": username,
		"password": "password123",
	}))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	body := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	token, _ := (*body)["access_token"].(string)
	s.Require().NotEmpty(token)
	return token
}

func (s *RouterSuite) do(method, path, token string, body any) *http.Request {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (s *RouterSuite) registerProduct() string {
	rr := testutil.DoRequest(s.router, s.do(http.MethodPost, "/api/farmer/register-product", s.farmerToken, map[string]any{
		"name":          "Basmati Rice",
		"category":      "Grains",
		"quantity":      100,
		"unit":          "kg",
		"farmer_price":  80,
		"farm_location": "Village Khetpura, Punjab",
		"harvest_date":  "2025-09-15",
	}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	body := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	prod, _ := (*body)["product"].(map[string]any)
	qrCode, _ := prod["qr_code"].(string)
	s.Require().NotEmpty(qrCode)
	return qrCode
}

func (s *RouterSuite) TestHealthAndMetrics() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/health"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *RouterSuite) TestAuthFlow() {
	s.Run("duplicate registration conflicts", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/register", map[string]string{
			"username":  "farmer1",
			"email":     "farmer1@krishichain.com",
			"password":  "password123",
			"role":      "farmer",
			"full_name": "Rajesh Kumar",
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusConflict)
		testutil.AssertErrorCode(s.T(), rr, "conflict")
	})

	s.Run("bad credentials are unauthorized", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/login", map[string]string{
			"username": "farmer1",
			"password": "wrong",
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("protected routes reject missing and garbage tokens", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/farmer/register-product", map[string]any{}))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)

		rr = testutil.DoRequest(s.router, s.do(http.MethodPost, "/api/farmer/register-product", "not-a-token", map[string]any{}))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("logout succeeds with a valid token", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodPost, "/api/logout", s.farmerToken, nil))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})
}

func (s *RouterSuite) TestSupplyChainJourney() {
	qrCode := s.registerProduct()

	rr := testutil.DoRequest(s.router, s.do(http.MethodPost, "/api/distributor/add-record", s.distributorToken, map[string]any{
		"qr_code":            qrCode,
		"distributor_name":   "Punjab Grains Ltd",
		"storage_location":   "Delhi Warehouse",
		"distributor_margin": 15,
		"transport_date":     "2025-09-17",
	}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	rr = testutil.DoRequest(s.router, s.do(http.MethodPost, "/api/retailer/add-record", s.retailerToken, map[string]any{
		"qr_code":         qrCode,
		"shop_name":       "Fresh Mart",
		"final_price":     120,
		"retail_location": "Mumbai Central",
	}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	rr = testutil.DoRequest(s.router, s.do(http.MethodPost, "/api/customer/confirm", s.customerToken, map[string]any{
		"qr_code":           qrCode,
		"purchase_location": "Mumbai Central",
	}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	// Verification is public; no token required.
	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/verify-product/"+qrCode))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	report := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	s.Equal("customer", (*report)["current_stage"])
	s.Equal("Basmati Rice", (*report)["product_name"])
	s.NotNil((*report)["farmer"])
	s.NotNil((*report)["distributor"])
	s.NotNil((*report)["retailer"])
	s.NotNil((*report)["customer"])
	tracking, ok := (*report)["tracking"].([]any)
	s.Require().True(ok)
	s.Len(tracking, 4)
}

func (s *RouterSuite) TestStageOrderViolations() {
	qrCode := s.registerProduct()

	s.Run("skipping the distributor stage is a bad request", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodPost, "/api/retailer/add-record", s.retailerToken, map[string]any{
			"qr_code":         qrCode,
			"shop_name":       "Fresh Mart",
			"final_price":     120,
			"retail_location": "Mumbai Central",
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, "invalid_transition")
	})

	s.Run("wrong role for the stage is forbidden", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodPost, "/api/distributor/add-record", s.retailerToken, map[string]any{
			"qr_code":            qrCode,
			"distributor_name":   "Punjab Grains Ltd",
			"storage_location":   "Delhi Warehouse",
			"distributor_margin": 15,
			"transport_date":     "2025-09-17",
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	})

	s.Run("unknown qr code is not found", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodPost, "/api/distributor/add-record", s.distributorToken, map[string]any{
			"qr_code":            "QR-000000000000",
			"distributor_name":   "Punjab Grains Ltd",
			"storage_location":   "Delhi Warehouse",
			"distributor_margin": 15,
			"transport_date":     "2025-09-17",
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)

		rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/verify-product/QR-000000000000"))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})

	s.Run("missing required attributes are rejected", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodPost, "/api/distributor/add-record", s.distributorToken, map[string]any{
			"qr_code": qrCode,
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, "validation")
	})
}

func (s *RouterSuite) TestDashboard() {
	s.registerProduct()

	rr := testutil.DoRequest(s.router, s.do(http.MethodGet, "/api/dashboard", s.farmerToken, nil))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	body := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	s.Equal("farmer", (*body)["role"])
	products, ok := (*body)["products"].([]any)
	s.Require().True(ok)
	s.Len(products, 1)

	rr = testutil.DoRequest(s.router, s.do(http.MethodGet, "/api/dashboard", s.customerToken, nil))
	s.Require().Equal(http.StatusOK, rr.Code)
	body = testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	products, ok = (*body)["products"].([]any)
	s.Require().True(ok)
	s.Empty(products)
}
