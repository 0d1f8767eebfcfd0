package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/techagentng/wastewatch/config"
	"github.com/techagentng/wastewatch/db/memory"
	"github.com/techagentng/wastewatch/logger"
	"github.com/techagentng/wastewatch/metrics"
	"github.com/techagentng/wastewatch/models"
	"github.com/techagentng/wastewatch/realtime"
	"github.com/techagentng/wastewatch/services"
	"github.com/techagentng/wastewatch/services/jwt"
)

const testSecret = "test-secret"

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

// =============================================================================
// HTTP Surface Test Suite
// =============================================================================

type ServerSuite struct {
	suite.Suite
	handler http.Handler
	store   *memory.Store
	hub     *realtime.Hub

	admin     uuid.UUID
	citizen   uuid.UUID
	authority uuid.UUID
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.T().Setenv("GIN_MODE", "test")

	s.handler = s.build(testServerConfig())
	s.admin, s.citizen = uuid.New(), uuid.New()
}

func testServerConfig() *config.Config {
	return &config.Config{
		JWTSecret:              testSecret,
		DefaultSubmissionLimit: 5,
		DefaultRewardPerReport: 10,
		GeoLookupTimeout:       time.Second,
		NotificationListLimit:  100,
		UploadRatePerMinute:    10,
		ReportRatePerMinute:    10,
	}
}

// build wires a server over a fresh memory store and returns its handler.
func (s *ServerSuite) build(conf *config.Config) http.Handler {
	if s.hub != nil {
		s.hub.Close()
	}
	log := logger.Discard()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	s.store = memory.New()
	reports, directory, notificationRepo, rewards, auth := s.store.Repositories()
	s.hub = realtime.NewHub(realtime.WithLogger(log), realtime.WithMetrics(m))

	notifications := services.NewNotificationService(notificationRepo, s.hub, conf, log, m)
	srv := &Server{
		Config:              conf,
		Logger:              log,
		Gatherer:            reg,
		AuthRepository:      auth,
		NotificationService: notifications,
		ReportService: services.NewReportService(reports, directory,
			services.NewGeoLocator(directory, conf, m), services.NewQuotaGuard(directory),
			notifications, conf, log, m),
		RewardService:    services.NewRewardService(rewards, directory, conf),
		AuthorityService: services.NewAuthorityService(directory, notifications, conf, log),
		CitizenService:   services.NewCitizenService(directory, conf),
		Hub:              s.hub,
	}
	return srv.Handler()
}

func (s *ServerSuite) TearDownTest() {
	s.hub.Close()
}

func (s *ServerSuite) token(subject uuid.UUID, role models.Role) string {
	tok, err := jwt.GenerateToken(subject.String(), string(role), testSecret, time.Hour)
	s.Require().NoError(err)
	return tok
}

func (s *ServerSuite) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") != "" && rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

// onboard registers and approves one authority and enrolls the citizen.
func (s *ServerSuite) onboard() {
	adminToken := s.token(s.admin, models.RoleAdmin)

	rec, env := s.do(http.MethodPost, "/api/v1/authorities/request", "", gin.H{
		"name":        "Ikeja LGA",
		"email":       "Waste@Ikeja.example ",
		"coordinates": []float64{3.35, 6.6},
		"address":     "Alausa, Ikeja",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var authority models.Authority
	s.Require().NoError(json.Unmarshal(env.Data, &authority))
	s.Equal("waste@ikeja.example", authority.Email)
	s.authority = authority.ID

	rec, _ = s.do(http.MethodPost, "/api/v1/authorities/"+authority.ID.String()+"/approve", adminToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(http.MethodPost, "/api/v1/citizens/me", s.token(s.citizen, models.RoleCitizen), gin.H{
		"name":  "Ada",
		"email": "ada@example.com",
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
}

func reportBody() gin.H {
	return gin.H{
		"location": gin.H{
			"coordinates": []float64{3.35, 6.61},
			"address":     "12 Market Road",
		},
		"category":    "Mixed",
		"description": "Overflowing bins near the market entrance",
		"imageUrl":    "https://images.example/bin.jpg",
	}
}

// =============================================================================
// Tests
// =============================================================================

func (s *ServerSuite) TestHealthAndMetrics() {
	rec, env := s.do(http.MethodGet, "/api/v1/healthz", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("ok", env.Message)

	rec, _ = s.do(http.MethodGet, "/api/v1/metrics", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "wastewatch_")
}

func (s *ServerSuite) TestAuthorization() {
	rec, _ := s.do(http.MethodGet, "/api/v1/reports", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/v1/reports", "not-a-jwt", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(http.MethodPatch, "/api/v1/reports/"+uuid.NewString()+"/status",
		s.token(s.citizen, models.RoleCitizen), gin.H{"status": "InProgress"})
	s.Equal(http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/v1/rewards/total", s.token(s.citizen, models.RoleCitizen), nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/v1/reports?token="+s.token(s.admin, models.RoleAdmin), "", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *ServerSuite) TestLogoutRevokesToken() {
	tok := s.token(s.admin, models.RoleAdmin)
	rec, _ := s.do(http.MethodPost, "/api/v1/auth/logout", tok, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec, env := s.do(http.MethodGet, "/api/v1/reports", tok, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("Access token is blacklisted", env.Message)
}

func (s *ServerSuite) TestReportLifecycle() {
	s.onboard()
	citizenToken := s.token(s.citizen, models.RoleCitizen)
	authorityToken := s.token(s.authority, models.RoleAuthority)

	rec, env := s.do(http.MethodPost, "/api/v1/reports", citizenToken, reportBody())
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.Contains(env.Message, "Waste report submitted successfully to Ikeja LGA")
	var created struct {
		Report   models.Report `json:"report"`
		Distance float64       `json:"distance"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &created))
	s.Equal(s.authority, created.Report.AssignedTo)
	s.Equal(models.StatusPending, created.Report.Status)
	reportPath := "/api/v1/reports/" + created.Report.ID.String()

	rec, env = s.do(http.MethodGet, "/api/v1/reports?status=Pending&category=All&sort=asc", authorityToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var listed []models.Report
	s.Require().NoError(json.Unmarshal(env.Data, &listed))
	s.Len(listed, 1)

	rec, env = s.do(http.MethodPatch, reportPath+"/status", authorityToken, gin.H{"status": "Resolved"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(env.Message, "Allowed: 'InProgress'")

	rec, _ = s.do(http.MethodPatch, reportPath+"/status", authorityToken, gin.H{"status": "In Progress"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec, env = s.do(http.MethodPatch, reportPath+"/status", authorityToken, gin.H{"status": "Resolved"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal("Status updated to 'Resolved' successfully.", env.Message)

	rec, _ = s.do(http.MethodPatch, reportPath+"/status", authorityToken, gin.H{"status": "Resolved"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, env = s.do(http.MethodGet, "/api/v1/rewards/balance", citizenToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var balance models.RewardBalance
	s.Require().NoError(json.Unmarshal(env.Data, &balance))
	s.Equal(10, balance.Balance)

	rec, _ = s.do(http.MethodGet, reportPath+"/reward", citizenToken, nil)
	s.Equal(http.StatusOK, rec.Code)

	rec, env = s.do(http.MethodGet, "/api/v1/notifications", citizenToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var inbox []models.Notification
	s.Require().NoError(json.Unmarshal(env.Data, &inbox))
	s.Require().Len(inbox, 1)

	rec, _ = s.do(http.MethodPatch, "/api/v1/notifications/"+inbox[0].ID.String()+"/read", citizenToken, nil)
	s.Equal(http.StatusOK, rec.Code)
	rec, _ = s.do(http.MethodDelete, "/api/v1/notifications/"+inbox[0].ID.String(), s.token(uuid.New(), models.RoleCitizen), nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec, env = s.do(http.MethodGet, "/api/v1/rewards/total", s.token(s.admin, models.RoleAdmin), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"total_balance":10}`, string(env.Data))
}

func (s *ServerSuite) TestCreateReportErrors() {
	s.onboard()
	citizenToken := s.token(s.citizen, models.RoleCitizen)

	body := reportBody()
	body["description"] = "short"
	rec, _ := s.do(http.MethodPost, "/api/v1/reports", citizenToken, body)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/v1/reports", s.token(uuid.New(), models.RoleCitizen), reportBody())
	s.Equal(http.StatusNotFound, rec.Code)

	for i := 0; i < 5; i++ {
		rec, _ = s.do(http.MethodPost, "/api/v1/reports", citizenToken, reportBody())
		s.Require().Equal(http.StatusCreated, rec.Code)
	}
	rec, env := s.do(http.MethodPost, "/api/v1/reports", citizenToken, reportBody())
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("Report limit reached. Only 5 reports allowed per day.", env.Message)
}

func (s *ServerSuite) TestAuthorityApprovalConflict() {
	s.onboard()
	rec, _ := s.do(http.MethodPost, "/api/v1/authorities/"+s.authority.String()+"/approve", s.token(s.admin, models.RoleAdmin), nil)
	s.Equal(http.StatusConflict, rec.Code)

	rec, env := s.do(http.MethodGet, "/api/v1/authorities?status=approved", s.token(s.admin, models.RoleAdmin), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var page models.AuthorityPage
	s.Require().NoError(json.Unmarshal(env.Data, &page))
	s.Len(page.Authorities, 1)

	rec, _ = s.do(http.MethodGet, "/api/v1/authorities?status=bogus", s.token(s.admin, models.RoleAdmin), nil)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *ServerSuite) TestAuthorityDirectory() {
	s.onboard()
	citizenToken := s.token(s.citizen, models.RoleCitizen)

	rec, env := s.do(http.MethodGet, "/api/v1/authorities?lat=6.6&lon=3.35&radius=5000&page=1&limit=5", citizenToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var page models.AuthorityPage
	s.Require().NoError(json.Unmarshal(env.Data, &page))
	s.EqualValues(1, page.Total)
	s.Equal(5, page.Limit)
	s.Require().Len(page.Authorities, 1)
	s.Require().NotNil(page.Authorities[0].Distance)
	s.Equal(s.authority, page.Authorities[0].ID)

	rec, env = s.do(http.MethodGet, "/api/v1/authorities?lat=0&lon=0&radius=1000", citizenToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("No authorities found matching the criteria.", env.Message)

	rec, env = s.do(http.MethodGet, "/api/v1/authorities?lat=6.6", citizenToken, nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Both latitude and longitude must be provided together.", env.Message)

	rec, _ = s.do(http.MethodGet, "/api/v1/authorities?lat=abc&lon=3.35", citizenToken, nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, env = s.do(http.MethodGet, "/api/v1/authorities/"+s.authority.String(), s.token(s.authority, models.RoleAuthority), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var authority models.Authority
	s.Require().NoError(json.Unmarshal(env.Data, &authority))
	s.Equal("Ikeja LGA", authority.Name)

	rec, _ = s.do(http.MethodGet, "/api/v1/authorities/"+uuid.NewString(), citizenToken, nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerSuite) TestRejectNeedsReason() {
	adminToken := s.token(s.admin, models.RoleAdmin)
	rec, env := s.do(http.MethodPost, "/api/v1/authorities/request", "", gin.H{
		"name":        "Epe LGA",
		"email":       "waste@epe.example",
		"coordinates": []float64{3.98, 6.58},
		"address":     "Epe",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var authority models.Authority
	s.Require().NoError(json.Unmarshal(env.Data, &authority))
	rejectPath := "/api/v1/authorities/" + authority.ID.String() + "/reject"

	rec, _ = s.do(http.MethodPost, rejectPath, adminToken, nil)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	rec, _ = s.do(http.MethodPost, rejectPath, adminToken, gin.H{"reason": " "})
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	rec, _ = s.do(http.MethodPost, rejectPath, adminToken, gin.H{"reason": "Duplicate registration"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec, env = s.do(http.MethodGet, "/api/v1/notifications", s.token(authority.ID, models.RoleAuthority), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var inbox []models.Notification
	s.Require().NoError(json.Unmarshal(env.Data, &inbox))
	s.Require().Len(inbox, 1)
	s.Contains(inbox[0].Message, "Reason: Duplicate registration")
}

func (s *ServerSuite) TestReportCreationIsRateLimited() {
	conf := testServerConfig()
	conf.ReportRatePerMinute = 1
	s.handler = s.build(conf)
	s.onboard()
	citizenToken := s.token(s.citizen, models.RoleCitizen)

	rec, _ := s.do(http.MethodPost, "/api/v1/reports", citizenToken, reportBody())
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := s.do(http.MethodPost, "/api/v1/reports", citizenToken, reportBody())
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Contains(env.Message, "too many requests")

	citizen, err := s.store.Directory().FindCitizenByID(context.Background(), s.citizen)
	s.Require().NoError(err)
	s.Equal(1, citizen.SubmissionCount)
}

func (s *ServerSuite) TestBlankSecretRejectsForgedTokens() {
	conf := testServerConfig()
	conf.JWTSecret = ""
	s.handler = s.build(conf)

	forged := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		jwt.ClaimSubject: s.admin.String(),
		jwt.ClaimRole:    string(models.RoleAdmin),
		"exp":            time.Now().Add(time.Hour).Unix(),
	})
	tok, err := forged.SignedString([]byte(""))
	s.Require().NoError(err)

	rec, _ := s.do(http.MethodGet, "/api/v1/rewards/total", tok, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}
