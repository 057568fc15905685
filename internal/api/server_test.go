package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/edudonor/donation-api/internal/config"
	"github.com/edudonor/donation-api/internal/repository/dao"
)

const adminEmail = "admin@edudonor.org"

type testServer struct {
	t *testing.T
	s *Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, dao.InitTables(db))

	conf := &config.AppConfig{
		API: &config.APIConfig{
			Environment:   "test",
			BaseURL:       "https://edudonor.example",
			JWTSigningKey: "server-test-key",
			AdminEmails:   []string{adminEmail},
		},
		Gin:      &config.GinConfig{Mode: "test"},
		Postgres: &config.PostgresConfig{},
		Ledger: &config.LedgerConfig{
			PaymentDelay:  time.Millisecond,
			SubmitTimeout: 5 * time.Second,
			ReceiptPrefix: "EDU",
		},
		Cache:   &config.CacheConfig{TTL: time.Minute},
		Intake:  &config.IntakeConfig{SessionTTL: time.Hour},
		Storage: &config.StorageConfig{},
	}

	s, err := NewServer(conf, db)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return &testServer{t: t, s: s}
}

func (ts *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	ts.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.s.Router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) decode(w *httptest.ResponseRecorder, v interface{}) {
	ts.t.Helper()
	require.NoError(ts.t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// register signs up and logs in, returning the bearer token.
func (ts *testServer) register(email, name string) string {
	ts.t.Helper()

	w := ts.do(http.MethodPost, "/auth/signup", "", map[string]string{"email": email, "password": "secret123", "name": name})
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "secret123"})
	require.Equal(ts.t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	ts.decode(w, &resp)
	require.NotEmpty(ts.t, resp.Token)
	return resp.Token
}

func (ts *testServer) createCampaign(admin string, body map[string]interface{}) uint {
	ts.t.Helper()

	w := ts.do(http.MethodPost, "/admin/campaigns", admin, body)
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())

	var c struct {
		ID uint `json:"id"`
	}
	ts.decode(w, &c)
	return c.ID
}

type campaignBody struct {
	ID           uint    `json:"id"`
	Title        string  `json:"title"`
	RaisedAmount string  `json:"raised_amount"`
	IsActive     bool    `json:"is_active"`
	Progress     float64 `json:"progress"`
	GoalReached  bool    `json:"goal_reached"`
}

type viewBody struct {
	SessionID       string            `json:"session_id"`
	Step            string            `json:"step"`
	Amount          string            `json:"amount"`
	Presets         []string          `json:"presets"`
	Method          string            `json:"method"`
	Donor           map[string]string `json:"donor"`
	Errors          map[string]string `json:"errors"`
	LedgerError     string            `json:"ledger_error"`
	BackAvailable   bool              `json:"back_available"`
	SubmitAvailable bool              `json:"submit_available"`
	ReceiptNumber   string            `json:"receipt_number"`
	Redirect        string            `json:"redirect"`
}

func TestServer_Auth(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("Donor@Example.com", "Donor One")

	w := ts.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me map[string]interface{}
	ts.decode(w, &me)
	assert.Equal(t, "donor@example.com", me["email"])
	assert.Equal(t, false, me["is_admin"])

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{name: "duplicate email", method: http.MethodPost, path: "/auth/signup", body: map[string]string{"email": "donor@example.com", "password": "secret123", "name": "Again"}, status: http.StatusConflict},
		{name: "weak password", method: http.MethodPost, path: "/auth/signup", body: map[string]string{"email": "new@example.com", "password": "password", "name": "New"}, status: http.StatusBadRequest},
		{name: "wrong password", method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "donor@example.com", "password": "secret999"}, status: http.StatusUnauthorized},
		{name: "unknown email", method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "ghost@example.com", "password": "secret123"}, status: http.StatusUnauthorized},
		{name: "me without token", method: http.MethodGet, path: "/auth/me", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(tt.method, tt.path, "", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestServer_AdminCampaigns(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.register(adminEmail, "Admin")
	donor := ts.register("donor@example.com", "Donor")

	w := ts.do(http.MethodPost, "/admin/campaigns", donor, map[string]interface{}{"title": "Nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = ts.do(http.MethodGet, "/admin/campaigns", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	active := ts.createCampaign(admin, map[string]interface{}{"title": "Books for Thar", "urgency": "high", "target_amount": "1000"})
	hidden := ts.createCampaign(admin, map[string]interface{}{"title": "Closed drive", "is_active": false})

	w = ts.do(http.MethodGet, "/campaigns", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []campaignBody
	ts.decode(w, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, active, listed[0].ID)

	w = ts.do(http.MethodGet, "/campaigns?urgency=urgent", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(http.MethodGet, fmt.Sprintf("/campaigns/%d", hidden), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(http.MethodGet, "/campaigns/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, "/admin/campaigns", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ts.decode(w, &listed)
	assert.Len(t, listed, 2)

	w = ts.do(http.MethodPatch, fmt.Sprintf("/admin/campaigns/%d", hidden), admin, map[string]interface{}{"is_active": true, "raised_amount": "99999"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated campaignBody
	ts.decode(w, &updated)
	assert.True(t, updated.IsActive)
	assert.Equal(t, "0", updated.RaisedAmount)

	w = ts.do(http.MethodPatch, fmt.Sprintf("/admin/campaigns/%d", hidden), admin, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(http.MethodPatch, "/admin/campaigns/999", admin, map[string]interface{}{"title": "Ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, "/campaigns", "", nil)
	ts.decode(w, &listed)
	assert.Len(t, listed, 2, "listing reflects the update")

	w = ts.do(http.MethodDelete, fmt.Sprintf("/admin/campaigns/%d", hidden), admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(http.MethodDelete, fmt.Sprintf("/admin/campaigns/%d", hidden), admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, "/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]interface{}
	ts.decode(w, &stats)
	assert.EqualValues(t, 1, stats["total_campaigns"])
	assert.EqualValues(t, 1, stats["active_campaigns"])
}

func TestServer_ImageUploadWithoutStorage(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.register(adminEmail, "Admin")
	id := ts.createCampaign(admin, map[string]interface{}{"title": "Roof repair"})

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "roof.png")
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/admin/campaigns/%d/image", id), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	w := httptest.NewRecorder()
	ts.s.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_IntakeFlow(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.register(adminEmail, "Admin")
	donor := ts.register("sana@example.com", "Sana Ali")
	campaignID := ts.createCampaign(admin, map[string]interface{}{"title": "Books for Thar", "target_amount": "100"})

	w := ts.do(http.MethodPost, "/intake", "", map[string]interface{}{"campaign_id": 999})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPost, "/intake", "", map[string]interface{}{"campaign_id": campaignID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view viewBody
	ts.decode(w, &view)
	assert.Equal(t, "amount", view.Step)
	assert.Equal(t, "25", view.Amount)
	assert.Equal(t, []string{"10", "25", "50", "100", "250", "500"}, view.Presets)
	assert.False(t, view.BackAvailable)

	session := "/intake/" + view.SessionID
	act := func(token string, body map[string]interface{}) (*httptest.ResponseRecorder, viewBody) {
		t.Helper()
		w := ts.do(http.MethodPost, session+"/actions", token, body)
		var v viewBody
		if w.Code == http.StatusOK {
			ts.decode(w, &v)
		}
		return w, v
	}

	w, _ = act("", map[string]interface{}{"type": "back"})
	assert.Equal(t, http.StatusConflict, w.Code, "back is disabled on the amount step")

	w, view = act("", map[string]interface{}{"type": "select_preset", "amount": "50"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "50", view.Amount)

	w, view = act("", map[string]interface{}{"type": "continue"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "payment", view.Step)
	assert.Equal(t, "card", view.Method)
	assert.True(t, view.BackAvailable)

	w, _ = act("", map[string]interface{}{"type": "select_method", "method": "jazzcash"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "campaign donations are card only")

	w, view = act("", map[string]interface{}{"type": "submit"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, view.Errors, "donorName")
	assert.Contains(t, view.Errors, "cardNumber")

	for field, value := range map[string]string{
		"donorName":  "Sana Ali",
		"donorEmail": "sana@example.com",
		"cardNumber": "4242 4242 4242 4242",
		"expiry":     "12/30",
		"cvv":        "123",
	} {
		w, _ = act("", map[string]interface{}{"type": "edit_field", "field": field, "value": value})
		require.Equal(t, http.StatusOK, w.Code, field)
	}

	w, view = act("", map[string]interface{}{"type": "submit"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/auth", view.Redirect, "anonymous submit is sent to sign in")
	assert.Equal(t, "payment", view.Step)
	assert.Equal(t, "************4242", view.Donor["cardNumber"])

	w, view = act(donor, map[string]interface{}{"type": "submit"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmed", view.Step)
	assert.Regexp(t, `^EDU-\d{14}-[0-9A-F]{12}$`, view.ReceiptNumber)

	w, _ = act(donor, map[string]interface{}{"type": "back"})
	assert.Equal(t, http.StatusConflict, w.Code, "a confirmed attempt is final")

	w = ts.do(http.MethodGet, session, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ts.decode(w, &view)
	assert.Equal(t, "confirmed", view.Step)

	w = ts.do(http.MethodGet, fmt.Sprintf("/campaigns/%d", campaignID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var campaign campaignBody
	ts.decode(w, &campaign)
	assert.Equal(t, "50", campaign.RaisedAmount)
	assert.InDelta(t, 50, campaign.Progress, 0.001)

	w = ts.do(http.MethodGet, "/intake/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(http.MethodGet, "/intake/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_GeneralIntakePrefillsIdentity(t *testing.T) {
	ts := newTestServer(t)
	donor := ts.register("omar@example.com", "Omar Farooq")

	w := ts.do(http.MethodPost, "/intake", donor, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view viewBody
	ts.decode(w, &view)
	assert.Equal(t, "1000", view.Amount)

	w = ts.do(http.MethodPost, "/intake/"+view.SessionID+"/actions", donor, map[string]interface{}{"type": "continue"})
	require.Equal(t, http.StatusOK, w.Code)
	ts.decode(w, &view)
	assert.Equal(t, "jazzcash", view.Method)
	assert.Equal(t, "Omar Farooq", view.Donor["donorName"])
	assert.Equal(t, "omar@example.com", view.Donor["donorEmail"])
}

func TestServer_DonationsAndReceipts(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.register(adminEmail, "Admin")
	donor := ts.register("sana@example.com", "Sana Ali")
	other := ts.register("omar@example.com", "Omar Farooq")
	campaignID := ts.createCampaign(admin, map[string]interface{}{"title": "Books for Thar"})

	w := ts.do(http.MethodPost, "/donations", "", map[string]interface{}{"method": "card"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPost, "/donations", donor, map[string]interface{}{
		"campaign_id": campaignID, "amount": "500", "donor_name": "Sana Ali", "donor_email": "bad", "method": "card",
		"card_number": "4242424242424242", "expiry": "12/30", "cvv": "1",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var verr struct {
		Fields map[string]string `json:"fields"`
	}
	ts.decode(w, &verr)
	assert.Contains(t, verr.Fields, "donorEmail")
	assert.Contains(t, verr.Fields, "cvv")

	w = ts.do(http.MethodPost, "/donations", donor, map[string]interface{}{
		"campaign_id": 999, "amount": "500", "donor_name": "Sana Ali", "donor_email": "sana@example.com", "method": "easypaisa",
		"mobile_number": "03001234567",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPost, "/donations", donor, map[string]interface{}{
		"campaign_id": campaignID, "amount": "500", "donor_name": "Sana Ali", "donor_email": "sana@example.com", "method": "easypaisa",
		"mobile_number": "03001234567",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var donation struct {
		ReceiptNumber string `json:"receipt_number"`
	}
	ts.decode(w, &donation)

	w = ts.do(http.MethodGet, "/donations", donor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Donations []struct {
			ReceiptNumber string  `json:"receipt_number"`
			CampaignTitle *string `json:"campaign_title"`
		} `json:"donations"`
		TotalDonated string `json:"total_donated"`
	}
	ts.decode(w, &history)
	require.Len(t, history.Donations, 1)
	assert.Equal(t, "500", history.TotalDonated)
	require.NotNil(t, history.Donations[0].CampaignTitle)
	assert.Equal(t, "Books for Thar", *history.Donations[0].CampaignTitle)

	receiptPath := "/donations/" + donation.ReceiptNumber
	w = ts.do(http.MethodGet, receiptPath+"/receipt", donor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), donation.ReceiptNumber)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	w = ts.do(http.MethodGet, receiptPath+"/receipt", other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = ts.do(http.MethodGet, receiptPath+"/receipt", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(http.MethodGet, "/donations/EDU-NOPE/receipt", donor, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, receiptPath+"/qrcode", donor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	assert.NoError(t, err)

	w = ts.do(http.MethodGet, "/admin/reconciliation", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recon struct {
		Checked    int  `json:"checked"`
		Consistent bool `json:"consistent"`
	}
	ts.decode(w, &recon)
	assert.Equal(t, 1, recon.Checked)
	assert.True(t, recon.Consistent)

	w = ts.do(http.MethodDelete, fmt.Sprintf("/admin/campaigns/%d", campaignID), admin, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(http.MethodGet, "/donations", donor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history.Donations = nil
	ts.decode(w, &history)
	require.Len(t, history.Donations, 1, "donations outlive their campaign")
	assert.Nil(t, history.Donations[0].CampaignTitle)
}

func TestServer_Healthcheck(t *testing.T) {
	ts := newTestServer(t)

	w := httptest.NewRecorder()
	ts.s.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
