package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/loyalty/internal/config"
	"github.com/example/loyalty/internal/database"
	"github.com/example/loyalty/internal/handlers"
	"github.com/example/loyalty/internal/models"
	"github.com/example/loyalty/internal/rewards"
	"github.com/example/loyalty/internal/services"
	"github.com/example/loyalty/internal/utils"
)

type testEnv struct {
	app        *fiber.App
	db         *gorm.DB
	cfg        *config.Config
	adminToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret:      "routes-test-secret",
		JWTTTLHours:    1,
		ScanRateLimit:  100,
		ScanRateWindow: time.Minute,
	}
	svc := services.NewRewardService(db, rewards.DefaultSchedule(), services.NewGormPurchaseAggregator(db), time.UTC, nil)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	Register(app, db, cfg, svc)

	admin := models.Member{
		MemberCode:       "ADMIN0001",
		FirstName:        "Admin",
		Phone:            "+998900000000",
		Role:             models.RoleAdmin,
		TotalCashRewards: decimal.Zero,
	}
	require.NoError(t, db.Create(&admin).Error)
	token, err := utils.GenerateToken(cfg.JWTSecret, admin.ID, admin.Role, cfg.TokenExpires())
	require.NoError(t, err)

	return &testEnv{app: app, db: db, cfg: cfg, adminToken: token}
}

func (e *testEnv) call(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func data(t *testing.T, payload map[string]interface{}) map[string]interface{} {
	t.Helper()
	out, ok := payload["data"].(map[string]interface{})
	require.True(t, ok, "payload has no data object: %v", payload)
	return out
}

func (e *testEnv) registerMember(t *testing.T, phone string) (string, string) {
	t.Helper()
	status, payload := e.call(t, "POST", "/api/auth/register", "", fiber.Map{
		"first_name": "Aziza",
		"last_name":  "Karimova",
		"phone":      phone,
		"password":   "secret123",
	})
	require.Equal(t, fiber.StatusCreated, status, payload)

	member := payload["member"].(map[string]interface{})
	return member["member_code"].(string), payload["token"].(string)
}

func (e *testEnv) createProduct(t *testing.T, qr string, price float64, points int64) {
	t.Helper()
	status, payload := e.call(t, "POST", "/api/admin/products", e.adminToken, fiber.Map{
		"name":    "Product " + qr,
		"qr_code": qr,
		"price":   price,
		"points":  points,
	})
	require.Equal(t, fiber.StatusCreated, status, payload)
}

func currentPeriod() string {
	now := time.Now().UTC()
	return fmt.Sprintf("%d/%d", now.Year(), int(now.Month()))
}

func TestRewardLifecycle(t *testing.T) {
	env := newTestEnv(t)
	code, token := env.registerMember(t, "+998901234567")
	assert.Regexp(t, `^LM\d{8}$`, code)

	env.createProduct(t, "QR-TV", 250000, 50)
	for i := 0; i < 2; i++ {
		status, payload := env.call(t, "POST", "/api/scans", token, fiber.Map{"qr_code": "QR-TV"})
		require.Equal(t, fiber.StatusCreated, status, payload)
	}

	status, payload := env.call(t, "GET", "/api/profile", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 100, data(t, payload)["points_balance"])

	period := currentPeriod()
	base := "/api/admin/rewards/" + code + "/" + period

	status, payload = env.call(t, "GET", base, env.adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	reward := data(t, payload)
	assert.EqualValues(t, 500000, reward["totalPurchaseValue"])
	assert.Equal(t, false, reward["rewardCalculated"])

	status, payload = env.call(t, "POST", base+"/calculate", env.adminToken, nil)
	require.Equal(t, fiber.StatusOK, status, payload)
	reward = data(t, payload)
	assert.Equal(t, code, reward["memberId"])
	assert.EqualValues(t, 23750, reward["cashReward"])
	assert.Equal(t, true, reward["rewardCalculated"])

	breakdown := reward["breakdown"].([]interface{})
	require.Len(t, breakdown, 2)
	first := breakdown[0].(map[string]interface{})
	assert.Equal(t, "0 - 250,000", first["tierLabel"])
	assert.Equal(t, "4.50%", first["ratePercentString"])
	assert.EqualValues(t, 11250, first["reward"])

	status, payload = env.call(t, "GET", "/api/profile/rewards/"+period, token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 23750, data(t, payload)["cashReward"])

	status, payload = env.call(t, "PUT", base+"/paid", env.adminToken, nil)
	require.Equal(t, fiber.StatusOK, status, payload)
	paid := data(t, payload)
	assert.Equal(t, true, paid["rewardPaid"])
	assert.Equal(t, false, paid["alreadyPaid"])
	assert.NotNil(t, paid["rewardPaidDate"])
	assert.EqualValues(t, 23750, paid["totalCashRewards"])

	status, payload = env.call(t, "PUT", base+"/paid", env.adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	paid = data(t, payload)
	assert.Equal(t, true, paid["alreadyPaid"])
	assert.EqualValues(t, 23750, paid["totalCashRewards"])

	status, payload = env.call(t, "GET", "/api/profile", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 23750, data(t, payload)["total_cash_rewards"])

	status, payload = env.call(t, "GET", "/api/profile/transactions?type="+models.RewardTransactionCashRewardPaid, token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, payload["data"], 1)
}

func TestRewardErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	code, _ := env.registerMember(t, "+998907654321")

	status, payload := env.call(t, "GET", "/api/admin/rewards/NOPE/2026/3", env.adminToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, false, payload["success"])
	assert.NotEmpty(t, payload["error"])

	status, _ = env.call(t, "POST", "/api/admin/rewards/"+code+"/2026/13/calculate", env.adminToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.call(t, "POST", "/api/admin/rewards/"+code+"/abc/3/calculate", env.adminToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.call(t, "PUT", "/api/admin/rewards/"+code+"/2026/3/paid", env.adminToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)
	code, token := env.registerMember(t, "+998901112233")

	status, _ := env.call(t, "POST", "/api/admin/rewards/"+code+"/2026/3/calculate", token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = env.call(t, "GET", "/api/admin/stats", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = env.call(t, "GET", "/api/admin/stats", env.adminToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestScanUnknownProduct(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerMember(t, "+998904445566")

	status, _ := env.call(t, "POST", "/api/scans", token, fiber.Map{"qr_code": "missing"})
	assert.Equal(t, fiber.StatusNotFound, status)

	env.createProduct(t, "QR-OFF", 1000, 1)
	var product models.Product
	require.NoError(t, env.db.First(&product, "qr_code = ?", "QR-OFF").Error)
	status, _ = env.call(t, "DELETE", "/api/admin/products/"+product.ID.String(), env.adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = env.call(t, "POST", "/api/scans", token, fiber.Map{"qr_code": "QR-OFF"})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestBatchCalculateAndList(t *testing.T) {
	env := newTestEnv(t)
	_, tokenA := env.registerMember(t, "+998900000001")
	_, tokenB := env.registerMember(t, "+998900000002")

	env.createProduct(t, "QR-A", 1000, 1)
	env.createProduct(t, "QR-B", 600000, 10)
	_, _ = env.call(t, "POST", "/api/scans", tokenA, fiber.Map{"qr_code": "QR-A"})
	_, _ = env.call(t, "POST", "/api/scans", tokenB, fiber.Map{"qr_code": "QR-B"})

	period := currentPeriod()
	status, payload := env.call(t, "POST", "/api/admin/rewards/"+period+"/calculate", env.adminToken, nil)
	require.Equal(t, fiber.StatusOK, status, payload)
	summary := data(t, payload)
	assert.EqualValues(t, 2, summary["processed"])
	assert.EqualValues(t, 2, summary["succeeded"])

	status, payload = env.call(t, "GET", "/api/admin/rewards/"+period, env.adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	items := payload["data"].([]interface{})
	require.Len(t, items, 2)
	top := items[0].(map[string]interface{})
	assert.EqualValues(t, 29250, top["cashReward"])
}

func TestScanRateLimit(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.ScanRateLimit = 1
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	svc := services.NewRewardService(env.db, rewards.DefaultSchedule(), services.NewGormPurchaseAggregator(env.db), time.UTC, nil)
	Register(app, env.db, env.cfg, svc)
	env.app = app

	_, token := env.registerMember(t, "+998909998877")
	env.createProduct(t, "QR-RL", 10, 1)

	status, _ := env.call(t, "POST", "/api/scans", token, fiber.Map{"qr_code": "QR-RL"})
	assert.Equal(t, fiber.StatusCreated, status)
	status, _ = env.call(t, "POST", "/api/scans", token, fiber.Map{"qr_code": "QR-RL"})
	assert.Equal(t, fiber.StatusTooManyRequests, status)
}
