package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/equipcare/stockroom-backend/internal/accesslog"
	"github.com/equipcare/stockroom-backend/internal/catalog"
	"github.com/equipcare/stockroom-backend/internal/ledger"
	pkgAuth "github.com/equipcare/stockroom-backend/pkg/auth"
	"github.com/equipcare/stockroom-backend/pkg/config"
	"github.com/equipcare/stockroom-backend/pkg/db/models"
	"github.com/equipcare/stockroom-backend/pkg/ids"
	"github.com/equipcare/stockroom-backend/pkg/logger"
	"github.com/equipcare/stockroom-backend/pkg/metrics"
)

var routerDBSeq int64

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "stockroom-test",
			ExpirationMinutes: 60,
		},
		Idempotency: config.IdempotencyConfig{TTL: time.Hour},
	}
}

func newTestHandler(t *testing.T) (http.Handler, *gorm.DB, *config.Config) {
	t.Helper()

	dsn := fmt.Sprintf("file:router_%d?mode=memory&cache=shared", atomic.AddInt64(&routerDBSeq, 1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.EquipmentType{},
		&models.Supplier{},
		&models.Equipment{},
		&models.Lot{},
		&models.StockTransaction{},
		&models.LineItem{},
		&models.AccessLog{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	ledgerSvc, err := ledger.NewService(gormTxRunner{db: gdb}, ledger.NewRepository(gdb), metrics.NewLedgerMetrics(nil))
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	catalogSvc, err := catalog.NewService(catalog.NewRepository(gdb))
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	accessSvc, err := accesslog.NewService(accesslog.NewRepository(gdb))
	if err != nil {
		t.Fatalf("access log service: %v", err)
	}

	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "router-test"})
	handler := NewRouter(cfg, logg, stubPinger{}, nil, ledgerSvc, catalogSvc, accessSvc, nil)
	return handler, gdb, cfg
}

func seedLot(t *testing.T, gdb *gorm.DB, qty int) string {
	t.Helper()

	typeID := ids.New("TYP")
	if err := gdb.Create(&models.EquipmentType{ID: typeID, Name: "valves"}).Error; err != nil {
		t.Fatalf("seed type: %v", err)
	}
	eqID := ids.New(ids.PrefixEquipment)
	if err := gdb.Create(&models.Equipment{
		ID: eqID, TypeID: typeID, Code: "CODE-" + eqID, Name: "check valve", Unit: "pcs",
	}).Error; err != nil {
		t.Fatalf("seed equipment: %v", err)
	}
	lotID := ids.New(ids.PrefixLot)
	if err := gdb.Create(&models.Lot{
		ID: lotID, EquipmentID: eqID, ImportedAt: time.Now().UTC(), QuantityOnHand: qty,
	}).Error; err != nil {
		t.Fatalf("seed lot: %v", err)
	}
	return lotID
}

func mintToken(t *testing.T, cfg *config.Config, actorID string) string {
	t.Helper()

	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		ActorID: actorID,
		Name:    "Test Tech",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthz(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestWithdrawalFlow(t *testing.T) {
	handler, gdb, cfg := newTestHandler(t)
	lotID := seedLot(t, gdb, 10)
	token := mintToken(t, cfg, "tech-42")

	body := fmt.Sprintf(`{"items":[{"lot_id":%q,"quantity":4}]}`, lotID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/withdrawals", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Data struct {
			ID      string `json:"id"`
			Kind    string `json:"kind"`
			ActorID string `json:"actor_id"`
			Items   []struct {
				LotID    string `json:"lot_id"`
				Quantity int    `json:"quantity"`
			} `json:"items"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Kind != "withdraw" || envelope.Data.ActorID != "tech-42" {
		t.Fatalf("unexpected transaction: %+v", envelope.Data)
	}
	if len(envelope.Data.Items) != 1 || envelope.Data.Items[0].Quantity != 4 {
		t.Fatalf("unexpected items: %+v", envelope.Data.Items)
	}

	var lot models.Lot
	if err := gdb.Where("id = ?", lotID).First(&lot).Error; err != nil {
		t.Fatalf("load lot: %v", err)
	}
	if lot.QuantityOnHand != 6 {
		t.Fatalf("expected 6 on hand, got %d", lot.QuantityOnHand)
	}
}

func TestWithdrawalInsufficientStockStatus(t *testing.T) {
	handler, gdb, cfg := newTestHandler(t)
	lotID := seedLot(t, gdb, 3)
	token := mintToken(t, cfg, "tech-42")

	body := fmt.Sprintf(`{"items":[{"lot_id":%q,"quantity":5}]}`, lotID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/withdrawals", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "INSUFFICIENT_STOCK") {
		t.Fatalf("expected INSUFFICIENT_STOCK code in body: %s", w.Body.String())
	}
}

func TestReservationLifecycleOverHTTP(t *testing.T) {
	handler, gdb, cfg := newTestHandler(t)
	lotID := seedLot(t, gdb, 6)
	token := mintToken(t, cfg, "tech-7")

	send := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
		}
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	reserveBody := fmt.Sprintf(
		`{"scheduled_at":%q,"items":[{"lot_id":%q,"quantity":5}]}`,
		time.Now().Add(24*time.Hour).UTC().Format(time.RFC3339), lotID,
	)
	res := send(http.MethodPost, "/api/v1/reservations", reserveBody)
	if res.Code != http.StatusCreated {
		t.Fatalf("reserve: expected 201, got %d: %s", res.Code, res.Body.String())
	}
	var reserveEnvelope struct {
		Data struct {
			ID      string `json:"id"`
			Pending bool   `json:"pending"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&reserveEnvelope); err != nil {
		t.Fatalf("decode reservation: %v", err)
	}
	if !reserveEnvelope.Data.Pending {
		t.Fatal("new reservation must be pending")
	}
	reservationID := reserveEnvelope.Data.ID

	finalizeBody := fmt.Sprintf(`{"lot_id":%q,"used_quantity":2}`, lotID)
	fin := send(http.MethodPost, "/api/v1/reservations/"+reservationID+"/finalize", finalizeBody)
	if fin.Code != http.StatusCreated {
		t.Fatalf("finalize: expected 201, got %d: %s", fin.Code, fin.Body.String())
	}

	over := send(http.MethodPost, "/api/v1/reservations/"+reservationID+"/finalize",
		fmt.Sprintf(`{"lot_id":%q,"used_quantity":4}`, lotID))
	if over.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overconsumption: expected 422, got %d: %s", over.Code, over.Body.String())
	}

	ret := send(http.MethodPost, "/api/v1/reservations/"+reservationID+"/return-all",
		fmt.Sprintf(`{"lot_id":%q}`, lotID))
	if ret.Code != http.StatusCreated {
		t.Fatalf("return all: expected 201, got %d: %s", ret.Code, ret.Body.String())
	}

	get := send(http.MethodGet, "/api/v1/transactions/"+reservationID, "")
	if get.Code != http.StatusOK {
		t.Fatalf("get transaction: expected 200, got %d", get.Code)
	}
	if !strings.Contains(get.Body.String(), `"pending":false`) {
		t.Fatalf("reservation must be closed: %s", get.Body.String())
	}

	var lot models.Lot
	if err := gdb.Where("id = ?", lotID).First(&lot).Error; err != nil {
		t.Fatalf("load lot: %v", err)
	}
	if lot.QuantityOnHand != 9 {
		t.Fatalf("expected 9 on hand after reserved return, got %d", lot.QuantityOnHand)
	}
}
