package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Simplici0/partquote/internal/cart"
	"github.com/Simplici0/partquote/internal/db"
	pkgerrors "github.com/Simplici0/partquote/internal/errors"
	"github.com/Simplici0/partquote/internal/logger"
	"github.com/Simplici0/partquote/internal/metrics"
	"github.com/Simplici0/partquote/internal/migrations"
	"github.com/Simplici0/partquote/internal/model"
	"github.com/Simplici0/partquote/internal/pricing"
	"github.com/Simplici0/partquote/internal/quotelog"
	"github.com/Simplici0/partquote/internal/registry"
	"github.com/Simplici0/partquote/internal/seed"
)

const (
	testAdminEmail    = "admin@partquote.test"
	testAdminPassword = "12345"
)

// fixedModel prices every row at price, failing the calls listed in fail.
type fixedModel struct {
	price float64
	fail  map[int]bool
	calls int
}

func (m *fixedModel) Name() string { return "fixed" }

func (m *fixedModel) Predict(_ context.Context, _ []float64) (float64, error) {
	m.calls++
	if m.fail[m.calls] {
		return 0, errors.New("model unavailable")
	}
	return m.price, nil
}

type recordingSink struct {
	quotes []quotelog.Quote
}

func (s *recordingSink) Write(_ context.Context, q quotelog.Quote) error {
	s.quotes = append(s.quotes, q)
	return nil
}

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	if err := migrations.Up(database.DB, ""); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if _, err := seed.Run(database, seed.Config{AdminEmail: testAdminEmail, AdminPassword: testAdminPassword}); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
	return database
}

func newTestServer(t *testing.T, m pricing.Model) *server {
	t.Helper()

	database := newTestDB(t)
	manifest, err := model.LoadManifest("../../model.yaml")
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	vocab, err := manifest.Encoder("")
	if err != nil {
		t.Fatalf("build vocabularies: %v", err)
	}
	aggregate, err := manifest.AggregateKind("")
	if err != nil {
		t.Fatalf("aggregate kind: %v", err)
	}
	builder, err := manifest.Builder(vocab, aggregate)
	if err != nil {
		t.Fatalf("build feature builder: %v", err)
	}

	promReg := prometheus.NewRegistry()
	pm := metrics.NewPricingMetrics(promReg)
	pricer, err := pricing.NewOrchestrator(pricing.OrchestratorParams{
		Builder:  builder,
		Model:    m,
		Metrics:  pm,
		Decimals: 2,
	})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	reg := registry.Default()
	return &server{
		auth:     newAuthService(database, "test-secret", false),
		db:       database,
		logg:     logger.Nop(),
		reg:      reg,
		carts:    newCartStore(reg, time.Hour, cart.WithItemCheck(builder.CheckItem)),
		vocab:    vocab,
		columns:  manifest.Columns(),
		model:    manifest.Label(),
		pricer:   pricer,
		quotes:   quotelog.NewSQLStore(database),
		metrics:  pm,
		gatherer: promReg,
		decimals: 2,
		now:      func() time.Time { return time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC) },
	}
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()

	rec := doRequest(t, h, http.MethodPost, "/login", map[string]string{
		"email":    "Admin@Partquote.test",
		"password": testAdminPassword,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login 200, got %d: %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatalf("expected %s cookie after login", sessionCookieName)
	return nil
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v: %s", err, rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		t.Fatalf("decode data: %v: %s", err, rec.Body.String())
	}
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var envelope errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v: %s", err, rec.Body.String())
	}
	return envelope.Error.Code
}

func shaftItem(id string, qty int) map[string]any {
	return map[string]any{
		"id":               id,
		"quantity":         qty,
		"shape":            "KR",
		"diameter_mm":      20,
		"length_mm":        100,
		"material_family":  "NEREZ",
		"grade":            "1.4301",
		"material_cost":    1.5,
		"cooperation_cost": 0,
		"time_per_unit_h":  0.5,
		"complexity":       3,
	}
}

func TestProtectedRoutesRequireLogin(t *testing.T) {
	srv := newTestServer(t, &fixedModel{price: 10})
	h := srv.routes()

	for _, path := range []string{"/api/cart", "/api/reference", "/quotes"} {
		rec := doRequest(t, h, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}

	rec := doRequest(t, h, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rec.Code)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	srv := newTestServer(t, &fixedModel{price: 10})
	h := srv.routes()

	rec := doRequest(t, h, http.MethodPost, "/login", map[string]string{
		"email":    testAdminEmail,
		"password": "wrong",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("expected no cookie on failed login")
	}
}

func TestPriceCartFlow(t *testing.T) {
	sink := &recordingSink{}
	srv := newTestServer(t, &fixedModel{price: 12.5})
	srv.sinks = sink
	h := srv.routes()
	cookie := login(t, h)

	rec := doRequest(t, h, http.MethodPut, "/api/cart/order", map[string]any{
		"quote_date": "2024-05-14",
		"customer":   "Tatra Hydraulik",
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected order 200, got %d: %s", rec.Code, rec.Body.String())
	}

	for i, qty := range []int{10, 25, 5} {
		rec = doRequest(t, h, http.MethodPost, "/api/cart/items", shaftItem("Diel_0"+string(rune('1'+i)), qty), cookie)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected add 201, got %d: %s", rec.Code, rec.Body.String())
		}
	}

	rec = doRequest(t, h, http.MethodPost, "/api/cart/price", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected price 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var priced priceView
	decodeData(t, rec, &priced)
	if priced.QuoteNumber != "Q-1001" {
		t.Fatalf("expected Q-1001, got %q", priced.QuoteNumber)
	}
	if priced.Priced != 3 || priced.Failed != 0 {
		t.Fatalf("expected 3 priced 0 failed, got %d/%d", priced.Priced, priced.Failed)
	}
	if !priced.Logged {
		t.Fatalf("expected quote to be logged")
	}
	if priced.Total == nil || *priced.Total != 500 {
		t.Fatalf("expected total 500, got %v", priced.Total)
	}
	if len(sink.quotes) != 1 || sink.quotes[0].Number != "Q-1001" {
		t.Fatalf("expected sink to receive Q-1001, got %+v", sink.quotes)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/cart", nil, cookie)
	var view cartView
	decodeData(t, rec, &view)
	if !view.FullyPriced || len(view.Items) != 3 {
		t.Fatalf("expected fully priced cart with 3 items, got %+v", view)
	}
	if view.Items[1].LineTotal == nil || *view.Items[1].LineTotal != 312.5 {
		t.Fatalf("expected second line total 312.5, got %v", view.Items[1].LineTotal)
	}

	rec = doRequest(t, h, http.MethodGet, "/quotes?q=Tatra", nil, cookie)
	var summaries []quotelog.Summary
	decodeData(t, rec, &summaries)
	if len(summaries) != 1 || summaries[0].ItemCount != 3 {
		t.Fatalf("expected one logged quote with 3 items, got %+v", summaries)
	}

	rec = doRequest(t, h, http.MethodGet, "/quotes/Q-1001/quote.txt", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected quote.txt 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "QUOTE Q-1001") {
		t.Fatalf("expected quote header in text, got:\n%s", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain, got %q", ct)
	}
}

func TestCartChangeInvalidatesPrices(t *testing.T) {
	srv := newTestServer(t, &fixedModel{price: 4})
	h := srv.routes()
	cookie := login(t, h)

	doRequest(t, h, http.MethodPut, "/api/cart/order", map[string]any{"customer": "Tatra Hydraulik"}, cookie)
	rec := doRequest(t, h, http.MethodPost, "/api/cart/items", shaftItem("A", 2), cookie)
	var first struct {
		Key string `json:"key"`
	}
	decodeData(t, rec, &first)
	doRequest(t, h, http.MethodPost, "/api/cart/price", nil, cookie)

	rec = doRequest(t, h, http.MethodPut, "/api/cart/items/"+first.Key, shaftItem("A", 3), cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected update 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodGet, "/api/cart", nil, cookie)
	var view cartView
	decodeData(t, rec, &view)
	if view.FullyPriced || view.Total != nil {
		t.Fatalf("expected prices cleared after update, got %+v", view)
	}
	if view.Items[0].PredictedPrice != nil {
		t.Fatalf("expected nil price after update")
	}
	if got := view.Order.QuoteDate.Format(dateLayout); got != "2024-05-14" {
		t.Fatalf("expected quote date to default to today, got %s", got)
	}

	rec = doRequest(t, h, http.MethodDelete, "/api/cart/items/"+first.Key, nil, cookie)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected delete 204, got %d", rec.Code)
	}
	rec = doRequest(t, h, http.MethodDelete, "/api/cart/items/"+first.Key, nil, cookie)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected second delete 404, got %d", rec.Code)
	}
}

func TestPriceCartReportsFailedItems(t *testing.T) {
	srv := newTestServer(t, &fixedModel{price: 7, fail: map[int]bool{2: true}})
	h := srv.routes()
	cookie := login(t, h)

	doRequest(t, h, http.MethodPut, "/api/cart/order", map[string]any{"customer": "Tatra Hydraulik"}, cookie)
	for _, id := range []string{"A", "B", "C"} {
		doRequest(t, h, http.MethodPost, "/api/cart/items", shaftItem(id, 1), cookie)
	}

	rec := doRequest(t, h, http.MethodPost, "/api/cart/price", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected price 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var priced priceView
	decodeData(t, rec, &priced)
	if priced.Priced != 2 || priced.Failed != 1 {
		t.Fatalf("expected 2 priced 1 failed, got %d/%d", priced.Priced, priced.Failed)
	}
	failed := priced.Items[1]
	if failed.Price != nil || failed.Error == nil || failed.Error.Code != string(pkgerrors.CodePrediction) {
		t.Fatalf("expected prediction error on item B, got %+v", failed)
	}
	if priced.Total != nil {
		t.Fatalf("expected no total for a partially priced cart")
	}
}

func TestPriceCartRejectsEmptyCartAndMissingOrder(t *testing.T) {
	srv := newTestServer(t, &fixedModel{price: 1})
	h := srv.routes()
	cookie := login(t, h)

	rec := doRequest(t, h, http.MethodPost, "/api/cart/price", nil, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty cart, got %d", rec.Code)
	}

	doRequest(t, h, http.MethodPost, "/api/cart/items", shaftItem("A", 1), cookie)
	rec = doRequest(t, h, http.MethodPost, "/api/cart/price", nil, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without order, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation code, got %s", code)
	}
}

func TestAddItemValidationError(t *testing.T) {
	srv := newTestServer(t, &fixedModel{price: 1})
	h := srv.routes()
	cookie := login(t, h)

	item := shaftItem("A", 0)
	rec := doRequest(t, h, http.MethodPost, "/api/cart/items", item, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	item = shaftItem("A", 1)
	item["colour"] = "red"
	rec = doRequest(t, h, http.MethodPost, "/api/cart/items", item, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestCartsAreIsolatedPerLogin(t *testing.T) {
	srv := newTestServer(t, &fixedModel{price: 1})
	h := srv.routes()
	first := login(t, h)
	second := login(t, h)

	doRequest(t, h, http.MethodPost, "/api/cart/items", shaftItem("A", 1), first)

	rec := doRequest(t, h, http.MethodGet, "/api/cart", nil, second)
	var view cartView
	decodeData(t, rec, &view)
	if len(view.Items) != 0 {
		t.Fatalf("expected second login to see an empty cart, got %d items", len(view.Items))
	}

	rec = doRequest(t, h, http.MethodPost, "/logout", nil, first)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected logout 204, got %d", rec.Code)
	}
	if srv.carts.size() != 1 {
		t.Fatalf("expected logout to drop its cart, got %d carts", srv.carts.size())
	}
}

func TestNextQuoteNumberNeverRepeatsBeforeSave(t *testing.T) {
	srv := newTestServer(t, &fixedModel{price: 1})

	a, err := srv.nextQuoteNumber(context.Background())
	if err != nil {
		t.Fatalf("next quote number: %v", err)
	}
	b, err := srv.nextQuoteNumber(context.Background())
	if err != nil {
		t.Fatalf("next quote number: %v", err)
	}
	if a != "Q-1001" || b != "Q-1002" {
		t.Fatalf("expected Q-1001 then Q-1002, got %s, %s", a, b)
	}
}

func TestReferenceListsModelAndVocabularies(t *testing.T) {
	srv := newTestServer(t, &fixedModel{price: 1})
	h := srv.routes()
	cookie := login(t, h)

	rec := doRequest(t, h, http.MethodGet, "/api/reference", nil, cookie)
	var view referenceView
	decodeData(t, rec, &view)
	if view.Model.Name != "turned-parts-linear@2024.3" {
		t.Fatalf("unexpected model label %q", view.Model.Name)
	}
	if len(view.Model.Columns) != 16 {
		t.Fatalf("expected 16 columns, got %d", len(view.Model.Columns))
	}
	if got := view.Vocabularies["shape"]; len(got) != 3 || got[0] != "KR" {
		t.Fatalf("unexpected shape vocabulary %v", got)
	}
	if len(view.Families) != 4 {
		t.Fatalf("expected 4 material families, got %d", len(view.Families))
	}
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	srv := newTestServer(t, &fixedModel{price: 1})
	h := srv.routes()
	srv.metrics.IncQuoteLogged()

	rec := doRequest(t, h, http.MethodGet, "/metrics", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "partquote_quotes_logged_total 1") {
		t.Fatalf("expected quotes logged counter, got:\n%s", rec.Body.String())
	}
}

func setOrder(t *testing.T, h http.Handler, cookie *http.Cookie, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, h, http.MethodPut, "/api/cart/order", body, cookie)
}

func priceCart(t *testing.T, h http.Handler, cookie *http.Cookie) priceView {
	t.Helper()

	rec := doRequest(t, h, http.MethodPost, "/api/cart/price", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected price 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var priced priceView
	decodeData(t, rec, &priced)
	return priced
}

func storedQuote(t *testing.T, h http.Handler, cookie *http.Cookie, number string) quotelog.Quote {
	t.Helper()

	rec := doRequest(t, h, http.MethodGet, "/quotes/"+number, nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected quote %s, got %d: %s", number, rec.Code, rec.Body.String())
	}
	var q quotelog.Quote
	decodeData(t, rec, &q)
	return q
}

func TestOrderUpdateKeepsAssignedQuoteNumber(t *testing.T) {
	srv := newTestServer(t, &fixedModel{price: 2})
	h := srv.routes()
	cookie := login(t, h)

	setOrder(t, h, cookie, map[string]any{"customer": "Tatra Hydraulik"})
	doRequest(t, h, http.MethodPost, "/api/cart/items", shaftItem("A", 1), cookie)
	if got := priceCart(t, h, cookie).QuoteNumber; got != "Q-1001" {
		t.Fatalf("expected Q-1001, got %s", got)
	}

	rec := setOrder(t, h, cookie, map[string]any{"customer": "Brno Automation"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected order 200, got %d: %s", rec.Code, rec.Body.String())
	}
	priced := priceCart(t, h, cookie)
	if priced.QuoteNumber != "Q-1001" || !priced.Logged {
		t.Fatalf("expected re-pricing to replace Q-1001, got %+v", priced)
	}

	if q := storedQuote(t, h, cookie, "Q-1001"); q.Customer != "Brno Automation" {
		t.Fatalf("expected stored quote to follow the order change, got %s", q.Customer)
	}
	var summaries []quotelog.Summary
	decodeData(t, doRequest(t, h, http.MethodGet, "/quotes", nil, cookie), &summaries)
	if len(summaries) != 1 {
		t.Fatalf("expected one stored quote, got %+v", summaries)
	}
}

func TestQuoteNumberStoredByAnotherCartIsRejected(t *testing.T) {
	srv := newTestServer(t, &fixedModel{price: 2})
	h := srv.routes()
	first := login(t, h)
	second := login(t, h)

	setOrder(t, h, first, map[string]any{"customer": "Tatra Hydraulik", "quote_number": "ACME-7"})
	doRequest(t, h, http.MethodPost, "/api/cart/items", shaftItem("A", 1), first)
	doRequest(t, h, http.MethodPost, "/api/cart/items", shaftItem("B", 2), first)
	if got := priceCart(t, h, first).QuoteNumber; got != "ACME-7" {
		t.Fatalf("expected ACME-7, got %s", got)
	}

	rec := setOrder(t, h, second, map[string]any{"customer": "Brno Automation", "quote_number": "ACME-7"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a taken number, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = setOrder(t, h, second, map[string]any{"customer": "Brno Automation", "quote_number": "Q-1001"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a hand-typed generated number, got %d: %s", rec.Code, rec.Body.String())
	}

	q := storedQuote(t, h, first, "ACME-7")
	if q.Customer != "Tatra Hydraulik" || len(q.Items) != 2 {
		t.Fatalf("expected ACME-7 untouched, got %s with %d items", q.Customer, len(q.Items))
	}
}

func TestPricingRejectsNumberStoredMeanwhile(t *testing.T) {
	srv := newTestServer(t, &fixedModel{price: 2})
	h := srv.routes()
	first := login(t, h)
	second := login(t, h)

	for _, cookie := range []*http.Cookie{first, second} {
		rec := setOrder(t, h, cookie, map[string]any{"customer": "Tatra Hydraulik", "quote_number": "ACME-9"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected order 200, got %d: %s", rec.Code, rec.Body.String())
		}
		doRequest(t, h, http.MethodPost, "/api/cart/items", shaftItem("A", 1), cookie)
	}

	priceCart(t, h, first)
	rec := doRequest(t, h, http.MethodPost, "/api/cart/price", nil, second)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := decodeErrorCode(t, rec); code != string(pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict code, got %s", code)
	}
}

func TestAddItemRequiresGradeBoundByModel(t *testing.T) {
	srv := newTestServer(t, &fixedModel{price: 1})
	h := srv.routes()
	cookie := login(t, h)

	item := shaftItem("A", 1)
	delete(item, "grade")
	rec := doRequest(t, h, http.MethodPost, "/api/cart/items", item, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a gradeless item, got %d: %s", rec.Code, rec.Body.String())
	}

	var view cartView
	decodeData(t, doRequest(t, h, http.MethodGet, "/api/cart", nil, cookie), &view)
	if len(view.Items) != 0 {
		t.Fatalf("expected the rejected item to stay out of the cart, got %d items", len(view.Items))
	}
}

func TestSnapshotFailureIsLogged(t *testing.T) {
	s := newTestServer(t, &fixedModel{price: 100})
	var buf bytes.Buffer
	s.logg = logger.New(logger.Options{ServiceName: "test", Output: &buf})

	c := cart.New(registry.Default())
	if _, ok := s.snapshotQuote(context.Background(), c); ok {
		t.Fatalf("expected snapshot of an unnumbered cart to fail")
	}

	logged := buf.String()
	if !strings.Contains(logged, "quotelog.snapshot.failed") {
		t.Fatalf("expected snapshot failure to be logged, got %q", logged)
	}
	if !strings.Contains(logged, "quote number is required") {
		t.Fatalf("expected logged error to name the cause, got %q", logged)
	}
}
