package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/CMDAEW/isokalk/internal/db"
	"github.com/CMDAEW/isokalk/internal/invoice"
	"github.com/CMDAEW/isokalk/internal/loader"
	"github.com/CMDAEW/isokalk/internal/migrations"
	"github.com/CMDAEW/isokalk/internal/seed"
)

const testComponents = `name;kind
Rohrleitung;pipe_run
Behälter;flat
`

const testPrices = `component_identifier;nominal_diameter;outer_diameter;size;unit_price;unit;component_name
Rohrleitung;20;26,9;30;10,00;m;Rohrleitung DN 20
Rohrleitung;50;60,3;30;12,00;m;Rohrleitung DN 50
Rohrleitung;50;60,3;40;13,50;m;Rohrleitung DN 50
Behälter;;;30;20,00;m²;Behälter klein
`

func newTestServer(t *testing.T) *server {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "isokalk.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := seed.Run(database); err != nil {
		t.Fatalf("seed defaults: %v", err)
	}
	if _, err := loader.ReplaceComponents(database, strings.NewReader(testComponents)); err != nil {
		t.Fatalf("import components: %v", err)
	}
	if _, err := loader.ReplacePrices(database, strings.NewReader(testPrices)); err != nil {
		t.Fatalf("import prices: %v", err)
	}

	srv := &server{
		db:       database,
		invoices: invoice.NewStore(database),
		logger:   zap.NewNop(),
		currency: "EUR",
	}
	if err := srv.reloadCatalog(); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return srv
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				t.Fatalf("encode request body: %v", err)
			}
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response body: %v (body %q)", err, rec.Body.String())
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	var apiErr apiError
	decodeBody(t, rec, &apiErr)
	if apiErr.Code != want {
		t.Fatalf("error code = %q, want %q", apiErr.Code, want)
	}
}

func TestResolveEndpoint_FullSelection(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv.routes(), http.MethodPost, "/api/resolve", map[string]any{
		"component":        "Rohrleitung",
		"nominal_diameter": 50,
		"outer_diameter":   60.3,
		"size":             "30",
		"activity":         "Montage",
		"quantity":         "2,5",
	})
	assertStatus(t, rec, http.StatusOK)

	var resp resolveResponse
	decodeBody(t, rec, &resp)
	if !resp.Resolvable || resp.Line == nil {
		t.Fatalf("expected a resolvable selection, got %+v", resp)
	}
	if resp.Line.UnitPriceText != "12.00" {
		t.Errorf("unit price = %q, want 12.00", resp.Line.UnitPriceText)
	}
	if resp.Line.SubtotalText != "30.00" {
		t.Errorf("subtotal = %q, want 30.00", resp.Line.SubtotalText)
	}
	if resp.Line.PositionCode != "1.30" {
		t.Errorf("position code = %q, want 1.30", resp.Line.PositionCode)
	}
	if resp.Line.DisplayName != "Rohrleitung DN 50" {
		t.Errorf("display name = %q", resp.Line.DisplayName)
	}
}

func TestResolveEndpoint_FittingMarksUpPipeRunPrice(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv.routes(), http.MethodPost, "/api/resolve", map[string]any{
		"component":        "Bogen 90°",
		"nominal_diameter": 50,
		"outer_diameter":   60.3,
		"size":             "30",
		"activity":         "Montage",
		"quantity":         "1",
	})
	assertStatus(t, rec, http.StatusOK)

	var resp resolveResponse
	decodeBody(t, rec, &resp)
	if resp.Line == nil || resp.Line.UnitPriceText != "18.00" {
		t.Fatalf("fitting price = %+v, want 18.00", resp.Line)
	}
	if resp.Line.PositionCode != "2.30" {
		t.Errorf("position code = %q, want 2.30", resp.Line.PositionCode)
	}
}

func TestResolveEndpoint_IncompleteSelectionIsNotAnError(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv.routes(), http.MethodPost, "/api/resolve", map[string]any{
		"component":        "Rohrleitung",
		"nominal_diameter": 50,
		"activity":         "Montage",
	})
	assertStatus(t, rec, http.StatusOK)

	var resp resolveResponse
	decodeBody(t, rec, &resp)
	if resp.Resolvable || resp.Line != nil {
		t.Fatalf("expected an unresolvable selection, got %+v", resp)
	}
}

func TestResolveEndpoint_ErrorCodes(t *testing.T) {
	srv := newTestServer(t)
	routes := srv.routes()

	rec := doRequest(t, routes, http.MethodPost, "/api/resolve", map[string]any{
		"component": "Fernwärmeleitung",
		"size":      "30",
		"activity":  "Montage",
	})
	assertStatus(t, rec, http.StatusUnprocessableEntity)
	assertErrorCode(t, rec, "unknown_component")

	rec = doRequest(t, routes, http.MethodPost, "/api/resolve", map[string]any{
		"component":        "Rohrleitung",
		"nominal_diameter": 50,
		"outer_diameter":   60.3,
		"size":             "99",
		"activity":         "Montage",
	})
	assertStatus(t, rec, http.StatusUnprocessableEntity)
	assertErrorCode(t, rec, "no_price_found")

	rec = doRequest(t, routes, http.MethodPost, "/api/resolve", map[string]any{
		"component":        "Rohrleitung",
		"nominal_diameter": 50,
		"outer_diameter":   60.3,
		"size":             "30",
		"activity":         "Wartung",
	})
	assertStatus(t, rec, http.StatusUnprocessableEntity)
	assertErrorCode(t, rec, "no_activity_factor")

	rec = doRequest(t, routes, http.MethodPost, "/api/resolve", map[string]any{
		"component":        "Rohrleitung",
		"nominal_diameter": 50,
		"outer_diameter":   60.3,
		"size":             "30",
		"activity":         "Montage",
		"quantity":         "-2",
	})
	assertStatus(t, rec, http.StatusUnprocessableEntity)
	assertErrorCode(t, rec, "invalid_quantity")
}

func TestComponentsEndpoint_ListsCatalogAndFactorNames(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv.routes(), http.MethodGet, "/api/components", nil)
	assertStatus(t, rec, http.StatusOK)

	var resp componentsResponse
	decodeBody(t, rec, &resp)

	byName := map[string]componentInfo{}
	for _, c := range resp.Components {
		byName[c.Name] = c
	}
	if c := byName["Rohrleitung"]; c.Kind != "pipe_run" || !c.Dimensioned {
		t.Errorf("Rohrleitung = %+v", c)
	}
	if c := byName["Behälter"]; c.Kind != "flat" || c.Dimensioned {
		t.Errorf("Behälter = %+v", c)
	}
	if c := byName["Bogen 90°"]; c.Kind != "fitting" || !c.Dimensioned {
		t.Errorf("Bogen 90° = %+v", c)
	}

	wantActivities := []string{"Demontage", "Montage"}
	if len(resp.Activities) != len(wantActivities) {
		t.Fatalf("activities = %v", resp.Activities)
	}
	for i, name := range wantActivities {
		if resp.Activities[i] != name {
			t.Errorf("activities[%d] = %q, want %q", i, resp.Activities[i], name)
		}
	}
	if len(resp.Surcharges) != 5 {
		t.Errorf("surcharges = %v, want 5 entries", resp.Surcharges)
	}
}

func TestOptionsEndpoint_ComponentChange(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv.routes(), http.MethodGet,
		"/api/options?component=Rohrleitung&changed=component", nil)
	assertStatus(t, rec, http.StatusOK)

	var resp optionsResponse
	decodeBody(t, rec, &resp)
	if !resp.Dimensioned {
		t.Fatal("expected a dimensioned component")
	}
	if len(resp.Options.NominalDiameters) != 2 ||
		resp.Options.NominalDiameters[0] != 20 || resp.Options.NominalDiameters[1] != 50 {
		t.Errorf("nominal diameters = %v, want [20 50]", resp.Options.NominalDiameters)
	}
}

func TestOptionsEndpoint_DiameterChangeProjectsAndAdjusts(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv.routes(), http.MethodGet,
		"/api/options?component=Rohrleitung&nominal_diameter=50&outer_diameter=26,9&size=30&changed=nominal_diameter", nil)
	assertStatus(t, rec, http.StatusOK)

	var resp optionsResponse
	decodeBody(t, rec, &resp)
	if resp.Current.OuterDiameter == nil || *resp.Current.OuterDiameter != 60.3 {
		t.Errorf("outer diameter = %v, want fallback to 60.3", resp.Current.OuterDiameter)
	}
	if resp.Current.Size != "30" {
		t.Errorf("size = %q, want the still valid 30", resp.Current.Size)
	}
}

func TestOptionsEndpoint_FlatComponentHasNoDiameters(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv.routes(), http.MethodGet,
		"/api/options?component=Behälter&changed=component", nil)
	assertStatus(t, rec, http.StatusOK)

	var resp optionsResponse
	decodeBody(t, rec, &resp)
	if resp.Dimensioned {
		t.Fatal("flat components must not be dimensioned")
	}
	if len(resp.Options.NominalDiameters) != 0 || len(resp.Options.OuterDiameters) != 0 {
		t.Errorf("diameter options = %+v, want empty", resp.Options)
	}
	if len(resp.Options.Sizes) != 1 || resp.Options.Sizes[0] != "30" {
		t.Errorf("sizes = %v, want [30]", resp.Options.Sizes)
	}
}

func TestOptionsEndpoint_UnknownChangedField(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv.routes(), http.MethodGet,
		"/api/options?component=Rohrleitung&changed=colour", nil)
	assertStatus(t, rec, http.StatusBadRequest)
	assertErrorCode(t, rec, "invalid_field")
}

func TestInvoiceLifecycle(t *testing.T) {
	srv := newTestServer(t)
	routes := srv.routes()

	rec := doRequest(t, routes, http.MethodPost, "/api/invoices", map[string]any{
		"customer":   "Stadtwerke Essen",
		"title":      "Heizzentrale Nord",
		"surcharges": []string{"MwSt"},
	})
	assertStatus(t, rec, http.StatusCreated)

	var created invoiceResponse
	decodeBody(t, rec, &created)
	if created.ID == "" {
		t.Fatal("expected a generated invoice id")
	}

	rec = doRequest(t, routes, http.MethodPost, "/api/invoices/"+created.ID+"/lines", map[string]any{
		"component":        "Rohrleitung",
		"nominal_diameter": 50,
		"outer_diameter":   60.3,
		"size":             "30",
		"activity":         "Montage",
		"quantity":         "5",
	})
	assertStatus(t, rec, http.StatusCreated)

	var line invoiceLine
	decodeBody(t, rec, &line)
	if line.ID == 0 {
		t.Fatal("expected a persisted line id")
	}
	if line.SubtotalText != "60.00" {
		t.Errorf("line subtotal = %q, want 60.00", line.SubtotalText)
	}

	rec = doRequest(t, routes, http.MethodGet, "/api/invoices/"+created.ID, nil)
	assertStatus(t, rec, http.StatusOK)

	var loaded invoiceResponse
	decodeBody(t, rec, &loaded)
	if len(loaded.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(loaded.Lines))
	}
	if loaded.Totals == nil {
		t.Fatal("expected totals in the invoice response")
	}
	if loaded.Totals.NetText != "60.00" {
		t.Errorf("net = %q, want 60.00", loaded.Totals.NetText)
	}
	if loaded.Totals.GrandText != "71.40" {
		t.Errorf("grand total = %q, want 71.40 after 19 percent", loaded.Totals.GrandText)
	}

	rec = doRequest(t, routes, http.MethodGet, "/api/invoices/?q=Essen", nil)
	assertStatus(t, rec, http.StatusOK)
	var summaries []map[string]any
	decodeBody(t, rec, &summaries)
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(summaries))
	}
	if summaries[0]["net_text"] != "60.00" {
		t.Errorf("summary net = %v, want 60.00", summaries[0]["net_text"])
	}

	lineURL := "/api/invoices/" + created.ID + "/lines/" + strconv.FormatInt(line.ID, 10)
	rec = doRequest(t, routes, http.MethodDelete, lineURL, nil)
	assertStatus(t, rec, http.StatusNoContent)

	rec = doRequest(t, routes, http.MethodDelete, lineURL, nil)
	assertStatus(t, rec, http.StatusNotFound)
}

func TestInvoiceCreate_UnknownSurchargeRejected(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv.routes(), http.MethodPost, "/api/invoices", map[string]any{
		"customer":   "Stadtwerke Essen",
		"surcharges": []string{"Expresszuschlag"},
	})
	assertStatus(t, rec, http.StatusUnprocessableEntity)
	assertErrorCode(t, rec, "no_surcharge_factor")
}

func TestInvoiceGet_Missing(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv.routes(), http.MethodGet, "/api/invoices/no-such-id", nil)
	assertStatus(t, rec, http.StatusNotFound)
	assertErrorCode(t, rec, "not_found")
}

func TestInvoiceDocument(t *testing.T) {
	srv := newTestServer(t)
	routes := srv.routes()

	rec := doRequest(t, routes, http.MethodPost, "/api/invoices", map[string]any{
		"customer":   "Stadtwerke Essen",
		"surcharges": []string{"MwSt"},
	})
	assertStatus(t, rec, http.StatusCreated)
	var created invoiceResponse
	decodeBody(t, rec, &created)

	rec = doRequest(t, routes, http.MethodPost, "/api/invoices/"+created.ID+"/lines", map[string]any{
		"component":        "Rohrleitung",
		"nominal_diameter": 50,
		"outer_diameter":   60.3,
		"size":             "30",
		"activity":         "Montage",
		"quantity":         "5",
	})
	assertStatus(t, rec, http.StatusCreated)

	rec = doRequest(t, routes, http.MethodGet, "/api/invoices/"+created.ID+"/document", nil)
	assertStatus(t, rec, http.StatusOK)

	var doc struct {
		Currency   string `json:"currency"`
		Net        string `json:"net"`
		GrandTotal string `json:"grand_total"`
		Lines      []struct {
			Dimensions string `json:"dimensions"`
			Subtotal   string `json:"subtotal"`
		} `json:"lines"`
	}
	decodeBody(t, rec, &doc)
	if doc.Currency != "EUR" {
		t.Errorf("currency = %q, want EUR", doc.Currency)
	}
	if doc.Net != "60.00" || doc.GrandTotal != "71.40" {
		t.Errorf("net %q grand %q, want 60.00 and 71.40", doc.Net, doc.GrandTotal)
	}
	if len(doc.Lines) != 1 || doc.Lines[0].Dimensions != "DN 50 / DA 60.3 / 30" {
		t.Errorf("document lines = %+v", doc.Lines)
	}
}

func TestCatalogImport_ReplacesAndReloads(t *testing.T) {
	srv := newTestServer(t)
	routes := srv.routes()

	before := srv.store().Version()

	stream := `component_identifier;nominal_diameter;outer_diameter;size;unit_price;unit;component_name
Rohrleitung;25;33,7;40;11,00;m;Rohrleitung DN 25
Rohrleitung;kaputt;33,7;40;11,00;m;Rohrleitung DN 25
`
	rec := doRequest(t, routes, http.MethodPost, "/api/catalog/import?table=prices", stream)
	assertStatus(t, rec, http.StatusOK)

	var resp importResponse
	decodeBody(t, rec, &resp)
	if resp.Inserted != 1 {
		t.Errorf("inserted = %d, want 1", resp.Inserted)
	}
	if len(resp.Rejected) != 1 {
		t.Errorf("rejected = %+v, want 1 row", resp.Rejected)
	}
	if resp.CatalogVersion <= before {
		t.Errorf("catalog version = %d, want > %d", resp.CatalogVersion, before)
	}

	// The old grid must be gone and the new entry priceable.
	rec = doRequest(t, routes, http.MethodPost, "/api/resolve", map[string]any{
		"component":        "Rohrleitung",
		"nominal_diameter": 50,
		"outer_diameter":   60.3,
		"size":             "30",
		"activity":         "Montage",
	})
	assertStatus(t, rec, http.StatusUnprocessableEntity)
	assertErrorCode(t, rec, "no_price_found")

	rec = doRequest(t, routes, http.MethodPost, "/api/resolve", map[string]any{
		"component":        "Rohrleitung",
		"nominal_diameter": 25,
		"outer_diameter":   33.7,
		"size":             "40",
		"activity":         "Montage",
	})
	assertStatus(t, rec, http.StatusOK)
	var resolved resolveResponse
	decodeBody(t, rec, &resolved)
	if resolved.Line == nil || resolved.Line.UnitPriceText != "11.00" {
		t.Fatalf("resolved = %+v, want unit price 11.00", resolved.Line)
	}
}

func TestCatalogImport_UnknownTable(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv.routes(), http.MethodPost, "/api/catalog/import?table=colours", "a;b\n")
	assertStatus(t, rec, http.StatusUnprocessableEntity)
	assertErrorCode(t, rec, "import_failed")
}
