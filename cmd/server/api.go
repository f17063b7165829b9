package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/CMDAEW/isokalk/internal/catalog"
	"github.com/CMDAEW/isokalk/internal/invoice"
	"github.com/CMDAEW/isokalk/internal/loader"
	"github.com/CMDAEW/isokalk/internal/pricing"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type selectionRequest struct {
	Component       string   `json:"component"`
	NominalDiameter *float64 `json:"nominal_diameter"`
	OuterDiameter   *float64 `json:"outer_diameter"`
	Size            string   `json:"size"`
	Activity        string   `json:"activity"`
	Surcharges      []string `json:"surcharges"`
	// Quantity arrives as entered in the form, so "2,5" is as valid as "2.5".
	Quantity string `json:"quantity"`
}

type lineResponse struct {
	PositionCode    string   `json:"position_code"`
	Component       string   `json:"component"`
	DisplayName     string   `json:"display_name"`
	NominalDiameter *float64 `json:"nominal_diameter,omitempty"`
	OuterDiameter   *float64 `json:"outer_diameter,omitempty"`
	Size            string   `json:"size"`
	Activity        string   `json:"activity"`
	Surcharges      []string `json:"surcharges"`
	Unit            string   `json:"unit"`
	UnitPrice       float64  `json:"unit_price"`
	UnitPriceText   string   `json:"unit_price_text"`
	Quantity        float64  `json:"quantity"`
	Subtotal        float64  `json:"subtotal"`
	SubtotalText    string   `json:"subtotal_text"`
}

func toLineResponse(l pricing.Line) lineResponse {
	return lineResponse{
		PositionCode:    l.PositionCode,
		Component:       l.Component,
		DisplayName:     l.DisplayName,
		NominalDiameter: l.NominalDiameter,
		OuterDiameter:   l.OuterDiameter,
		Size:            l.Size,
		Activity:        l.Activity,
		Surcharges:      l.Surcharges,
		Unit:            l.Unit,
		UnitPrice:       l.UnitPrice,
		UnitPriceText:   pricing.FormatAmount(l.UnitPrice),
		Quantity:        l.Quantity,
		Subtotal:        l.Subtotal,
		SubtotalText:    pricing.FormatAmount(l.Subtotal),
	}
}

type componentsResponse struct {
	Components []componentInfo `json:"components"`
	Activities []string        `json:"activities"`
	Surcharges []string        `json:"surcharges"`
}

type componentInfo struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Dimensioned bool   `json:"dimensioned"`
}

func (s *server) handleComponents(w http.ResponseWriter, r *http.Request) {
	store := s.store()
	resp := componentsResponse{
		Activities: store.FactorNames(catalog.FactorActivity),
		Surcharges: store.FactorNames(catalog.FactorSurcharge),
	}
	for _, c := range store.Components() {
		resp.Components = append(resp.Components, componentInfo{
			Name:        c.Name,
			Kind:        string(c.Kind),
			Dimensioned: c.Kind.Dimensioned(),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type optionsResponse struct {
	Dimensioned bool              `json:"dimensioned"`
	Current     dimensionsPayload `json:"current"`
	Options     optionsPayload    `json:"options"`
}

type dimensionsPayload struct {
	NominalDiameter *float64 `json:"nominal_diameter,omitempty"`
	OuterDiameter   *float64 `json:"outer_diameter,omitempty"`
	Size            string   `json:"size"`
}

type optionsPayload struct {
	NominalDiameters []float64 `json:"nominal_diameters"`
	OuterDiameters   []float64 `json:"outer_diameters"`
	Sizes            []string  `json:"sizes"`
}

// handleOptions recomputes the dependent dimension choices after the user
// edited one selection field. The edited field is named in "changed".
func (s *server) handleOptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	changed := catalog.Field(q.Get("changed"))
	switch changed {
	case catalog.FieldComponent, catalog.FieldNominalDiameter, catalog.FieldOuterDiameter, catalog.FieldSize:
	case "":
		changed = catalog.FieldComponent
	default:
		s.writeError(w, http.StatusBadRequest, "invalid_field", "unknown changed field "+strconv.Quote(q.Get("changed")))
		return
	}

	current := catalog.Dimensions{Size: q.Get("size")}
	var err error
	if current.NominalDiameter, err = parseDiameter(q.Get("nominal_diameter")); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_diameter", err.Error())
		return
	}
	if current.OuterDiameter, err = parseDiameter(q.Get("outer_diameter")); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_diameter", err.Error())
		return
	}

	res := s.store().Narrow(q.Get("component"), current, changed)
	s.writeJSON(w, http.StatusOK, optionsResponse{
		Dimensioned: res.Dimensioned,
		Current: dimensionsPayload{
			NominalDiameter: res.Current.NominalDiameter,
			OuterDiameter:   res.Current.OuterDiameter,
			Size:            res.Current.Size,
		},
		Options: optionsPayload{
			NominalDiameters: res.Options.NominalDiameters,
			OuterDiameters:   res.Options.OuterDiameters,
			Sizes:            res.Options.Sizes,
		},
	})
}

type resolveResponse struct {
	Resolvable bool          `json:"resolvable"`
	Line       *lineResponse `json:"line,omitempty"`
}

func (s *server) handleResolve(w http.ResponseWriter, r *http.Request) {
	line, ok := s.resolveSelection(w, r)
	if !ok {
		return
	}
	if line == nil {
		s.writeJSON(w, http.StatusOK, resolveResponse{Resolvable: false})
		return
	}
	resp := toLineResponse(*line)
	s.writeJSON(w, http.StatusOK, resolveResponse{Resolvable: true, Line: &resp})
}

// resolveSelection decodes a selection request and prices it against the
// current catalog. A nil line with ok=true means the selection is still
// incomplete, which is not an error condition.
func (s *server) resolveSelection(w http.ResponseWriter, r *http.Request) (*pricing.Line, bool) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return nil, false
	}

	sel := pricing.Selection{
		Component:       req.Component,
		NominalDiameter: req.NominalDiameter,
		OuterDiameter:   req.OuterDiameter,
		Size:            req.Size,
		Activity:        req.Activity,
		Surcharges:      req.Surcharges,
		Quantity:        1,
	}
	if strings.TrimSpace(req.Quantity) != "" {
		qty, err := pricing.ParseQuantity(req.Quantity)
		if err != nil {
			s.writeError(w, http.StatusUnprocessableEntity, "invalid_quantity", "quantity "+strconv.Quote(req.Quantity)+" is not a positive number")
			return nil, false
		}
		sel.Quantity = qty
	}

	line, err := pricing.Resolve(s.store(), sel)
	if errors.Is(err, pricing.ErrIncompleteSelection) {
		return nil, true
	}
	if err != nil {
		s.writeResolutionError(w, err)
		return nil, false
	}
	return &line, true
}

type invoiceRequest struct {
	Customer   string   `json:"customer"`
	Title      string   `json:"title"`
	Notes      string   `json:"notes"`
	Surcharges []string `json:"surcharges"`
}

type invoiceResponse struct {
	ID         string         `json:"id"`
	CreatedAt  string         `json:"created_at"`
	Customer   string         `json:"customer"`
	Title      string         `json:"title"`
	Notes      string         `json:"notes"`
	Surcharges []string       `json:"surcharges"`
	Lines      []invoiceLine  `json:"lines"`
	Totals     *totalsPayload `json:"totals,omitempty"`
}

type invoiceLine struct {
	ID int64 `json:"id"`
	lineResponse
}

type totalsPayload struct {
	Net        float64            `json:"net"`
	NetText    string             `json:"net_text"`
	Surcharges []surchargePayload `json:"surcharges"`
	Grand      float64            `json:"grand_total"`
	GrandText  string             `json:"grand_total_text"`
}

type surchargePayload struct {
	Name       string  `json:"name"`
	Factor     float64 `json:"factor"`
	Amount     float64 `json:"amount"`
	AmountText string  `json:"amount_text"`
}

func (s *server) invoiceResponse(inv invoice.Invoice) (invoiceResponse, error) {
	resp := invoiceResponse{
		ID:         inv.ID,
		CreatedAt:  inv.CreatedAt,
		Customer:   inv.Customer,
		Title:      inv.Title,
		Notes:      inv.Notes,
		Surcharges: inv.Surcharges,
		Lines:      []invoiceLine{},
	}
	lines := make([]pricing.Line, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		resp.Lines = append(resp.Lines, invoiceLine{ID: l.ID, lineResponse: toLineResponse(l.Line)})
		lines = append(lines, l.Line)
	}

	totals, err := pricing.Total(s.store(), lines, inv.Surcharges)
	if err != nil {
		return invoiceResponse{}, err
	}
	payload := totalsPayload{
		Net:        totals.Net,
		NetText:    pricing.FormatAmount(totals.Net),
		Surcharges: []surchargePayload{},
		Grand:      totals.GrandTotal,
		GrandText:  pricing.FormatAmount(totals.GrandTotal),
	}
	for _, d := range totals.Surcharges {
		payload.Surcharges = append(payload.Surcharges, surchargePayload{
			Name:       d.Name,
			Factor:     d.Factor,
			Amount:     d.Amount,
			AmountText: pricing.FormatAmount(d.Amount),
		})
	}
	resp.Totals = &payload
	return resp, nil
}

func (s *server) handleInvoiceCreate(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if ok := s.checkSurcharges(w, req.Surcharges); !ok {
		return
	}

	inv, err := s.invoices.Create(req.Customer, req.Title, req.Notes, req.Surcharges)
	if err != nil {
		s.internalError(w, "create invoice", err)
		return
	}
	s.respondInvoice(w, http.StatusCreated, inv)
}

func (s *server) handleInvoiceList(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.invoices.List(r.URL.Query().Get("q"))
	if err != nil {
		s.internalError(w, "list invoices", err)
		return
	}

	type summaryPayload struct {
		ID        string  `json:"id"`
		CreatedAt string  `json:"created_at"`
		Customer  string  `json:"customer"`
		Title     string  `json:"title"`
		Net       float64 `json:"net"`
		NetText   string  `json:"net_text"`
	}
	out := make([]summaryPayload, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, summaryPayload{
			ID:        sum.ID,
			CreatedAt: sum.CreatedAt,
			Customer:  sum.Customer,
			Title:     sum.Title,
			Net:       sum.Net,
			NetText:   pricing.FormatAmount(sum.Net),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *server) handleInvoiceGet(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.loadInvoice(w, r)
	if !ok {
		return
	}
	s.respondInvoice(w, http.StatusOK, inv)
}

func (s *server) handleInvoiceSurcharges(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.loadInvoice(w, r)
	if !ok {
		return
	}

	var req struct {
		Surcharges []string `json:"surcharges"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if ok := s.checkSurcharges(w, req.Surcharges); !ok {
		return
	}

	if err := s.invoices.SetSurcharges(inv.ID, req.Surcharges); err != nil {
		s.internalError(w, "update invoice surcharges", err)
		return
	}
	inv, err := s.invoices.Get(inv.ID)
	if err != nil {
		s.internalError(w, "reload invoice", err)
		return
	}
	s.respondInvoice(w, http.StatusOK, inv)
}

func (s *server) handleLineAdd(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.loadInvoice(w, r)
	if !ok {
		return
	}

	line, ok := s.resolveSelection(w, r)
	if !ok {
		return
	}
	if line == nil {
		s.writeError(w, http.StatusUnprocessableEntity, "incomplete_selection", "selection does not yet identify a price")
		return
	}

	id, err := s.invoices.AddLine(inv.ID, *line)
	if err != nil {
		s.internalError(w, "add invoice line", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, invoiceLine{ID: id, lineResponse: toLineResponse(*line)})
}

func (s *server) handleLineRemove(w http.ResponseWriter, r *http.Request) {
	lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_line_id", "line id must be numeric")
		return
	}

	err = s.invoices.RemoveLine(chi.URLParam(r, "id"), lineID)
	if errors.Is(err, invoice.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "not_found", "invoice line not found")
		return
	}
	if err != nil {
		s.internalError(w, "remove invoice line", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleInvoiceDocument(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.loadInvoice(w, r)
	if !ok {
		return
	}
	doc, err := invoice.BuildDocument(s.store(), inv, s.currency)
	if err != nil {
		s.writeResolutionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

type importResponse struct {
	Inserted       int                  `json:"inserted"`
	Rejected       []loader.RejectedRow `json:"rejected"`
	CatalogVersion int64                `json:"catalog_version"`
}

// handleCatalogImport replaces one catalog table from the uploaded record
// stream and swaps in a freshly loaded catalog on success.
func (s *server) handleCatalogImport(w http.ResponseWriter, r *http.Request) {
	table := loader.Table(r.URL.Query().Get("table"))

	stats, err := loader.Replace(s.db, table, r.Body)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, "import_failed", err.Error())
		return
	}
	if err := s.reloadCatalog(); err != nil {
		s.internalError(w, "reload catalog", err)
		return
	}

	rejected := stats.Rejected
	if rejected == nil {
		rejected = []loader.RejectedRow{}
	}
	s.writeJSON(w, http.StatusOK, importResponse{
		Inserted:       stats.Inserted,
		Rejected:       rejected,
		CatalogVersion: s.store().Version(),
	})
}

func (s *server) loadInvoice(w http.ResponseWriter, r *http.Request) (invoice.Invoice, bool) {
	inv, err := s.invoices.Get(chi.URLParam(r, "id"))
	if errors.Is(err, invoice.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "not_found", "invoice not found")
		return invoice.Invoice{}, false
	}
	if err != nil {
		s.internalError(w, "load invoice", err)
		return invoice.Invoice{}, false
	}
	return inv, true
}

func (s *server) respondInvoice(w http.ResponseWriter, status int, inv invoice.Invoice) {
	resp, err := s.invoiceResponse(inv)
	if err != nil {
		s.writeResolutionError(w, err)
		return
	}
	s.writeJSON(w, status, resp)
}

// checkSurcharges rejects surcharge names the current catalog does not know,
// so an invoice can never point at a factor that would fail at total time.
func (s *server) checkSurcharges(w http.ResponseWriter, names []string) bool {
	store := s.store()
	for _, name := range names {
		if _, ok := store.Factor(catalog.FactorSurcharge, name); !ok {
			s.writeError(w, http.StatusUnprocessableEntity, "no_surcharge_factor", "unknown surcharge "+strconv.Quote(name))
			return false
		}
	}
	return true
}

// writeResolutionError maps the pricing error taxonomy onto HTTP responses.
func (s *server) writeResolutionError(w http.ResponseWriter, err error) {
	code := "resolution_failed"
	switch {
	case errors.Is(err, pricing.ErrUnknownComponent):
		code = "unknown_component"
	case errors.Is(err, pricing.ErrNoPriceFound):
		code = "no_price_found"
	case errors.Is(err, pricing.ErrNoActivityFactor):
		code = "no_activity_factor"
	case errors.Is(err, pricing.ErrNoSurchargeFactor):
		code = "no_surcharge_factor"
	case errors.Is(err, pricing.ErrInvalidQuantity):
		code = "invalid_quantity"
	default:
		s.internalError(w, "resolve", err)
		return
	}
	s.writeError(w, http.StatusUnprocessableEntity, code, err.Error())
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, apiError{Code: code, Message: message})
}

func (s *server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, "internal", "internal server error")
}

func parseDiameter(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil, errors.New("diameter " + strconv.Quote(raw) + " is not a number")
	}
	return &v, nil
}
