// Package invoice persists invoice headers and their resolved lines, and
// assembles the flat document data the PDF layer renders from. Lines are
// stored verbatim and returned verbatim when an invoice is reopened.
package invoice

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/CMDAEW/isokalk/internal/pricing"
)

// ErrNotFound is returned when an invoice or line does not exist.
var ErrNotFound = errors.New("invoice not found")

// Invoice is one invoice header with its resolved lines.
type Invoice struct {
	ID         string
	CreatedAt  string
	Customer   string
	Title      string
	Notes      string
	Surcharges []string
	Lines      []Line
}

// Line is a persisted resolved line. It is immutable once added except for
// removal.
type Line struct {
	ID int64
	pricing.Line
}

// Summary is one row of the invoice list view.
type Summary struct {
	ID        string
	CreatedAt string
	Customer  string
	Title     string
	Net       float64
}

// Store provides invoice persistence on top of the shared database handle.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new invoice header and returns it with a fresh id.
func (s *Store) Create(customer, title, notes string, surcharges []string) (Invoice, error) {
	id := uuid.NewString()
	surchargesJSON, err := marshalNames(surcharges)
	if err != nil {
		return Invoice{}, err
	}

	if _, err := s.db.Exec(`
		INSERT INTO invoices (id, customer, title, notes, surcharges_json)
		VALUES (?, ?, ?, ?, ?)
	`, id, customer, title, notes, surchargesJSON); err != nil {
		return Invoice{}, fmt.Errorf("insert invoice: %w", err)
	}

	return s.Get(id)
}

// Get loads one invoice with all its lines in insertion order.
func (s *Store) Get(id string) (Invoice, error) {
	inv := Invoice{ID: id}
	var surchargesJSON string
	err := s.db.QueryRow(`
		SELECT created_at, customer, title, notes, surcharges_json
		FROM invoices
		WHERE id = ?
	`, id).Scan(&inv.CreatedAt, &inv.Customer, &inv.Title, &inv.Notes, &surchargesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("query invoice: %w", err)
	}

	if inv.Surcharges, err = unmarshalNames(surchargesJSON); err != nil {
		return Invoice{}, err
	}
	if inv.Lines, err = s.lines(id); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// List returns invoice summaries newest first, optionally filtered by a
// substring of the customer or title.
func (s *Store) List(query string) ([]Summary, error) {
	search := "%" + query + "%"
	rows, err := s.db.Query(`
		SELECT
			i.id,
			i.created_at,
			i.customer,
			i.title,
			COALESCE(SUM(l.subtotal), 0)
		FROM invoices i
		LEFT JOIN invoice_lines l ON l.invoice_id = i.id
		WHERE (? = '' OR i.customer LIKE ? OR i.title LIKE ?)
		GROUP BY i.id
		ORDER BY datetime(i.created_at) DESC, i.id DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var item Summary
		if err := rows.Scan(&item.ID, &item.CreatedAt, &item.Customer, &item.Title, &item.Net); err != nil {
			return nil, fmt.Errorf("scan invoice summary: %w", err)
		}
		summaries = append(summaries, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return summaries, nil
}

// AddLine appends one resolved line to an invoice and returns the line id.
func (s *Store) AddLine(invoiceID string, line pricing.Line) (int64, error) {
	if _, err := s.Get(invoiceID); err != nil {
		return 0, err
	}

	surchargesJSON, err := marshalNames(line.Surcharges)
	if err != nil {
		return 0, err
	}

	result, err := s.db.Exec(`
		INSERT INTO invoice_lines (
			invoice_id, position_code, component, display_name, nominal_diameter,
			outer_diameter, size, activity, unit, unit_price, quantity, subtotal,
			surcharges_json
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		invoiceID,
		line.PositionCode,
		line.Component,
		line.DisplayName,
		nullable(line.NominalDiameter),
		nullable(line.OuterDiameter),
		line.Size,
		line.Activity,
		line.Unit,
		line.UnitPrice,
		line.Quantity,
		line.Subtotal,
		surchargesJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("insert invoice line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read invoice line id: %w", err)
	}
	return id, nil
}

// RemoveLine deletes one line from an invoice.
func (s *Store) RemoveLine(invoiceID string, lineID int64) error {
	result, err := s.db.Exec(`
		DELETE FROM invoice_lines
		WHERE id = ? AND invoice_id = ?
	`, lineID, invoiceID)
	if err != nil {
		return fmt.Errorf("delete invoice line: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSurcharges replaces the invoice-level surcharge selection.
func (s *Store) SetSurcharges(invoiceID string, surcharges []string) error {
	surchargesJSON, err := marshalNames(surcharges)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(`
		UPDATE invoices SET surcharges_json = ? WHERE id = ?
	`, surchargesJSON, invoiceID)
	if err != nil {
		return fmt.Errorf("update invoice surcharges: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) lines(invoiceID string) ([]Line, error) {
	rows, err := s.db.Query(`
		SELECT id, position_code, component, display_name, nominal_diameter,
			outer_diameter, size, activity, unit, unit_price, quantity, subtotal,
			surcharges_json
		FROM invoice_lines
		WHERE invoice_id = ?
		ORDER BY id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("query invoice lines: %w", err)
	}
	defer rows.Close()

	lines := make([]Line, 0)
	for rows.Next() {
		var line Line
		var dn, da sql.NullFloat64
		var surchargesJSON string
		if err := rows.Scan(
			&line.ID,
			&line.PositionCode,
			&line.Component,
			&line.DisplayName,
			&dn,
			&da,
			&line.Size,
			&line.Activity,
			&line.Unit,
			&line.UnitPrice,
			&line.Quantity,
			&line.Subtotal,
			&surchargesJSON,
		); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		if dn.Valid {
			v := dn.Float64
			line.NominalDiameter = &v
		}
		if da.Valid {
			v := da.Float64
			line.OuterDiameter = &v
		}
		if line.Surcharges, err = unmarshalNames(surchargesJSON); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoice lines: %w", err)
	}
	return lines, nil
}

func marshalNames(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return "", fmt.Errorf("marshal surcharge names: %w", err)
	}
	return string(data), nil
}

func unmarshalNames(raw string) ([]string, error) {
	names := make([]string, 0)
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("unmarshal surcharge names: %w", err)
	}
	return names, nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
