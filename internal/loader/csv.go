// Package loader reads a brokerage positions export (CSV) into a
// Portfolio. It owns row classification only; market data and analytics
// live elsewhere and never re-read the file. Rows that cannot be
// classified become UnknownPosition — they are never silently dropped,
// because their value still belongs in the portfolio total.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jwaldner/folio/internal/models"
)

// occSymbol matches the compact option symbol used in brokerage exports:
// a leading dash, underlying, YYMMDD expiry, C or P, and the strike.
// Example: -AAPL250620C200 or -SPY240119P470.5
var occSymbol = regexp.MustCompile(`^-([A-Z]+)(\d{6})([CP])(\d+(?:\.\d+)?)$`)

// cashSymbols are money-market sweep tickers treated as cash. The double
// asterisk is how the export marks core positions.
func isCashRow(symbol, description string) bool {
	if strings.HasSuffix(symbol, "**") {
		return true
	}
	desc := strings.ToUpper(description)
	return strings.Contains(desc, "MONEY MARKET") || strings.Contains(desc, "CASH RESERVES")
}

// LoadCSV reads and classifies a positions export from disk.
func LoadCSV(path string, log zerolog.Logger) (*models.Portfolio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening portfolio file: %w", err)
	}
	defer f.Close()
	return Parse(f, log)
}

// Parse reads and classifies a positions export.
func Parse(r io.Reader, log zerolog.Logger) (*models.Portfolio, error) {
	log = log.With().Str("component", "loader").Logger()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // exports pad trailing columns inconsistently
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := indexColumns(header)
	if _, ok := cols["symbol"]; !ok {
		return nil, fmt.Errorf("no symbol column in header %v", header)
	}

	pf := &models.Portfolio{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		symbol := strings.TrimSpace(field(record, cols, "symbol"))
		description := strings.TrimSpace(field(record, cols, "description"))
		if symbol == "" && description == "" {
			continue // footer/blank lines
		}

		// Uncategorized cash movement: value only, no position.
		if strings.EqualFold(symbol, "Pending Activity") ||
			strings.EqualFold(description, "Pending Activity") {
			value, err := parseMoney(field(record, cols, "current value"))
			if err != nil {
				return nil, fmt.Errorf("line %d: pending activity value: %w", line, err)
			}
			pf.PendingActivityValue += value
			continue
		}

		pos, err := classifyRow(symbol, description, record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if _, unknown := pos.(models.UnknownPosition); unknown {
			log.Warn().Str("symbol", symbol).Str("description", description).
				Msg("row could not be classified, kept as unknown position")
		}
		pf.Positions = append(pf.Positions, pos)
	}

	log.Info().Int("positions", len(pf.Positions)).
		Float64("pending_activity", pf.PendingActivityValue).
		Msg("portfolio loaded")
	return pf, nil
}

func classifyRow(symbol, description string, record []string, cols map[string]int) (models.Position, error) {
	quantity, err := parseMoney(field(record, cols, "quantity"))
	if err != nil {
		return nil, fmt.Errorf("quantity: %w", err)
	}
	price, err := parseMoney(field(record, cols, "last price"))
	if err != nil {
		return nil, fmt.Errorf("last price: %w", err)
	}

	if isCashRow(symbol, description) {
		if price == 0 {
			price = 1.0
		}
		return models.CashPosition{
			Ticker:   strings.TrimSuffix(symbol, "**"),
			Quantity: quantity,
			Price:    price,
		}, nil
	}

	if m := occSymbol.FindStringSubmatch(symbol); m != nil {
		expiry, err := time.Parse("060102", m[2])
		if err != nil {
			return nil, fmt.Errorf("option expiry %q: %w", m[2], err)
		}
		strike, err := decimal.NewFromString(m[4])
		if err != nil {
			return nil, fmt.Errorf("option strike %q: %w", m[4], err)
		}
		typ := models.Call
		if m[3] == "P" {
			typ = models.Put
		}
		return models.OptionPosition{
			Ticker:   m[1],
			Quantity: quantity,
			Strike:   strike.InexactFloat64(),
			Expiry:   expiry.UTC(),
			Type:     typ,
			Price:    price,
		}, nil
	}

	if plainTicker(symbol) {
		costBasis, _ := parseMoney(field(record, cols, "cost basis total"))
		return models.StockPosition{
			Ticker:    symbol,
			Quantity:  quantity,
			Price:     price,
			CostBasis: costBasis,
		}, nil
	}

	return models.UnknownPosition{
		Ticker:      symbol,
		Quantity:    quantity,
		Price:       price,
		Description: description,
	}, nil
}

var tickerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

func plainTicker(symbol string) bool {
	return tickerPattern.MatchString(symbol)
}

// indexColumns maps normalized header names to column indexes.
func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	// Common aliases across export vintages.
	alias(cols, "last price", "price")
	alias(cols, "current value", "value")
	alias(cols, "cost basis total", "cost basis")
	return cols
}

func alias(cols map[string]int, canonical, alt string) {
	if _, ok := cols[canonical]; !ok {
		if i, ok := cols[alt]; ok {
			cols[canonical] = i
		}
	}
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

// parseMoney converts an export money/number cell to a float. Handles
// currency signs, thousands separators, parenthesized negatives and the
// various empty markers. Decimal arithmetic keeps "$1,234.56" exact until
// the final conversion.
func parseMoney(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "--" || s == "n/a" || s == "N/A" {
		return 0, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %q as number: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d.InexactFloat64(), nil
}
