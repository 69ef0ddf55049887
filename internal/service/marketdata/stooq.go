package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"TradePilot/internal/domain/models"
	xhttp "TradePilot/pkg/http"
	applogger "TradePilot/pkg/logger"
)

// StooqProvider fetches daily OHLCV bars from the Stooq CSV endpoint.
type StooqProvider struct {
	baseURL string
	client  *xhttp.Client
	logger  *applogger.Logger
}

// NewStooqProvider creates a provider against the given base URL
// (e.g. https://stooq.com/q/d/l/).
func NewStooqProvider(baseURL string, timeout time.Duration, l *applogger.Logger) *StooqProvider {
	return &StooqProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		logger:  l,
	}
}

// DailyBars fetches daily bars for the trailing lookbackDays window,
// sorted oldest first.
func (p *StooqProvider) DailyBars(ctx context.Context, ticker string, lookbackDays int) ([]models.Bar, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -lookbackDays)

	var body []byte
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    p.baseURL + "/",
		QueryParams: map[string][]string{
			"s":  {stooqSymbol(ticker)},
			"i":  {"d"},
			"d1": {from.Format("20060102")},
			"d2": {to.Format("20060102")},
		},
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars: %w", err)
	}

	bars, err := ParseDailyCSV(ticker, body)
	if err != nil {
		return nil, err
	}

	if p.logger != nil {
		p.logger.Debug("fetched daily bars",
			applogger.String("ticker", ticker),
			applogger.Int("bars", len(bars)),
		)
	}
	return bars, nil
}

// stooqSymbol maps a plain US ticker to stooq's symbol convention.
func stooqSymbol(ticker string) string {
	s := strings.ToLower(ticker)
	if strings.Contains(s, ".") {
		return s
	}
	return s + ".us"
}

// ParseDailyCSV parses a Stooq daily CSV payload
// (Date,Open,High,Low,Close,Volume) into bars sorted oldest first.
func ParseDailyCSV(ticker string, data []byte) ([]models.Bar, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) < 5 || !strings.EqualFold(strings.TrimSpace(header[0]), "Date") {
		return nil, fmt.Errorf("unexpected csv header: %q", strings.Join(header, ","))
	}

	var bars []models.Bar
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if len(rec) < 5 {
			continue
		}

		date, err := time.Parse("2006-01-02", strings.TrimSpace(rec[0]))
		if err != nil {
			continue
		}

		bar := models.Bar{
			Ticker: strings.ToUpper(ticker),
			Date:   date,
			Open:   parseFloat(rec[1]),
			High:   parseFloat(rec[2]),
			Low:    parseFloat(rec[3]),
			Close:  parseFloat(rec[4]),
		}
		if len(rec) > 5 {
			bar.Volume = parseFloat(rec[5])
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
