package marketdata

import (
	"testing"
)

const sampleCSV = `Date,Open,High,Low,Close,Volume
2024-10-07,225.14,226.45,223.02,224.50,31855600
2024-10-08,224.30,225.98,223.25,225.77,27183600
2024-10-09,225.23,229.75,224.83,229.54,33591100
`

func TestParseDailyCSV(t *testing.T) {
	bars, err := ParseDailyCSV("aapl", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	if bars[0].Ticker != "AAPL" {
		t.Fatalf("expected upper ticker, got %s", bars[0].Ticker)
	}
	if bars[2].Close != 229.54 {
		t.Fatalf("unexpected close %v", bars[2].Close)
	}
	if bars[1].Volume != 27183600 {
		t.Fatalf("unexpected volume %v", bars[1].Volume)
	}
	if !bars[0].Date.Before(bars[1].Date) {
		t.Fatalf("expected ascending dates")
	}
}

func TestParseDailyCSVSkipsBadRows(t *testing.T) {
	csv := "Date,Open,High,Low,Close,Volume\nnot-a-date,1,2,3,4,5\n2024-10-08,224.30,225.98,223.25,225.77,100\n"
	bars, err := ParseDailyCSV("msft", []byte(csv))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
}

func TestParseDailyCSVBadHeader(t *testing.T) {
	if _, err := ParseDailyCSV("aapl", []byte("oops\n")); err == nil {
		t.Fatalf("expected header error")
	}
}

func TestStooqSymbol(t *testing.T) {
	if got := stooqSymbol("AAPL"); got != "aapl.us" {
		t.Fatalf("unexpected symbol %s", got)
	}
	if got := stooqSymbol("spy.us"); got != "spy.us" {
		t.Fatalf("unexpected symbol %s", got)
	}
}
