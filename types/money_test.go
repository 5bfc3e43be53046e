package types_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xraph/accounting/types"
)

func TestFromMajorUnitsRounding(t *testing.T) {
	tests := []struct {
		input    string
		currency string
		want     int64
	}{
		{"100", "usd", 10000},
		{"100.99", "usd", 10099},
		{"100.999", "usd", 10100},
		{"-100.99", "usd", -10099},
		{"0.005", "usd", 1},
		{"-0.005", "usd", -1},
		{"0.0049", "usd", 0},
		{"2.5", "jpy", 3},
		{"-2.5", "jpy", -3},
		{"1.2345", "bhd", 1235},
		{"7", "xyz", 700},
	}

	for _, tt := range tests {
		t.Run(tt.input+"_"+tt.currency, func(t *testing.T) {
			m, err := types.FromMajorUnits(decimal.RequireFromString(tt.input), tt.currency)
			if err != nil {
				t.Fatalf("FromMajorUnits: %v", err)
			}
			if m.Amount != tt.want {
				t.Errorf("minor units: got %d, want %d", m.Amount, tt.want)
			}
			if m.Currency != tt.currency {
				t.Errorf("currency: got %q, want %q", m.Currency, tt.currency)
			}
		})
	}
}

func TestFromFloat(t *testing.T) {
	tests := []struct {
		input float64
		want  int64
	}{
		{100.999, 10100},
		{-100.99, -10099},
		{100.99, 10099},
		{0, 0},
	}
	for _, tt := range tests {
		m, err := types.FromFloat(tt.input, "USD")
		if err != nil {
			t.Fatalf("FromFloat(%v): %v", tt.input, err)
		}
		if m.Amount != tt.want {
			t.Errorf("FromFloat(%v): got %d, want %d", tt.input, m.Amount, tt.want)
		}
		if m.Currency != "usd" {
			t.Errorf("FromFloat(%v): currency %q not normalized", tt.input, m.Currency)
		}
	}
}

func TestInvalidAmount(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := types.FromFloat(f, "usd"); !errors.Is(err, types.ErrInvalidAmount) {
			t.Errorf("FromFloat(%v): got %v, want ErrInvalidAmount", f, err)
		}
	}

	for _, s := range []string{"", "abc", "1.2.3", "12,50"} {
		if _, err := types.ParseMajorUnits(s, "usd"); !errors.Is(err, types.ErrInvalidAmount) {
			t.Errorf("ParseMajorUnits(%q): got %v, want ErrInvalidAmount", s, err)
		}
	}

	huge := decimal.RequireFromString("1e30")
	if _, err := types.FromMajorUnits(huge, "usd"); !errors.Is(err, types.ErrInvalidAmount) {
		t.Errorf("FromMajorUnits(1e30): got %v, want ErrInvalidAmount", err)
	}
}

func TestParseMajorUnits(t *testing.T) {
	m, err := types.ParseMajorUnits(" 12.345 ", "eur")
	if err != nil {
		t.Fatal(err)
	}
	if !m.Equal(types.EUR(1235)) {
		t.Errorf("got %v, want %v", m, types.EUR(1235))
	}
}

func TestMajorUnitsRoundTrip(t *testing.T) {
	for _, m := range []types.Money{
		types.USD(0), types.USD(1), types.USD(-99), types.USD(10000),
		types.JPY(12345), types.FromMinorUnits(-1234567, "bhd"),
		types.USD(math.MaxInt64), types.USD(math.MinInt64),
	} {
		back, err := types.FromMajorUnits(m.ToMajorUnits(), m.Currency)
		if err != nil {
			t.Fatalf("%v: %v", m, err)
		}
		if !back.Equal(m) {
			t.Errorf("round-trip: got %v, want %v", back, m)
		}
	}
}

func TestToMajorUnits(t *testing.T) {
	tests := []struct {
		m    types.Money
		want string
	}{
		{types.USD(10000), "100"},
		{types.USD(-99), "-0.99"},
		{types.JPY(100), "100"},
		{types.FromMinorUnits(1005, "bhd"), "1.005"},
	}
	for _, tt := range tests {
		if got := tt.m.ToMajorUnits(); !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("%v: got %s, want %s", tt.m, got, tt.want)
		}
		if tt.m.ToMinorUnits() != tt.m.Amount {
			t.Errorf("%v: ToMinorUnits mismatch", tt.m)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	sum, err := types.USD(1000).Add(types.USD(250))
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Equal(types.USD(1250)) {
		t.Errorf("Add: got %v, want %v", sum, types.USD(1250))
	}

	diff, err := types.USD(1000).Sub(types.USD(1250))
	if err != nil {
		t.Fatal(err)
	}
	if !diff.Equal(types.USD(-250)) {
		t.Errorf("Sub: got %v, want %v", diff, types.USD(-250))
	}

	if got := types.USD(500).Negate(); !got.Equal(types.USD(-500)) {
		t.Errorf("Negate: got %v", got)
	}
	if got := types.USD(-500).Abs(); !got.Equal(types.USD(500)) {
		t.Errorf("Abs: got %v", got)
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	_, err := types.USD(100).Add(types.EUR(100))
	if !errors.Is(err, types.ErrCurrencyMismatch) {
		t.Fatalf("Add: got %v, want ErrCurrencyMismatch", err)
	}
	var mismatch *types.MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *MismatchError, got %T", err)
	}
	if mismatch.Want != "usd" || mismatch.Got != "eur" {
		t.Errorf("got want=%q got=%q", mismatch.Want, mismatch.Got)
	}

	if _, err := types.USD(100).Compare(types.GBP(100)); !errors.Is(err, types.ErrCurrencyMismatch) {
		t.Errorf("Compare: got %v, want ErrCurrencyMismatch", err)
	}
	if _, err := types.Sum("usd", types.USD(1), types.EUR(1)); !errors.Is(err, types.ErrCurrencyMismatch) {
		t.Errorf("Sum: got %v, want ErrCurrencyMismatch", err)
	}
}

func TestMoneyOverflow(t *testing.T) {
	if _, err := types.USD(math.MaxInt64).Add(types.USD(1)); !errors.Is(err, types.ErrInvalidAmount) {
		t.Errorf("Add overflow: got %v", err)
	}
	if _, err := types.USD(math.MinInt64).Add(types.USD(-1)); !errors.Is(err, types.ErrInvalidAmount) {
		t.Errorf("Add underflow: got %v", err)
	}
	if _, err := types.USD(0).Sub(types.USD(math.MinInt64)); !errors.Is(err, types.ErrInvalidAmount) {
		t.Errorf("Sub MinInt64: got %v", err)
	}
}

func TestMoneyCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b types.Money
		want int
	}{
		{"less", types.USD(100), types.USD(200), -1},
		{"equal", types.USD(100), types.USD(100), 0},
		{"greater", types.USD(200), types.USD(100), 1},
		{"negative", types.USD(-1), types.USD(0), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Compare(tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Compare: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMoneyPredicates(t *testing.T) {
	if !types.Zero("usd").IsZero() {
		t.Error("Zero should be zero")
	}
	if !types.USD(1).IsPositive() || types.USD(1).IsNegative() {
		t.Error("USD(1) should be positive")
	}
	if !types.USD(-1).IsNegative() || types.USD(-1).IsPositive() {
		t.Error("USD(-1) should be negative")
	}
	if types.USD(1).Equal(types.EUR(1)) {
		t.Error("different currencies should not be equal")
	}
}

func TestSum(t *testing.T) {
	got, err := types.Sum("USD", types.USD(100), types.USD(-250), types.USD(50))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(types.USD(-100)) {
		t.Errorf("got %v, want %v", got, types.USD(-100))
	}

	empty, err := types.Sum("eur")
	if err != nil {
		t.Fatal(err)
	}
	if !empty.Equal(types.Zero("eur")) {
		t.Errorf("empty sum: got %v", empty)
	}
}

func TestExponent(t *testing.T) {
	tests := map[string]int{"usd": 2, "EUR": 2, "jpy": 0, "bhd": 3, "unknown": 2}
	for code, want := range tests {
		if got := types.Exponent(code); got != want {
			t.Errorf("Exponent(%q): got %d, want %d", code, got, want)
		}
	}
	if !types.IsKnownCurrency("usd") || types.IsKnownCurrency("zzz") {
		t.Error("IsKnownCurrency mismatch")
	}
}

func TestMoneyFormatting(t *testing.T) {
	tests := []struct {
		m      types.Money
		major  string
		format string
		str    string
	}{
		{types.USD(123456), "1234.56", "$1,234.56", "1234.56 USD"},
		{types.USD(-99), "-0.99", "-$0.99", "-0.99 USD"},
		{types.USD(0), "0.00", "$0.00", "0.00 USD"},
		{types.JPY(1500), "1500", "¥1,500", "1500 JPY"},
		{types.EUR(19900), "199.00", "€199.00", "199.00 EUR"},
	}
	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			if got := tt.m.FormatMajor(); got != tt.major {
				t.Errorf("FormatMajor: got %q, want %q", got, tt.major)
			}
			if got := tt.m.Format(); got != tt.format {
				t.Errorf("Format: got %q, want %q", got, tt.format)
			}
			if got := tt.m.String(); got != tt.str {
				t.Errorf("String: got %q, want %q", got, tt.str)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(types.USD(4900))
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["display"] != "$49.00" {
		t.Errorf("display: got %v", raw["display"])
	}

	var back types.Money
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(types.USD(4900)) {
		t.Errorf("round-trip: got %v", back)
	}
}

func BenchmarkMoneyAdd(b *testing.B) {
	m1 := types.USD(1000)
	m2 := types.USD(500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m1.Add(m2)
	}
}

func BenchmarkFromMajorUnits(b *testing.B) {
	d := decimal.RequireFromString("100.999")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = types.FromMajorUnits(d, "usd")
	}
}
