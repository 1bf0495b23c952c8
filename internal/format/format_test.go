package format

import "testing"

func TestSmart(t *testing.T) {
	cases := []struct {
		in            float64
		wantPretty    string
		wantMagnitude string
	}{
		{7, "7", ""},
		{177, "180", ""},
		{2112, "2 100", ""},
		{15487, "15", "тыс."},
		{2863578, "2,9", "млн."},
		{672934573, "673", "млн."},
		{72691235664, "72,7", "млрд."},
		{684971367849, "685", "млрд."},
		{81235118364583, "81,2", "трлн."},
		{811135017356193, "811", "трлн."},
	}

	for _, tc := range cases {
		pretty, magnitude := Smart(tc.in)
		if pretty != tc.wantPretty || magnitude != tc.wantMagnitude {
			t.Errorf("Smart(%v) = (%q, %q), want (%q, %q)",
				tc.in, pretty, magnitude, tc.wantPretty, tc.wantMagnitude)
		}
	}
}

func TestNumber(t *testing.T) {
	cases := map[float64]string{
		177:     "180",
		15487:   "15 тыс.",
		2863578: "2,9 млн.",
	}
	for in, want := range cases {
		if got := Number(in); got != want {
			t.Errorf("Number(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestCurrencyAndQuantity(t *testing.T) {
	if got := Currency(2863578); got != "2,9 млн. руб." {
		t.Errorf("Currency = %q", got)
	}
	if got := Quantity(15487); got != "15 тыс. шт." {
		t.Errorf("Quantity = %q", got)
	}
}

func TestPrettify(t *testing.T) {
	cases := map[float64]string{
		0:          "0",
		1234567:    "1 234 567",
		-9876:      "-9 876",
		2.9:        "2,9",
		760.094:    "760,09",
		1000000.25: "1 000 000,25",
	}
	for in, want := range cases {
		if got := Prettify(in); got != want {
			t.Errorf("Prettify(%v) = %q, want %q", in, got, want)
		}
	}
}
