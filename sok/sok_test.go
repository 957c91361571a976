package sok

import "testing"

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		code         Code
		insemination bool
		narcoticFee  bool
		compounding  bool
		noQuantity   bool
		cannabis     bool
	}{
		{"09999643", true, false, false, false, false},
		{"02567001", false, true, false, false, false},
		{"06460702", false, false, true, false, false},
		{"09999011", false, false, true, false, false},
		{"1.1.1", false, false, false, true, false},
		{"1.6.5", false, false, false, true, false},
		{"1.10.3", false, false, false, true, false},
		{"06461446", false, false, false, false, true},
		{"06460754", false, false, false, false, true},
		// A regular PZN-shaped value matches nothing.
		{"03029741", false, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.IsArtificialInsemination(); got != tt.insemination {
				t.Errorf("IsArtificialInsemination() = %v, want %v", got, tt.insemination)
			}
			if got := tt.code.IsNarcoticFee(); got != tt.narcoticFee {
				t.Errorf("IsNarcoticFee() = %v, want %v", got, tt.narcoticFee)
			}
			if got := tt.code.IsCompounding(); got != tt.compounding {
				t.Errorf("IsCompounding() = %v, want %v", got, tt.compounding)
			}
			if got := tt.code.NoQuantityReference(); got != tt.noQuantity {
				t.Errorf("NoQuantityReference() = %v, want %v", got, tt.noQuantity)
			}
			if got := tt.code.IsCannabis(); got != tt.cannabis {
				t.Errorf("IsCannabis() = %v, want %v", got, tt.cannabis)
			}
		})
	}
}

func TestParseTrims(t *testing.T) {
	if got := Parse(" 09999643 "); got != ArtificialInsemination {
		t.Errorf("Parse() = %q, want %q", got, ArtificialInsemination)
	}
}
