package promille

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Factor
		wantErr bool
	}{
		{"1000", FullPackage, false},
		{"1", One, false},
		{"250", FromInt(250), false},
		{"0.5", Factor(500_000), false},
		{"500.000001", Factor(500_000_001), false},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestApproxEqual(t *testing.T) {
	base, _ := Parse("500.000000")

	tests := []struct {
		name  string
		other string
		want  bool
	}{
		{"identical", "500.000000", true},
		{"within tolerance", "500.0000005", true},
		{"at tolerance", "500.000001", true},
		{"beyond tolerance", "500.000002", false},
		{"different value", "499", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other, err := Parse(tt.other)
			if err != nil {
				t.Fatal(err)
			}
			if got := base.ApproxEqual(other); got != tt.want {
				t.Errorf("ApproxEqual(%s, %s) = %v, want %v", base, other, got, tt.want)
			}
		})
	}
}

func TestFromRatio(t *testing.T) {
	tests := []struct {
		name      string
		dispensed string
		pack      string
		want      Factor
		wantErr   error
	}{
		{"quarter package", "5", "20", FromInt(250), nil},
		{"full package", "20", "20", FullPackage, nil},
		{"one and a half", "30", "20", FromInt(1500), nil},
		{"third", "1", "3", Factor(333_333_333), nil},
		{"zero package", "5", "0", 0, ErrZeroPackage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromRatio(decimal.RequireFromString(tt.dispensed), decimal.RequireFromString(tt.pack))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("FromRatio() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FromRatio(%s/%s) = %s, want %s", tt.dispensed, tt.pack, got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	if got := FromInt(250).String(); got != "250" {
		t.Errorf("String() = %q, want 250", got)
	}
	if got := Factor(500_000).String(); got != "0.5" {
		t.Errorf("String() = %q, want 0.5", got)
	}
}
