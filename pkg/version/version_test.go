package version

import (
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  [4]uint16
	}{
		{"1", [4]uint16{1, 0, 0, 0}},
		{"1.2", [4]uint16{1, 2, 0, 0}},
		{"2.0.7", [4]uint16{2, 0, 7, 0}},
		{"10.23.4.65535", [4]uint16{10, 23, 4, 65535}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if v.Words() != tt.want {
				t.Errorf("Words() = %v, want %v", v.Words(), tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"abc",
		"1.0.0.0.0",
		"1..2",
		"1.x",
		"-1.0",
		"65536",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if err == nil {
				t.Errorf("Parse(%q) should return error", input)
			}
		})
	}
}

func TestFirmware_String(t *testing.T) {
	v := MustParse("3.1")
	if got := v.String(); got != "3.1.0.0" {
		t.Errorf("String() = %q, want %q", got, "3.1.0.0")
	}
	if FromWords(v.Words()) != v {
		t.Errorf("FromWords(Words()) = %v, want %v", FromWords(v.Words()), v)
	}
}

func TestFirmware_Compare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0.0.0", 0},
		{"1.0.1", "1.0", 1},
		{"1.9", "2.0", -1},
		{"2.0.0.1", "2.0.0.2", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			if got := MustParse(tt.a).Compare(MustParse(tt.b)); got != tt.want {
				t.Errorf("Compare = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFirmware_Compatible(t *testing.T) {
	if !MustParse("1.2").Compatible(MustParse("1.9.9")) {
		t.Error("same major should be compatible")
	}
	if MustParse("1.2").Compatible(MustParse("2.0")) {
		t.Error("different major should not be compatible")
	}
}
