package contrast

import (
	"errors"
	"math"
	"testing"

	"github.com/nao1215/contrastscan/internal/color"
)

// palette returns a coarse grid over the RGB cube.
func palette() []color.Color {
	var colors []color.Color
	for r := 0; r <= 255; r += 51 {
		for g := 0; g <= 255; g += 51 {
			for b := 0; b <= 255; b += 51 {
				colors = append(colors, color.RGB(uint8(r), uint8(g), uint8(b)))
			}
		}
	}
	return colors
}

func TestRatioProperties(t *testing.T) {
	t.Parallel()

	colors := palette()

	t.Run("symmetric and bounded", func(t *testing.T) {
		t.Parallel()

		for _, a := range colors {
			for _, b := range colors {
				ab, ba := Ratio(a, b), Ratio(b, a)
				if ab != ba {
					t.Fatalf("Ratio(%s, %s) = %v but reversed = %v", a, b, ab, ba)
				}
				if ab < MinRatio || ab > MaxRatio {
					t.Fatalf("Ratio(%s, %s) = %v out of bounds", a, b, ab)
				}
			}
		}
	})

	t.Run("identity is one", func(t *testing.T) {
		t.Parallel()

		for _, c := range colors {
			if got := Ratio(c, c); got != 1 {
				t.Fatalf("Ratio(%s, %s) = %v, want 1", c, c, got)
			}
		}
	})

	t.Run("black on white is maximal", func(t *testing.T) {
		t.Parallel()

		if got := Ratio(color.Black, color.White); math.Abs(got-21) > 1e-9 {
			t.Errorf("expected 21, got %v", got)
		}
	})
}

func TestAAAImpliesAA(t *testing.T) {
	t.Parallel()

	for ratio := 1.0; ratio <= 21.0; ratio += 0.01 {
		for _, large := range []bool{false, true} {
			if PassesAAA(ratio, large) && !PassesAA(ratio, large) {
				t.Fatalf("ratio %v large=%v passes AAA but not AA", ratio, large)
			}
		}
	}
}

func TestIsLargeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		size   float64
		weight float64
		want   bool
	}{
		{"16px normal", 16, 400, false},
		{"18.66px normal", 18.66, 400, true},
		{"18.65px normal", 18.65, 400, false},
		{"20px normal", 20, 400, true},
		{"14px bold", 14, 700, true},
		{"14px semibold", 14, 600, false},
		{"13.9px bold", 13.9, 700, false},
		{"16px black", 16, 900, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsLargeText(tt.size, tt.weight); got != tt.want {
				t.Errorf("IsLargeText(%v, %v) = %v, want %v", tt.size, tt.weight, got, tt.want)
			}
		})
	}
}

func TestEvaluateScenarios(t *testing.T) {
	t.Parallel()

	gray := color.MustParse("#767676")

	tests := []struct {
		name      string
		input     Input
		wantRatio float64
		wantLarge bool
		wantAA    bool
		wantAAA   bool
		wantLevel Level
	}{
		{
			name:      "white on white",
			input:     Input{Foreground: color.White, Background: color.White, FontSizePx: 16, FontWeight: 400},
			wantRatio: 1,
			wantLevel: LevelFail,
		},
		{
			name:      "white on white large",
			input:     Input{Foreground: color.White, Background: color.White, FontSizePx: 32, FontWeight: 700},
			wantRatio: 1,
			wantLarge: true,
			wantLevel: LevelFail,
		},
		{
			name:      "black on white",
			input:     Input{Foreground: color.Black, Background: color.White, FontSizePx: 16, FontWeight: 400},
			wantRatio: 21,
			wantAA:    true,
			wantAAA:   true,
			wantLevel: LevelAAA,
		},
		{
			name:      "gray on white at 16px",
			input:     Input{Foreground: gray, Background: color.White, FontSizePx: 16, FontWeight: 400},
			wantRatio: 4.54,
			wantAA:    true,
			wantLevel: LevelAA,
		},
		{
			name:      "gray on white at 20px",
			input:     Input{Foreground: gray, Background: color.White, FontSizePx: 20, FontWeight: 400},
			wantRatio: 4.54,
			wantLarge: true,
			wantAA:    true,
			wantAAA:   true,
			wantLevel: LevelAAA,
		},
		{
			name: "color error is flagged with minimum ratio",
			input: Input{
				Foreground: color.Black, Background: color.White,
				ColorErr:   color.ErrInvalidFormat,
				FontSizePx: 16, FontWeight: 400,
			},
			wantRatio: 1,
			wantLevel: LevelFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Evaluate(tt.input)
			if math.Abs(got.Ratio-tt.wantRatio) > 0.01 {
				t.Errorf("ratio = %v, want about %v", got.Ratio, tt.wantRatio)
			}
			if got.IsLargeText != tt.wantLarge {
				t.Errorf("IsLargeText = %v, want %v", got.IsLargeText, tt.wantLarge)
			}
			if got.PassesAA != tt.wantAA {
				t.Errorf("PassesAA = %v, want %v", got.PassesAA, tt.wantAA)
			}
			if got.PassesAAA != tt.wantAAA {
				t.Errorf("PassesAAA = %v, want %v", got.PassesAAA, tt.wantAAA)
			}
			if got.Level() != tt.wantLevel {
				t.Errorf("Level = %v, want %v", got.Level(), tt.wantLevel)
			}
		})
	}
}

func TestEvaluateIgnoresErrorIdentity(t *testing.T) {
	t.Parallel()

	got := Evaluate(Input{Foreground: color.Black, Background: color.White, ColorErr: errors.New("boom")})
	if got.Ratio != MinRatio {
		t.Errorf("expected MinRatio for any color error, got %v", got.Ratio)
	}
}
