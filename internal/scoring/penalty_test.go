package scoring

import (
	"strings"
	"testing"

	"github.com/mrodas/legalexam/internal/model"
)

func TestDetectDegenerate(t *testing.T) {
	for _, text := range []string{
		"si", "Sí", "no", "NO", "  tal vez  ", "no se", "No Sé",
		"puede que si", "puede que no",
	} {
		t.Run(text, func(t *testing.T) {
			s := Detect(text)
			if !s.Degenerate {
				t.Errorf("Detect(%q).Degenerate = false, want true", text)
			}
		})
	}

	// A substantive justification containing none of the low-effort
	// phrases must not be flagged.
	substantive := strings.Repeat("el NFT es un registro en la cadena de bloques que identifica un activo digital pero la obra protegida conserva su régimen propio ", 10)
	s := Detect(substantive)
	if s.Degenerate {
		t.Error("substantive justification flagged as degenerate")
	}
	if s.TooShort {
		t.Error("substantive justification flagged as too short")
	}
}

func TestDetectSignals(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.PenaltySignals
	}{
		{
			name: "empty",
			text: "",
			want: model.PenaltySignals{TooShort: true},
		},
		{
			name: "short non-degenerate",
			text: "quizás",
			want: model.PenaltySignals{TooShort: true},
		},
		{
			name: "ai mention",
			text: "Le pregunté a ChatGPT y me dijo que el NFT no transfiere derechos.",
			want: model.PenaltySignals{AIMention: true},
		},
		{
			name: "ai mention case insensitive",
			text: "Según la INTELIGENCIA ARTIFICIAL el contrato es válido en este caso.",
			want: model.PenaltySignals{AIMention: true},
		},
		{
			name: "suspiciously long",
			text: strings.Repeat("argumentación extensa y detallada del estudiante ", 30),
			want: model.PenaltySignals{SuspiciouslyLong: true},
		},
		{
			// 9 runes but 18 bytes: length thresholds count runes.
			name: "accented short",
			text: "áéíóúñ¿¡ü",
			want: model.PenaltySignals{TooShort: true},
		},
		{
			// 1200 runes of two-byte characters stay within the limit.
			name: "accented at length limit",
			text: strings.Repeat("ó", 1200),
			want: model.PenaltySignals{},
		},
		{
			name: "accented just over length limit",
			text: strings.Repeat("ó", 1201),
			want: model.PenaltySignals{SuspiciouslyLong: true},
		},
		{
			name: "smart quotes",
			text: "La obra “protegida” no se transfiere con el token en este caso.",
			want: model.PenaltySignals{AtypicalPunct: true},
		},
		{
			name: "em dash",
			text: "El NFT — como mero registro — no constituye cesión de derechos.",
			want: model.PenaltySignals{AtypicalPunct: true},
		},
		{
			name: "connector cluster",
			text: "No obstante lo anterior, y en virtud de la ley aplicable, el token no transfiere derechos.",
			want: model.PenaltySignals{ConnectorCluster: true},
		},
		{
			name: "single connector no cluster",
			text: "Asimismo el NFT no transfiere los derechos patrimoniales de la obra.",
			want: model.PenaltySignals{},
		},
		{
			name: "clean justification",
			text: "El NFT identifica el activo digital pero la obra mantiene su proteccion legal separada.",
			want: model.PenaltySignals{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDetectDeterministic(t *testing.T) {
	text := "Le pregunté a ChatGPT — no obstante, en virtud de la LPI no hay cesión."
	first := Detect(text)
	for i := 0; i < 10; i++ {
		if got := Detect(text); got != first {
			t.Fatalf("Detect not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestPenalty(t *testing.T) {
	tests := []struct {
		name    string
		signals model.PenaltySignals
		want    float64
	}{
		{"none", model.PenaltySignals{}, 0},
		{"too short only", model.PenaltySignals{TooShort: true}, -0.5},
		{"degenerate", model.PenaltySignals{TooShort: true, Degenerate: true}, -1.5},
		{"ai mention", model.PenaltySignals{AIMention: true}, -1.0},
		{
			"all signals clamp to floor",
			model.PenaltySignals{
				TooShort: true, Degenerate: true, AIMention: true,
				SuspiciouslyLong: true, AtypicalPunct: true, ConnectorCluster: true,
			},
			model.PenaltyFloor,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Penalty(tt.signals); got != tt.want {
				t.Errorf("Penalty() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestPenaltyNeverPositiveNorBelowFloor(t *testing.T) {
	// Exhaustive over all 64 signal combinations.
	for mask := 0; mask < 64; mask++ {
		s := model.PenaltySignals{
			TooShort:         mask&1 != 0,
			Degenerate:       mask&2 != 0,
			AIMention:        mask&4 != 0,
			SuspiciouslyLong: mask&8 != 0,
			AtypicalPunct:    mask&16 != 0,
			ConnectorCluster: mask&32 != 0,
		}
		p := Penalty(s)
		if p > 0 {
			t.Fatalf("positive penalty %f for %+v", p, s)
		}
		if p < model.PenaltyFloor {
			t.Fatalf("penalty %f below floor for %+v", p, s)
		}
	}
}
