package vectorize

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "punctuation and case",
			text: "Cloud-Migration, the SERVICES!",
			want: []string{"cloud", "migration", "services"},
		},
		{
			name: "full width characters normalized",
			text: "ＣＬＯＵＤ support",
			want: []string{"cloud", "support"},
		},
		{
			name: "single characters dropped",
			text: "a b c data",
			want: []string{"data"},
		},
		{
			name: "digits kept",
			text: "NAICS 541511 code",
			want: []string{"naics", "541511", "code"},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text, DefaultStopwords())
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTerms(t *testing.T) {
	got := Terms([]string{"cloud", "migration", "services"})
	want := []string{"cloud", "migration", "services", "cloud migration", "migration services"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
	if Terms(nil) != nil {
		t.Error("Terms(nil) should be nil")
	}
}

func TestFitTransform_EmptyCorpus(t *testing.T) {
	m := New(Options{}).FitTransform(nil)
	if m.Dim() != 0 || len(m.Vectors) != 0 {
		t.Errorf("expected empty matrix, got dim=%d vectors=%d", m.Dim(), len(m.Vectors))
	}
}

func TestFitTransform_StopwordOnlyCorpus(t *testing.T) {
	m := New(Options{}).FitTransform([]string{"the and of", "to be or not"})
	if m.Dim() != 0 {
		t.Fatalf("expected empty vocabulary, got %v", m.Vocabulary)
	}
	if len(m.Vectors) != 2 {
		t.Fatalf("expected one vector per document, got %d", len(m.Vectors))
	}
	if got := Cosine(m.Vectors[0], m.Vectors[1]); got != 0 {
		t.Errorf("cosine over empty vectors = %f, want 0", got)
	}
}

func TestFitTransform_SharedTermsOnly(t *testing.T) {
	m := New(Options{}).FitTransform([]string{
		"cloud migration services",
		"cloud migration support",
		"cloud migration planning",
	})

	if m.MinDF != 2 {
		t.Errorf("MinDF = %d, want 2", m.MinDF)
	}
	want := []string{"cloud", "cloud migration", "migration"}
	if !reflect.DeepEqual(m.Vocabulary, want) {
		t.Errorf("Vocabulary = %v, want %v", m.Vocabulary, want)
	}
	if got := Cosine(m.Vectors[0], m.Vectors[1]); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("cosine = %f, want 1.0", got)
	}
}

func TestFitTransform_TwoDocumentCorpus(t *testing.T) {
	tests := []struct {
		name      string
		docs      []string
		wantVocab int
		want      float64
	}{
		{
			// 3 shared terms of 5 per document
			name:      "mostly overlapping",
			docs:      []string{"cloud migration services", "cloud migration support"},
			wantVocab: 7,
			want:      0.6,
		},
		{
			name:      "one shared token",
			docs:      []string{"cloud migration services for federal agencies", "cloud kitchen bakery supplies and catering"},
			wantVocab: 17,
			want:      1.0 / 9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(Options{}).FitTransform(tt.docs)
			if m.MinDF != 1 {
				t.Errorf("MinDF = %d, want 1 below the relax size", m.MinDF)
			}
			if m.Dim() != tt.wantVocab {
				t.Errorf("Dim() = %d, want %d (%v)", m.Dim(), tt.wantVocab, m.Vocabulary)
			}
			if got := Cosine(m.Vectors[0], m.Vectors[1]); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosine = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestFitTransform_SingleDocumentRelaxed(t *testing.T) {
	m := New(Options{}).FitTransform([]string{"secure cloud hosting"})
	if m.MinDF != 1 {
		t.Errorf("MinDF = %d, want 1 for single document", m.MinDF)
	}
	if m.Dim() == 0 {
		t.Fatal("expected non-empty vocabulary")
	}
}

func TestFitTransform_DisjointCorpusFallsBack(t *testing.T) {
	m := New(Options{}).FitTransform([]string{
		"satellite imagery analysis",
		"janitorial facility maintenance",
		"payroll software licensing",
	})
	if m.MinDF != 1 {
		t.Errorf("MinDF = %d, want relaxed 1 when strict vocabulary is empty", m.MinDF)
	}
	if m.Dim() == 0 {
		t.Fatal("expected non-empty vocabulary after relaxation")
	}
	for i := 1; i < len(m.Vectors); i++ {
		if got := Cosine(m.Vectors[0], m.Vectors[i]); got != 0 {
			t.Errorf("disjoint documents cosine = %f, want 0", got)
		}
	}
}

func TestFitTransform_MaxFeaturesCap(t *testing.T) {
	var docs []string
	for i := 0; i < 4; i++ {
		var words []string
		for j := 0; j < 50; j++ {
			words = append(words, fmt.Sprintf("term%d", j))
		}
		docs = append(docs, strings.Join(words, " "))
	}

	m := New(Options{MaxFeatures: 10}).FitTransform(docs)
	if m.Dim() != 10 {
		t.Fatalf("Dim() = %d, want 10", m.Dim())
	}
	for i, vec := range m.Vectors {
		if len(vec) != 10 {
			t.Errorf("vector %d has dim %d, want 10", i, len(vec))
		}
	}
}

func TestFitTransform_VectorsNormalized(t *testing.T) {
	m := New(Options{}).FitTransform([]string{
		"managed cloud services for agencies",
		"cloud services migration",
		"agencies seeking managed services",
	})
	for i, vec := range m.Vectors {
		var sum float64
		for _, x := range vec {
			sum += x * x
		}
		if sum == 0 {
			continue
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("vector %d squared norm = %f, want 1", i, sum)
		}
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "identical", a: []float64{1, 0}, b: []float64{1, 0}, want: 1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "length mismatch", a: []float64{1}, b: []float64{1, 0}, want: 0},
		{name: "zero vector", a: []float64{0, 0}, b: []float64{1, 0}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %f, want %f", got, tt.want)
			}
		})
	}
}
