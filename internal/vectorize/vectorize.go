// Package vectorize builds a shared TF-IDF text representation for a
// target document plus its candidate documents.
//
// The vocabulary covers unigrams and bigrams, excludes stopwords, and keeps
// only terms that occur in at least MinDF documents. Corpora smaller than
// RelaxBelow are weighted by raw term frequency: with two documents IDF can
// only distinguish shared from unshared terms, and it penalizes the shared
// ones. A Matrix is built fresh
// per call and never mutated afterwards, so it can be read concurrently.
package vectorize

import (
	"math"
	"sort"
)

// Defaults for vocabulary construction.
const (
	DefaultMaxFeatures = 1000
	DefaultMinDF       = 2
	// DefaultRelaxBelow is the corpus size below which MinDF is relaxed to 1
	// and IDF weighting is skipped.
	DefaultRelaxBelow = 3
)

// Options configures a Vectorizer. Zero values take the defaults.
type Options struct {
	MaxFeatures int
	MinDF       int
	RelaxBelow  int
	Stopwords   map[string]struct{}
}

// Vectorizer turns a corpus into TF-IDF vectors over a shared vocabulary.
type Vectorizer struct {
	opts Options
}

// New creates a Vectorizer, filling unset options with defaults.
func New(opts Options) *Vectorizer {
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = DefaultMaxFeatures
	}
	if opts.MinDF <= 0 {
		opts.MinDF = DefaultMinDF
	}
	if opts.RelaxBelow <= 0 {
		opts.RelaxBelow = DefaultRelaxBelow
	}
	if opts.Stopwords == nil {
		opts.Stopwords = DefaultStopwords()
	}
	return &Vectorizer{opts: opts}
}

// Matrix holds one L2-normalized vector per input document. All vectors
// share the dimensionality len(Vocabulary); when the vocabulary is empty
// every vector is empty.
type Matrix struct {
	Vocabulary []string
	Vectors    [][]float64
	// MinDF is the document-frequency threshold actually applied.
	MinDF int
}

// Dim returns the vector dimensionality.
func (m *Matrix) Dim() int {
	return len(m.Vocabulary)
}

// FitTransform builds the vocabulary over docs and returns their vectors in
// input order. The strict MinDF is relaxed to 1 when the corpus is smaller
// than RelaxBelow or when the strict threshold would leave the vocabulary
// empty. Small corpora get term-frequency vectors without IDF.
func (v *Vectorizer) FitTransform(docs []string) *Matrix {
	n := len(docs)
	if n == 0 {
		return &Matrix{}
	}

	counts := make([]map[string]int, n)
	docFreq := make(map[string]int)
	corpusFreq := make(map[string]int)
	for i, doc := range docs {
		tf := make(map[string]int)
		for _, term := range Terms(Tokenize(doc, v.opts.Stopwords)) {
			tf[term]++
		}
		counts[i] = tf
		for term, c := range tf {
			docFreq[term]++
			corpusFreq[term] += c
		}
	}

	small := n < v.opts.RelaxBelow
	minDF := v.opts.MinDF
	if small {
		minDF = 1
	}
	vocab := selectVocabulary(docFreq, corpusFreq, minDF, v.opts.MaxFeatures)
	if len(vocab) == 0 && minDF > 1 {
		minDF = 1
		vocab = selectVocabulary(docFreq, corpusFreq, minDF, v.opts.MaxFeatures)
	}

	m := &Matrix{
		Vocabulary: vocab,
		Vectors:    make([][]float64, n),
		MinDF:      minDF,
	}
	if len(vocab) == 0 {
		return m
	}

	idf := make([]float64, len(vocab))
	index := make(map[string]int, len(vocab))
	for i, term := range vocab {
		index[term] = i
		if small {
			idf[i] = 1
			continue
		}
		// smooth idf: ln((1+n)/(1+df)) + 1
		idf[i] = math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
	}

	for d, tf := range counts {
		vec := make([]float64, len(vocab))
		for term, c := range tf {
			if i, ok := index[term]; ok {
				vec[i] = float64(c) * idf[i]
			}
		}
		normalizeL2(vec)
		m.Vectors[d] = vec
	}
	return m
}

// selectVocabulary keeps terms with docFreq >= minDF, caps the set at
// maxFeatures by corpus frequency (ties broken by term), and returns the
// survivors in lexical order.
func selectVocabulary(docFreq, corpusFreq map[string]int, minDF, maxFeatures int) []string {
	terms := make([]string, 0, len(docFreq))
	for term, df := range docFreq {
		if df >= minDF {
			terms = append(terms, term)
		}
	}
	if len(terms) > maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			fi, fj := corpusFreq[terms[i]], corpusFreq[terms[j]]
			if fi == fj {
				return terms[i] < terms[j]
			}
			return fi > fj
		})
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)
	return terms
}

func normalizeL2(vec []float64) {
	var sum float64
	for _, x := range vec {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

// Cosine returns the cosine similarity of a and b. Vectors of different
// length, empty vectors and zero vectors all yield 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
