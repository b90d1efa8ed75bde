package record

import (
	"errors"
	"reflect"
	"testing"

	"github.com/onnwee/oppscore/internal/validate"
)

func TestRecord_Tags(t *testing.T) {
	tests := []struct {
		name     string
		category string
		want     []string
	}{
		{name: "absent", category: "", want: nil},
		{name: "single", category: "IT Services", want: []string{"IT Services"}},
		{name: "list with blanks", category: "cloud, , security ", want: []string{"cloud", "security"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{ID: "r1", Categorical: map[string]string{FieldCategory: tt.category}}
			got := r.Tags()
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecord_KeywordList(t *testing.T) {
	explicit := Record{Keywords: []string{" AI ", "", "cloud"}}
	if got := explicit.KeywordList(); !reflect.DeepEqual(got, []string{"AI", "cloud"}) {
		t.Errorf("explicit KeywordList() = %v", got)
	}

	fromAttr := Record{Categorical: map[string]string{FieldKeywords: "zero trust, edge"}}
	if got := fromAttr.KeywordList(); !reflect.DeepEqual(got, []string{"zero trust", "edge"}) {
		t.Errorf("attribute KeywordList() = %v", got)
	}
}

func TestRecord_AttrAndNumOnNilMaps(t *testing.T) {
	var r Record
	if r.Attr(FieldOrganization) != "" {
		t.Error("Attr on nil map should be empty")
	}
	if _, ok := r.Num(NumericValue); ok {
		t.Error("Num on nil map should report absent")
	}
}

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name      string
		record    Record
		opts      ValidateOptions
		wantField string
		wantCause error
	}{
		{
			name:   "valid record",
			record: Record{ID: "r1", Text: "cloud migration"},
		},
		{
			name:      "missing id",
			record:    Record{Text: "cloud"},
			wantField: "id",
			wantCause: validate.ErrEmpty,
		},
		{
			name:      "blank text rejected",
			record:    Record{ID: "r1", Text: "  "},
			wantField: "text",
			wantCause: validate.ErrEmpty,
		},
		{
			name:   "blank text allowed",
			record: Record{ID: "r1"},
			opts:   ValidateOptions{AllowEmptyText: true},
		},
		{
			name:      "malformed text",
			record:    Record{ID: "r1", Text: "\xfe\xff"},
			wantField: "text",
			wantCause: validate.ErrInvalidUTF8,
		},
		{
			name:      "required attribute missing",
			record:    Record{ID: "r1", Text: "x", Categorical: map[string]string{FieldClassification: ""}},
			opts:      ValidateOptions{Required: []string{FieldClassification}},
			wantField: "categorical_attributes.classification",
			wantCause: ErrMissingField,
		},
		{
			name:      "bad attribute name",
			record:    Record{ID: "r1", Text: "x", Categorical: map[string]string{"Bad-Name": "v"}},
			wantField: "categorical_attributes.Bad-Name",
			wantCause: validate.ErrInvalidCharacters,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate(tt.opts)
			if tt.wantCause == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("Validate() error = %v, want ErrInvalidInput", err)
			}
			if !errors.Is(err, tt.wantCause) {
				t.Errorf("Validate() error = %v, want cause %v", err, tt.wantCause)
			}
			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("Validate() error is not *InputError: %T", err)
			}
			if inputErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", inputErr.Field, tt.wantField)
			}
		})
	}
}
