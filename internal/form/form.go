// Package form validates flat form submissions against declarative schemas.
//
// A Schema lists its fields in order. Parse checks every field, and only when
// all of them pass does it run the schema's cross-field refinements. Parsing
// does no I/O and always gives the same result for the same input.
package form

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

type Kind int

const (
	String Kind = iota
	PositiveDecimal
	PositiveInt
	Date
)

const DateLayout = "2006-01-02"

var decimalPattern = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

type Field struct {
	Name string
	Kind Kind
	// Min and Max bound the length of String fields after transforms.
	// Max 0 means no upper bound.
	Min, Max int
	// MaxBytes bounds the encoded length of String fields. 0 means no bound.
	MaxBytes int
	// MaxDecimal caps PositiveDecimal fields when set.
	MaxDecimal *decimal.Decimal
	Trim       bool
	Lower      bool
	// Optional fields may be missing or empty; they then hold the zero value.
	Optional bool
}

// Refinement is a rule over several parsed values. When Check fails,
// Message is attached to Path, or to the form error if Path is empty.
type Refinement struct {
	Path    string
	Message string
	Check   func(v Values) bool
}

type Schema struct {
	Fields      []Field
	Refinements []Refinement
}

// Extend returns a copy of s with more fields and refinements appended.
func (s Schema) Extend(fields []Field, refinements ...Refinement) Schema {
	out := Schema{
		Fields:      make([]Field, 0, len(s.Fields)+len(fields)),
		Refinements: make([]Refinement, 0, len(s.Refinements)+len(refinements)),
	}
	out.Fields = append(append(out.Fields, s.Fields...), fields...)
	out.Refinements = append(append(out.Refinements, s.Refinements...), refinements...)
	return out
}

type Errors struct {
	FieldErrors map[string][]string `json:"fieldErrors,omitempty"`
	FormError   string              `json:"formError,omitempty"`
}

func (e Errors) Empty() bool {
	return len(e.FieldErrors) == 0 && e.FormError == ""
}

func (e *Errors) Add(field, msg string) {
	if field == "" {
		e.AddForm(msg)
		return
	}
	if e.FieldErrors == nil {
		e.FieldErrors = map[string][]string{}
	}
	e.FieldErrors[field] = append(e.FieldErrors[field], msg)
}

func (e *Errors) AddForm(msg string) {
	if e.FormError == "" {
		e.FormError = msg
		return
	}
	e.FormError += ", " + msg
}

// Error flattens field and form errors into one line.
func (e Errors) Error() string {
	var parts []string
	for _, name := range slices.Sorted(maps.Keys(e.FieldErrors)) {
		parts = append(parts, strings.Join(e.FieldErrors[name], ", "))
	}
	if e.FormError != "" {
		parts = append(parts, e.FormError)
	}
	return strings.Join(parts, ", ")
}

type Result struct {
	Values Values
	Errors Errors
}

func (r Result) OK() bool { return r.Errors.Empty() }

func (s Schema) Parse(raw map[string]string) Result {
	res := Result{Values: Values{}}

	for _, f := range s.Fields {
		val, present := raw[f.Name]
		if f.Kind == String {
			if f.Trim {
				val = strings.TrimSpace(val)
			}
			if f.Lower {
				val = strings.ToLower(val)
			}
		} else {
			val = strings.TrimSpace(val)
		}

		if val == "" && f.Optional {
			res.Values[f.Name] = zero(f.Kind)
			continue
		}
		if !present {
			res.Errors.Add(f.Name, "Required")
			continue
		}

		parsed, msgs := f.parse(val)
		if len(msgs) > 0 {
			for _, m := range msgs {
				res.Errors.Add(f.Name, m)
			}
			continue
		}
		res.Values[f.Name] = parsed
	}

	if !res.Errors.Empty() {
		return res
	}
	for _, r := range s.Refinements {
		if !r.Check(res.Values) {
			res.Errors.Add(r.Path, r.Message)
		}
	}
	return res
}

func (f Field) parse(val string) (any, []string) {
	switch f.Kind {
	case PositiveDecimal:
		d, msgs := parseDecimal(val)
		if len(msgs) == 0 && f.MaxDecimal != nil && d.(decimal.Decimal).GreaterThan(*f.MaxDecimal) {
			return nil, []string{"Must be at most " + f.MaxDecimal.StringFixed(2)}
		}
		return d, msgs
	case PositiveInt:
		return parseInt(val)
	case Date:
		t, err := time.Parse(DateLayout, val)
		if err != nil {
			return nil, []string{"Please enter a valid date (YYYY-MM-DD)"}
		}
		return &t, nil
	default:
		var msgs []string
		n := utf8.RuneCountInString(val)
		if n < f.Min {
			msgs = append(msgs, fmt.Sprintf("Must contain at least %d character(s)", f.Min))
		}
		if f.Max > 0 && n > f.Max {
			msgs = append(msgs, fmt.Sprintf("Must contain at most %d character(s)", f.Max))
		}
		if f.MaxBytes > 0 && len(val) > f.MaxBytes {
			msgs = append(msgs, fmt.Sprintf("Must be at most %d bytes long", f.MaxBytes))
		}
		return val, msgs
	}
}

func parseDecimal(val string) (any, []string) {
	if strings.HasPrefix(val, "-") {
		if _, err := decimal.NewFromString(val); err == nil {
			return nil, []string{"Please enter a positive number"}
		}
	}
	if !decimalPattern.MatchString(val) {
		return nil, []string{"Please enter a valid number"}
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		return nil, []string{"Please enter a valid number"}
	}
	if !d.IsPositive() {
		return nil, []string{"Please enter a positive number"}
	}
	if !d.Equal(d.Round(2)) {
		return nil, []string{"Please enter a number with at most 2 decimal places"}
	}
	return d, nil
}

func parseInt(val string) (any, []string) {
	n, err := strconv.Atoi(val)
	if err != nil {
		return nil, []string{"Please enter a whole number"}
	}
	if n <= 0 {
		return nil, []string{"Please enter a positive whole number"}
	}
	return n, nil
}

func zero(k Kind) any {
	switch k {
	case PositiveDecimal:
		return decimal.Zero
	case PositiveInt:
		return 0
	case Date:
		return (*time.Time)(nil)
	default:
		return ""
	}
}

// Values holds parsed values keyed by field name.
type Values map[string]any

func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

func (v Values) Decimal(name string) decimal.Decimal {
	d, ok := v[name].(decimal.Decimal)
	if !ok {
		return decimal.Zero
	}
	return d
}

func (v Values) Int(name string) int {
	n, _ := v[name].(int)
	return n
}

func (v Values) Date(name string) *time.Time {
	t, _ := v[name].(*time.Time)
	return t
}

func (v Values) Bool(name string) bool {
	switch strings.ToLower(v.String(name)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}
