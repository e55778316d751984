// Package validation holds the accepted shapes of paper and section form
// input. Raw values arrive keyed by field name, as strings or JSON numbers;
// numeric fields are coerced before the rules run and a failed coercion is
// reported as a violation of the field's rule.
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper"
	"github.com/spf13/cast"
)

const (
	MsgPaperTitleRequired   = "Paper title is required"
	MsgDescriptionRequired  = "Description is required"
	MsgDurationMin          = "Duration must be at least 1 minute"
	MsgTotalMarksMin        = "Total marks must be at least 1"
	MsgSectionTitleRequired = "Section title is required"
	MsgInstructionsRequired = "Instructions are required"
	MsgMarksMin             = "Marks must be at least 1"
	MsgTimeLimitNumber      = "Time limit must be a number"
	MsgQuestionsList        = "Questions must be a list of question ids"
	MsgSectionsList         = "Sections must be a list"
	MsgStatusInvalid        = "Status must be one of draft, published, archived"
)

// FieldErrors maps a field name to the single message describing why its
// value was rejected.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsFieldErrors extracts FieldErrors from err.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

type paperRules struct {
	Title       string  `json:"title" validate:"min=1"`
	Description string  `json:"description" validate:"min=1"`
	Duration    float64 `json:"duration" validate:"gte=1"`
	TotalMarks  float64 `json:"totalMarks" validate:"gte=1"`
}

type sectionRules struct {
	Title        string  `json:"title" validate:"min=1"`
	Instructions string  `json:"instructions" validate:"min=1"`
	Marks        float64 `json:"marks" validate:"gte=1"`
}

var paperMessages = map[string]string{
	"title":       MsgPaperTitleRequired,
	"description": MsgDescriptionRequired,
	"duration":    MsgDurationMin,
	"totalMarks":  MsgTotalMarksMin,
}

var sectionMessages = map[string]string{
	"title":        MsgSectionTitleRequired,
	"instructions": MsgInstructionsRequired,
	"marks":        MsgMarksMin,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their form name rather than the Go field name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidatePaper checks raw paper input. On failure the returned error is a
// FieldErrors; nested section errors are keyed "sections[i].field".
func ValidatePaper(input map[string]any) (paper.PaperForm, error) {
	errs := FieldErrors{}
	rules := paperRules{
		Title:       text(input, "title", errs, paperMessages),
		Description: text(input, "description", errs, paperMessages),
		Duration:    number(input, "duration", errs, paperMessages),
		TotalMarks:  number(input, "totalMarks", errs, paperMessages),
	}
	collect(validate.Struct(rules), errs, paperMessages)

	var sections []paper.SectionForm
	if raw, ok := input["sections"]; ok && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			errs["sections"] = MsgSectionsList
		}
		for i, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				errs[fmt.Sprintf("sections[%d]", i)] = MsgSectionsList
				continue
			}
			form, err := ValidateSection(m)
			if fe, ok := AsFieldErrors(err); ok {
				for field, msg := range fe {
					errs[fmt.Sprintf("sections[%d].%s", i, field)] = msg
				}
				continue
			}
			sections = append(sections, form)
		}
	}

	if len(errs) > 0 {
		return paper.PaperForm{}, errs
	}
	return paper.PaperForm{
		Title:       rules.Title,
		Description: rules.Description,
		Duration:    rules.Duration,
		TotalMarks:  rules.TotalMarks,
		Sections:    sections,
	}, nil
}

// ValidateSection checks raw section input. timeLimit is optional and
// unconstrained beyond being a number; questions are kept as given.
func ValidateSection(input map[string]any) (paper.SectionForm, error) {
	errs := FieldErrors{}
	rules := sectionRules{
		Title:        text(input, "title", errs, sectionMessages),
		Instructions: text(input, "instructions", errs, sectionMessages),
		Marks:        number(input, "marks", errs, sectionMessages),
	}
	collect(validate.Struct(rules), errs, sectionMessages)

	var timeLimit *float64
	if present(input, "timeLimit") {
		v, ok := coerceNumber(input["timeLimit"])
		if ok {
			timeLimit = &v
		} else {
			errs["timeLimit"] = MsgTimeLimitNumber
		}
	}

	questions, ok := questionIDs(input["questions"])
	if !ok {
		errs["questions"] = MsgQuestionsList
	}

	if len(errs) > 0 {
		return paper.SectionForm{}, errs
	}
	return paper.SectionForm{
		Title:        rules.Title,
		Instructions: rules.Instructions,
		Marks:        rules.Marks,
		TimeLimit:    timeLimit,
		Questions:    questions,
	}, nil
}

// ValidatePaperUpdate checks only the fields present in input, using the
// same rules as ValidatePaper. Unknown fields are ignored.
func ValidatePaperUpdate(input map[string]any) (paper.PaperUpdate, error) {
	errs := FieldErrors{}
	var u paper.PaperUpdate

	if _, ok := input["title"]; ok {
		if s := text(input, "title", errs, paperMessages); check(s, "min=1", "title", errs, paperMessages) {
			u.Title = paper.Set(s)
		}
	}
	if _, ok := input["description"]; ok {
		if s := text(input, "description", errs, paperMessages); check(s, "min=1", "description", errs, paperMessages) {
			u.Description = paper.Set(s)
		}
	}
	if _, ok := input["duration"]; ok {
		if n := number(input, "duration", errs, paperMessages); check(n, "gte=1", "duration", errs, paperMessages) {
			u.Duration = paper.Set(n)
		}
	}
	if _, ok := input["totalMarks"]; ok {
		if n := number(input, "totalMarks", errs, paperMessages); check(n, "gte=1", "totalMarks", errs, paperMessages) {
			u.TotalMarks = paper.Set(n)
		}
	}
	if raw, ok := input["status"]; ok {
		s, err := cast.ToStringE(raw)
		if err != nil || validate.Var(s, "oneof=draft published archived") != nil {
			errs["status"] = MsgStatusInvalid
		} else {
			u.Status = paper.Set(paper.Status(s))
		}
	}

	if len(errs) > 0 {
		return paper.PaperUpdate{}, errs
	}
	return u, nil
}

// check runs a single rule unless the field already failed coercion.
func check(v any, tag, field string, errs FieldErrors, messages map[string]string) bool {
	if _, failed := errs[field]; failed {
		return false
	}
	if validate.Var(v, tag) != nil {
		errs[field] = messages[field]
		return false
	}
	return true
}

func collect(err error, errs FieldErrors, messages map[string]string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return
	}
	for _, fe := range verrs {
		if _, seen := errs[fe.Field()]; !seen {
			errs[fe.Field()] = messages[fe.Field()]
		}
	}
}

func present(input map[string]any, field string) bool {
	v, ok := input[field]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

// text returns the field as entered. Missing values read as empty and are
// left to the length rule.
func text(input map[string]any, field string, errs FieldErrors, messages map[string]string) string {
	v, ok := input[field]
	if !ok || v == nil {
		return ""
	}
	switch v.(type) {
	case map[string]any, []any, bool:
		errs[field] = messages[field]
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		errs[field] = messages[field]
		return ""
	}
	return s
}

func number(input map[string]any, field string, errs FieldErrors, messages map[string]string) float64 {
	n, ok := coerceNumber(input[field])
	if !ok {
		errs[field] = messages[field]
		return 0
	}
	return n
}

func coerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		t = strings.TrimSpace(t)
		if t == "" {
			return 0, false
		}
		v = t
	}
	n, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	// ParseFloat accepts "Inf" and "NaN"; neither can be encoded as JSON
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func questionIDs(v any) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return []string{}, true
	case []string:
		return append([]string{}, t...), true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
