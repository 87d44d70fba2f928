package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Kind discriminates opportunity payloads.
type Kind string

// Opportunity kinds.
const (
	KindGrant       Kind = "grant"
	KindScholarship Kind = "scholarship"
	KindFellowship  Kind = "fellowship"
	KindInternship  Kind = "internship"
	KindJob         Kind = "job"
	KindCompetition Kind = "competition"
	KindAccelerator Kind = "accelerator"
	KindConference  Kind = "conference"
)

var knownKinds = []Kind{
	KindGrant, KindScholarship, KindFellowship, KindInternship,
	KindJob, KindCompetition, KindAccelerator, KindConference,
}

// Kinds returns every known kind.
func Kinds() []Kind { return slices.Clone(knownKinds) }

// ParseKind accepts a kind case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown opportunity type %q", s)
	}
	return k, nil
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return slices.Contains(knownKinds, k) }

// Extracted holds the fields produced by the extraction pipeline.
type Extracted struct {
	Title        string   `json:"extractedTitle"        validate:"required"`
	Type         Kind     `json:"extractedType"         validate:"required"`
	Description  string   `json:"extractedDescription"`
	Deadline     string   `json:"extractedDeadline,omitempty"`
	Location     string   `json:"extractedLocation,omitempty"`
	Amount       string   `json:"extractedAmount,omitempty"`
	Link         string   `json:"extractedLink,omitempty"         validate:"omitempty,url"`
	Eligibility  []string `json:"extractedEligibility,omitempty"`
	Benefits     []string `json:"extractedBenefits,omitempty"`
	Instructions []string `json:"extractedInstructions,omitempty"`
}

// Clone returns a deep copy.
func (e Extracted) Clone() Extracted {
	out := e
	out.Eligibility = slices.Clone(e.Eligibility)
	out.Benefits = slices.Clone(e.Benefits)
	out.Instructions = slices.Clone(e.Instructions)
	return out
}

// Equal compares all fields.
func (e Extracted) Equal(o Extracted) bool {
	return e.Title == o.Title && e.Type == o.Type && e.Description == o.Description &&
		e.Deadline == o.Deadline && e.Location == o.Location && e.Amount == o.Amount &&
		e.Link == o.Link && slices.Equal(e.Eligibility, o.Eligibility) &&
		slices.Equal(e.Benefits, o.Benefits) && slices.Equal(e.Instructions, o.Instructions)
}

// Field names accepted by Edits.Set.
const (
	FieldTitle        = "title"
	FieldType         = "type"
	FieldDescription  = "description"
	FieldDeadline     = "deadline"
	FieldLocation     = "location"
	FieldAmount       = "amount"
	FieldLink         = "link"
	FieldEligibility  = "eligibility"
	FieldBenefits     = "benefits"
	FieldInstructions = "instructions"
)

// EditableFields lists the names accepted by Edits.Set.
func EditableFields() []string {
	return []string{
		FieldTitle, FieldType, FieldDescription, FieldDeadline, FieldLocation,
		FieldAmount, FieldLink, FieldEligibility, FieldBenefits, FieldInstructions,
	}
}

// Edits is a partial update of extracted fields. Nil fields are untouched.
type Edits struct {
	Title        *string   `json:"title,omitempty"`
	Type         *Kind     `json:"type,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Deadline     *string   `json:"deadline,omitempty"`
	Location     *string   `json:"location,omitempty"`
	Amount       *string   `json:"amount,omitempty"`
	Link         *string   `json:"link,omitempty"`
	Eligibility  *[]string `json:"eligibility,omitempty"`
	Benefits     *[]string `json:"benefits,omitempty"`
	Instructions *[]string `json:"instructions,omitempty"`
}

// Empty reports whether no field is set.
func (e Edits) Empty() bool {
	return e.Title == nil && e.Type == nil && e.Description == nil && e.Deadline == nil &&
		e.Location == nil && e.Amount == nil && e.Link == nil &&
		e.Eligibility == nil && e.Benefits == nil && e.Instructions == nil
}

// Set assigns a field by name. List fields take newline or comma separated items.
func (e *Edits) Set(field, value string) error {
	switch field {
	case FieldTitle:
		e.Title = &value
	case FieldType:
		k, err := ParseKind(value)
		if err != nil {
			return err
		}
		e.Type = &k
	case FieldDescription:
		e.Description = &value
	case FieldDeadline:
		e.Deadline = &value
	case FieldLocation:
		e.Location = &value
	case FieldAmount:
		e.Amount = &value
	case FieldLink:
		e.Link = &value
	case FieldEligibility:
		items := splitList(value)
		e.Eligibility = &items
	case FieldBenefits:
		items := splitList(value)
		e.Benefits = &items
	case FieldInstructions:
		items := splitList(value)
		e.Instructions = &items
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

// Diff returns the edits that turn from into to.
func Diff(from, to Extracted) Edits {
	var e Edits
	diffField(&e.Title, from.Title, to.Title)
	diffField(&e.Type, from.Type, to.Type)
	diffField(&e.Description, from.Description, to.Description)
	diffField(&e.Deadline, from.Deadline, to.Deadline)
	diffField(&e.Location, from.Location, to.Location)
	diffField(&e.Amount, from.Amount, to.Amount)
	diffField(&e.Link, from.Link, to.Link)
	diffList(&e.Eligibility, from.Eligibility, to.Eligibility)
	diffList(&e.Benefits, from.Benefits, to.Benefits)
	diffList(&e.Instructions, from.Instructions, to.Instructions)
	return e
}

func diffField[T comparable](dst **T, from, to T) {
	if from != to {
		v := to
		*dst = &v
	}
}

func diffList(dst **[]string, from, to []string) {
	if !slices.Equal(from, to) {
		v := slices.Clone(to)
		*dst = &v
	}
}

// Apply returns x with the set fields replaced.
func (e Edits) Apply(x Extracted) Extracted {
	out := x.Clone()
	applyField(&out.Title, e.Title)
	applyField(&out.Type, e.Type)
	applyField(&out.Description, e.Description)
	applyField(&out.Deadline, e.Deadline)
	applyField(&out.Location, e.Location)
	applyField(&out.Amount, e.Amount)
	applyField(&out.Link, e.Link)
	if e.Eligibility != nil {
		out.Eligibility = slices.Clone(*e.Eligibility)
	}
	if e.Benefits != nil {
		out.Benefits = slices.Clone(*e.Benefits)
	}
	if e.Instructions != nil {
		out.Instructions = slices.Clone(*e.Instructions)
	}
	return out
}

func applyField[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Normalize trims whitespace and drops empty list items, the way the service
// stores edits.
func (e Edits) Normalize() Edits {
	out := e
	out.Title = trimPtr(e.Title)
	out.Description = trimPtr(e.Description)
	out.Deadline = trimPtr(e.Deadline)
	out.Location = trimPtr(e.Location)
	out.Amount = trimPtr(e.Amount)
	out.Link = trimPtr(e.Link)
	out.Eligibility = cleanList(e.Eligibility)
	out.Benefits = cleanList(e.Benefits)
	out.Instructions = cleanList(e.Instructions)
	return out
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func cleanList(items *[]string) *[]string {
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(*items))
	for _, it := range *items {
		if t := strings.TrimSpace(it); t != "" {
			out = append(out, t)
		}
	}
	return &out
}

func splitList(value string) []string {
	sep := ","
	if strings.Contains(value, "\n") {
		sep = "\n"
	}
	parts := strings.Split(value, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
