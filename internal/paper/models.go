package paper

import "time"

// Status is the publication state of a paper. Any value may be set at any
// time; there are no guarded transitions.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Section is a scored subdivision of a Paper. Questions holds opaque
// question-reference ids owned by the question service.
type Section struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Instructions string    `json:"instructions"`
	Marks        float64   `json:"marks"`
	TimeLimit    *float64  `json:"timeLimit,omitempty"`
	Questions    []string  `json:"questions"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Paper is one examination definition. It exclusively owns its sections.
type Paper struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	TotalMarks  float64   `json:"totalMarks"`
	Sections    []Section `json:"sections"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := s
	if s.TimeLimit != nil {
		v := *s.TimeLimit
		out.TimeLimit = &v
	}
	out.Questions = append([]string{}, s.Questions...)
	return out
}

// Clone returns a deep copy of the paper, sections included.
func (p Paper) Clone() Paper {
	out := p
	out.Sections = make([]Section, len(p.Sections))
	for i, s := range p.Sections {
		out.Sections[i] = s.Clone()
	}
	return out
}

// Section returns the section with the given id.
func (p Paper) Section(id string) (Section, bool) {
	for _, s := range p.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// SectionForm is validated section input, before the store assigns an id
// and a creation time.
type SectionForm struct {
	Title        string
	Instructions string
	Marks        float64
	TimeLimit    *float64
	Questions    []string
}

// PaperForm is validated paper input, before the store assigns an id and a
// creation time.
type PaperForm struct {
	Title       string
	Description string
	Duration    float64
	TotalMarks  float64
	Sections    []SectionForm
}

// Summary is a read-only view of a paper used by list screens. Marks are
// reported, never reconciled.
type Summary struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Status        Status  `json:"status"`
	SectionCount  int     `json:"sectionCount"`
	SectionMarks  float64 `json:"sectionMarks"`
	TotalMarks    float64 `json:"totalMarks"`
	MarksBalanced bool    `json:"marksBalanced"`
}

// Summarize derives the list view of p.
func Summarize(p Paper) Summary {
	var marks float64
	for _, s := range p.Sections {
		marks += s.Marks
	}
	return Summary{
		ID:            p.ID,
		Title:         p.Title,
		Status:        p.Status,
		SectionCount:  len(p.Sections),
		SectionMarks:  marks,
		TotalMarks:    p.TotalMarks,
		MarksBalanced: marks == p.TotalMarks,
	}
}
