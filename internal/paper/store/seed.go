package store

import "github.com/paperbuilder/paper-builder/backend/go-services/internal/paper"

// Seed adds the demo paper shown on a fresh install and returns it.
func Seed(s *Store) paper.Paper {
	algebraLimit := 45.0
	return s.AddPaper(paper.PaperForm{
		Title:       "Mathematics Final Exam",
		Description: "End of year examination covering algebra and geometry.",
		Duration:    120,
		TotalMarks:  100,
		Sections: []paper.SectionForm{
			{
				Title:        "Algebra",
				Instructions: "Answer all questions. Show your working.",
				Marks:        40,
				TimeLimit:    &algebraLimit,
			},
			{
				Title:        "Geometry",
				Instructions: "Answer any three questions.",
				Marks:        60,
			},
		},
	})
}
