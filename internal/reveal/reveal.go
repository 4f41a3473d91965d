// Package reveal pairs a slide's reveal steps with caption timestamps.
package reveal

import "github.com/ivlev/coursevideo/internal/slide"

// Entry activates StepID At seconds after the slide starts.
type Entry struct {
	StepID string  `json:"id"`
	At     float64 `json:"at"`
}

// Plan pairs reveal step i with caption chunk i's start time. Steps without
// a matching chunk activate at 0; surplus chunks are ignored.
func Plan(stepIDs []string, chunks []slide.CaptionChunk) []Entry {
	plan := make([]Entry, len(stepIDs))
	for i, id := range stepIDs {
		plan[i] = Entry{StepID: id}
		if i < len(chunks) {
			plan[i].At = chunks[i].Start
		}
	}
	return plan
}

// PlanFor builds the plan of a slide.
func PlanFor(s slide.Slide) []Entry {
	return Plan(s.RevealSteps, s.Caption.Chunks)
}

// Due returns the step IDs whose activation time has passed, in plan order.
func Due(plan []Entry, elapsed float64) []string {
	var due []string
	for _, e := range plan {
		if e.At <= elapsed {
			due = append(due, e.StepID)
		}
	}
	return due
}
