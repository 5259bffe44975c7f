// Package service implements the annotation pipeline: metadata cache,
// submission status resolution, manual marks, time stacking, event
// classification and the feed orchestrator.
package service

import (
	"context"
	"time"

	"schoolcal/internal/clients/schoology"
)

// lmsAPI is the slice of the Schoology client the services consume.
// Tests substitute fakes.
type lmsAPI interface {
	IsConfigured() bool
	UserID() string
	Sections(ctx context.Context) ([]schoology.Section, error)
	Events(ctx context.Context, start, end time.Time) ([]schoology.Event, error)
	CheckSubmission(ctx context.Context, sectionID, itemID string) (schoology.SubmissionResult, error)
}
