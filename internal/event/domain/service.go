package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	List(ctx context.Context, filter ListFilter) ([]Event, error)

	// AssignManually records a human override of the billing entity link.
	// Passing an empty entityID clears the assignment and the manual flag,
	// returning the event to the matcher's pool.
	AssignManually(ctx context.Context, ownerID snowflake.ID, eventID string, entityID string) (*Event, error)
}
