package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// EntityMatchCount reports how many events one entity claimed in a pass.
type EntityMatchCount struct {
	EntityID string `json:"entity_id"`
	Count    int    `json:"count"`
}

// MatchResult summarizes one matcher pass.
type MatchResult struct {
	MatchedCount int                `json:"matched_count"`
	PerEntity    []EntityMatchCount `json:"per_entity"`
}

type Service interface {
	// Match assigns the owner's unassigned, unbilled events to billing
	// entities by location pattern. Entities claim in their configured
	// order; the first entity to claim an event wins.
	Match(ctx context.Context, ownerID snowflake.ID) (MatchResult, error)
}

var ErrInvalidOwner = errors.New("invalid_owner")
