package domain

import "context"

// TokenCategory classifies how an invite token reached the attendee.
type TokenCategory string

const (
	TokenCategoryMailingList      TokenCategory = "mailing list"
	TokenCategoryPersonalOutreach TokenCategory = "personal outreach"
)

// DefaultTokenValue is the value generic and missing tracking codes collapse to.
const DefaultTokenValue = "default"

// MaxTokenValueLength is the column width of invitetokens.value.
const MaxTokenValueLength = 100

// InviteToken is a distinct tracking value seen for an event. (EventID, Value) is unique.
type InviteToken struct {
	ID       int64         `json:"id"`
	EventID  int64         `json:"event_id"`
	Category TokenCategory `json:"category"`
	Value    string        `json:"value"`
}

// InviteTokenRepository defines the interface for invite token storage
type InviteTokenRepository interface {
	GetByValue(ctx context.Context, eventID int64, value string) (*InviteToken, error)
	Create(ctx context.Context, t *InviteToken) error
}
