package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"attendanceingest/internal/domain"
)

// genericTokenValues collapse to the default token of the mailing list.
var genericTokenValues = map[string]struct{}{
	"default":       {},
	"emailreferral": {},
	"email":         {},
	"instagram":     {},
	"facebook":      {},
}

// ClassifyToken maps a raw tracking value to the stored token value and its category.
func ClassifyToken(raw string) (string, domain.TokenCategory) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return domain.DefaultTokenValue, domain.TokenCategoryMailingList
	}
	if r := []rune(v); len(r) > domain.MaxTokenValueLength {
		v = string(r[:domain.MaxTokenValueLength])
	}
	if _, ok := genericTokenValues[strings.ToLower(v)]; ok {
		return domain.DefaultTokenValue, domain.TokenCategoryMailingList
	}
	return v, domain.TokenCategoryPersonalOutreach
}

type tokenKey struct {
	eventID int64
	value   string
}

// TokenRegistry resolves tracking values to invite token ids, creating tokens on first sight.
// Resolved ids are cached until Reset.
type TokenRegistry struct {
	tokens domain.InviteTokenRepository
	cache  map[tokenKey]int64
}

func NewTokenRegistry(tokens domain.InviteTokenRepository) *TokenRegistry {
	return &TokenRegistry{tokens: tokens, cache: make(map[tokenKey]int64)}
}

// Resolve returns the id of the token for the event and raw tracking value.
func (r *TokenRegistry) Resolve(ctx context.Context, eventID int64, raw string) (int64, error) {
	value, category := ClassifyToken(raw)
	key := tokenKey{eventID: eventID, value: value}
	if id, ok := r.cache[key]; ok {
		return id, nil
	}

	existing, err := r.tokens.GetByValue(ctx, eventID, value)
	switch {
	case err == nil:
		r.cache[key] = existing.ID
		return existing.ID, nil
	case !errors.Is(err, domain.ErrNotFound):
		return 0, fmt.Errorf("get invite token: %w", err)
	}

	t := &domain.InviteToken{EventID: eventID, Category: category, Value: value}
	if err := r.tokens.Create(ctx, t); err != nil {
		return 0, fmt.Errorf("create invite token: %w", err)
	}
	r.cache[key] = t.ID
	return t.ID, nil
}

// Reset forgets cached ids. Call it whenever uncommitted work may have been lost.
func (r *TokenRegistry) Reset() {
	clear(r.cache)
}
