package index

import (
	"context"

	"github.com/poiesic/strata/core"
)

// UpdateCampaignIndexes brings every index entry of c up to date. previous
// is the stored version of c before this update, or nil for a new campaign;
// entries that only applied to it are removed.
func (e *Engine) UpdateCampaignIndexes(ctx context.Context, previous, c *core.Campaign) error {
	if previous != nil && previous.UserID != c.UserID && previous.UserID != "" {
		if err := e.Remove(ctx, UserCampaigns, previous.UserID, c.ID, nil); err != nil {
			return err
		}
	}
	if err := e.Add(ctx, UserCampaigns, c.UserID, c.ID, nil); err != nil {
		return err
	}

	if previous != nil && previous.CategoryID != c.CategoryID && previous.CategoryID != "" {
		if err := e.Remove(ctx, CategoryCampaigns, previous.CategoryID, c.ID, nil); err != nil {
			return err
		}
	}
	if err := e.Add(ctx, CategoryCampaigns, c.CategoryID, c.ID, nil); err != nil {
		return err
	}

	if err := e.AddLatest(ctx, LatestCampaigns, LatestRef, c.ID, e.maxLatest); err != nil {
		return err
	}

	oldText := ""
	if previous != nil {
		oldText = previous.Text()
	}
	return e.UpdateWords(ctx, WordCampaigns, oldText, c.Text(), c.ID)
}

// DeleteCampaignIndexes removes every index entry of c.
func (e *Engine) DeleteCampaignIndexes(ctx context.Context, c *core.Campaign) error {
	if err := e.Remove(ctx, UserCampaigns, c.UserID, c.ID, nil); err != nil {
		return err
	}
	if err := e.Remove(ctx, CategoryCampaigns, c.CategoryID, c.ID, nil); err != nil {
		return err
	}
	if err := e.RemoveLatest(ctx, LatestCampaigns, LatestRef, c.ID); err != nil {
		return err
	}
	if err := e.Clear(ctx, BestCampaigns, c.ID, nil); err != nil {
		return err
	}
	if err := e.Clear(ctx, WorstCampaigns, c.ID, nil); err != nil {
		return err
	}
	return e.RemoveWords(ctx, WordCampaigns, c.Text(), c.ID)
}

// CampaignIDsByUser returns the ids of the campaigns owned by userID.
func (e *Engine) CampaignIDsByUser(ctx context.Context, userID string) ([]string, error) {
	return e.IDsFor(ctx, UserCampaigns, userID, nil)
}

// CampaignIDsByCategory returns the ids of the campaigns in categoryID.
func (e *Engine) CampaignIDsByCategory(ctx context.Context, categoryID string) ([]string, error) {
	return e.IDsFor(ctx, CategoryCampaigns, categoryID, nil)
}

// CampaignIDsByWord returns the ids of the campaigns whose text contains word.
func (e *Engine) CampaignIDsByWord(ctx context.Context, word string) ([]string, error) {
	return e.WordIDs(ctx, WordCampaigns, word)
}

// LatestCampaignIDs returns the most recently added campaign ids, oldest
// first.
func (e *Engine) LatestCampaignIDs(ctx context.Context) ([]string, error) {
	return e.LatestIDs(ctx, LatestCampaigns, LatestRef)
}

// UpdateUserIndexes brings the index entries of u up to date. previous is
// the stored version of u, or nil for a new user.
func (e *Engine) UpdateUserIndexes(ctx context.Context, previous, u *core.User) error {
	if previous != nil && previous.Email != u.Email && previous.Email != "" {
		if err := e.Remove(ctx, EmailUsers, previous.Email, u.ID, nil); err != nil {
			return err
		}
	}
	return e.Add(ctx, EmailUsers, u.Email, u.ID, nil)
}

// DeleteUserIndexes removes the index entries of u.
func (e *Engine) DeleteUserIndexes(ctx context.Context, u *core.User) error {
	return e.Remove(ctx, EmailUsers, u.Email, u.ID, nil)
}

// UserIDsByEmail returns the ids of the users registered with email.
func (e *Engine) UserIDsByEmail(ctx context.Context, email string) ([]string, error) {
	return e.IDsFor(ctx, EmailUsers, email, nil)
}
