package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the sortable UTC layout used for Created and Modified.
const TimestampLayout = "20060102T150405"

// NewID returns a fresh opaque record id: 32 lowercase hex characters.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Now returns the current UTC time in TimestampLayout.
func Now() string {
	return time.Now().UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a value written by Now.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// Meta holds the bookkeeping fields shared by every persisted record.
// It is embedded in each model so the fields serialize at the top level.
type Meta struct {
	ID       string `json:"id"`
	Created  string `json:"created"`
	Modified string `json:"modified"`
	Kind     string `json:"kind"`
}

// Metadata returns the record's bookkeeping fields.
func (m *Meta) Metadata() *Meta {
	return m
}

// Stamp prepares the fields for a save: it assigns an id when missing, sets
// Created on the first save only, refreshes Modified and records kind.
func (m *Meta) Stamp(kind string) {
	if m.ID == "" {
		m.ID = NewID()
	}
	now := Now()
	if m.Created == "" {
		m.Created = now
	}
	m.Modified = now
	m.Kind = kind
}

// Record is any typed entity persisted by the object store.
type Record interface {
	// Metadata returns the embedded bookkeeping fields.
	Metadata() *Meta

	// RecordKind returns the type name used in paths and the stored kind tag.
	RecordKind() string

	// RequiredFields lists the JSON fields that must be present for stored
	// data to be accepted as this kind.
	RequiredFields() []string
}

// User is an account holder.
type User struct {
	Meta
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PasswordHash string `json:"password_hash"`
	Email        string `json:"email"`
}

// RecordKind implements Record.
func (u *User) RecordKind() string { return KindUser }

// RequiredFields implements Record.
func (u *User) RequiredFields() []string {
	return []string{"first_name", "last_name", "password_hash", "email"}
}

// Contribution is a single donation made towards a campaign.
type Contribution map[string]any

// Campaign is a fundraising campaign owned by a user.
type Campaign struct {
	Meta
	Title                    string         `json:"title"`
	Description              string         `json:"description"`
	UserID                   string         `json:"user_id"`
	Contributions            []Contribution `json:"contributions"`
	Goal                     int            `json:"goal"`
	CategoryID               string         `json:"category_id"`
	CountryID                int            `json:"country_id"`
	CurrencyCode             string         `json:"currency_code"`
	CurrencySymbol           string         `json:"currency_symbol"`
	CampaignTypeID           int            `json:"campaign_type_id"`
	ImagePath                string         `json:"image_path"`
	Recipient                string         `json:"recipient"`
	AmountReached            int            `json:"amount_reached"`
	LastContributionDatetime string         `json:"last_contribution_datetime"`
	Sentiment                string         `json:"sentiment"`
	ContributionCount        int            `json:"contribution_count"`
}

// RecordKind implements Record.
func (c *Campaign) RecordKind() string { return KindCampaign }

// RequiredFields implements Record.
func (c *Campaign) RequiredFields() []string {
	return []string{
		"title", "description", "user_id", "goal", "category_id",
		"country_id", "currency_code", "currency_symbol", "campaign_type_id",
	}
}

// Text returns the free text the word index is built from.
func (c *Campaign) Text() string {
	return c.Title + " " + c.Description
}

// Progress returns the fraction of the goal reached, capped at 1.
func (c *Campaign) Progress() float64 {
	goal := c.Goal
	if goal < 1 {
		goal = 1
	}
	p := float64(c.AmountReached) / float64(goal)
	if p > 1 {
		return 1
	}
	return p
}

// Kind names of the built-in models.
const (
	KindUser     = "User"
	KindCampaign = "Campaign"
)
