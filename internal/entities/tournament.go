package entities

import (
	"context"

	"github.com/google/uuid"
)

// Tournament is the root of an isolation scope: every other entity in
// this package ultimately resolves its tournament id back to one row
// here, and deleting it cascades to everything that scopes to it.
type Tournament struct {
	UUID                     uuid.UUID `json:"uuid"`
	Name                     string    `json:"name"`
	AnnouncementsPassword    string    `json:"announcements_password"`
	AllowSelfDeclaredClashes bool      `json:"allow_self_declared_clashes"`
}

func (t *Tournament) EntityType() EntityType { return TypeTournament }
func (t *Tournament) EntityID() uuid.UUID    { return t.UUID }
func (t *Tournament) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	return t.UUID, nil
}

// Institution is a clash-bearing affiliation a participant can declare
// membership in (school, club, ...).
type Institution struct {
	UUID         uuid.UUID `json:"uuid"`
	TournamentID uuid.UUID `json:"tournament_id"`
	Name         string    `json:"name"`
}

func (i *Institution) EntityType() EntityType { return TypeInstitution }
func (i *Institution) EntityID() uuid.UUID    { return i.UUID }
func (i *Institution) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	return i.TournamentID, nil
}

// Team is a group of speakers competing together in debates.
type Team struct {
	UUID         uuid.UUID `json:"uuid"`
	TournamentID uuid.UUID `json:"tournament_id"`
	Name         string    `json:"name"`
}

func (t *Team) EntityType() EntityType { return TypeTeam }
func (t *Team) EntityID() uuid.UUID    { return t.UUID }
func (t *Team) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	return t.TournamentID, nil
}

// Venue is a physical or virtual debate room.
type Venue struct {
	UUID         uuid.UUID `json:"uuid"`
	TournamentID uuid.UUID `json:"tournament_id"`
	Name         string    `json:"name"`
}

func (v *Venue) EntityType() EntityType { return TypeVenue }
func (v *Venue) EntityID() uuid.UUID    { return v.UUID }
func (v *Venue) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	return v.TournamentID, nil
}

// InstitutionAffiliation is a participant's declared membership in an
// institution, carrying the clash severity that membership implies.
type InstitutionAffiliation struct {
	InstitutionID uuid.UUID `json:"uuid"`
	ClashSeverity int       `json:"clash_severity"`
}
