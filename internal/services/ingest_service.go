package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"grailed/internal/domain"
	applog "grailed/internal/log"
	"grailed/internal/metrics"
	"grailed/internal/normalize"
	"grailed/internal/repos"
	"grailed/internal/validate"
)

const (
	EntityListings = "listings"
	EntityUsers    = "users"
)

type Outcome string

const (
	OutcomeIngested Outcome = "ingested"
	OutcomeNoData   Outcome = "no_data"
	OutcomeFailed   Outcome = "failed"
)

// Policy decides what a batch does after one document fails. The same policy
// applies to listing and user batches.
type Policy int

const (
	PolicyContinue Policy = iota
	PolicyAbort
)

func ParsePolicy(s string) (Policy, error) {
	p, ok := validate.Policy(s)
	if !ok {
		return PolicyContinue, fmt.Errorf("unknown error policy %q (want continue or abort)", s)
	}
	if p == "abort" {
		return PolicyAbort, nil
	}
	return PolicyContinue, nil
}

// StoreError reports a document whose transaction was rolled back.
type StoreError struct {
	Entity string
	ID     int64
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %d: %v", e.Entity, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IngestService merges normalized documents into the store, one transaction
// per document.
type IngestService struct {
	DB       *sqlx.DB
	Listings *repos.ListingRepo
	Users    *repos.UserRepo
	Log      *applog.Logger
	Metrics  *metrics.Metrics

	// MaxDocument caps one corpus line in bytes; zero means 16 MiB.
	MaxDocument int
}

func NewIngestService(db *sqlx.DB, log *applog.Logger, m *metrics.Metrics) *IngestService {
	return &IngestService{
		DB:       db,
		Listings: repos.NewListingRepo(db),
		Users:    repos.NewUserRepo(db),
		Log:      log,
		Metrics:  m,
	}
}

// IngestDocument dispatches raw to the listing or user path.
func (s *IngestService) IngestDocument(ctx context.Context, entity string, raw []byte) (Outcome, error) {
	switch entity {
	case EntityListings:
		return s.IngestListing(ctx, raw)
	case EntityUsers:
		return s.IngestUser(ctx, raw)
	}
	return OutcomeFailed, fmt.Errorf("unknown entity %q", entity)
}

// IngestListing upserts one listing document together with its photos and
// stub rows for the users it references.
func (s *IngestService) IngestListing(ctx context.Context, raw []byte) (Outcome, error) {
	rec, err := normalize.Listing(raw)
	if err != nil {
		return s.rejected(EntityListings, err)
	}

	err = repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		return s.applyListing(ctx, tx, rec)
	})
	if err != nil {
		s.Metrics.Document(EntityListings, string(OutcomeFailed))
		return OutcomeFailed, &StoreError{Entity: EntityListings, ID: rec.Listing.ID, Err: err}
	}
	s.Metrics.Document(EntityListings, string(OutcomeIngested))
	return OutcomeIngested, nil
}

func (s *IngestService) applyListing(ctx context.Context, tx *sqlx.Tx, rec domain.ListingRecord) error {
	for _, id := range rec.UserRefs() {
		if err := s.Users.EnsureStub(ctx, tx, id); err != nil {
			return fmt.Errorf("stub user %d: %w", id, err)
		}
	}
	if err := s.Listings.Upsert(ctx, tx, rec.Listing); err != nil {
		return fmt.Errorf("upsert listing: %w", err)
	}
	if err := s.Listings.ReplacePhotos(ctx, tx, rec.Listing.ID, rec.Photos); err != nil {
		return fmt.Errorf("replace photos: %w", err)
	}
	return nil
}

// IngestUser inserts or updates one user and extends its follow set with the
// followed listings that are already stored. Follows are never removed.
func (s *IngestService) IngestUser(ctx context.Context, raw []byte) (Outcome, error) {
	rec, err := normalize.User(raw)
	if err != nil {
		return s.rejected(EntityUsers, err)
	}

	var added int64
	var dropped int
	err = repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		exists, err := s.Users.ExistsTx(ctx, tx, rec.User.ID)
		if err != nil {
			return err
		}
		if exists {
			err = s.Users.Update(ctx, tx, rec.User)
		} else {
			err = s.Users.Insert(ctx, tx, rec.User)
		}
		if err != nil {
			return fmt.Errorf("write user: %w", err)
		}

		present, err := s.Listings.ExistingIDs(ctx, tx, rec.Following)
		if err != nil {
			return fmt.Errorf("resolve followed listings: %w", err)
		}
		dropped = len(rec.Following) - len(present)
		added, err = s.Users.AddFollows(ctx, tx, rec.User.ID, present)
		return err
	})
	if err != nil {
		s.Metrics.Document(EntityUsers, string(OutcomeFailed))
		return OutcomeFailed, &StoreError{Entity: EntityUsers, ID: rec.User.ID, Err: err}
	}
	if dropped > 0 {
		s.Log.Info("ingest.user.follows_unresolved", map[string]any{"user_id": rec.User.ID, "dropped": dropped})
	}
	s.Metrics.AddFollows(added)
	s.Metrics.Document(EntityUsers, string(OutcomeIngested))
	return OutcomeIngested, nil
}

func (s *IngestService) rejected(entity string, err error) (Outcome, error) {
	if errors.Is(err, normalize.ErrNoData) {
		s.Metrics.Document(entity, string(OutcomeNoData))
		return OutcomeNoData, nil
	}
	s.Metrics.Document(entity, string(OutcomeFailed))
	return OutcomeFailed, err
}
