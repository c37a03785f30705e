package repo_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/repo"
	"github.com/pkordes/showing-tours/testutil"
)

// repos bundles every repo over one transaction, so a test can build a full
// user -> tour -> stop -> message hierarchy that is rolled back afterwards.
type repos struct {
	tx       pgx.Tx
	tours    repo.TourRepo
	stops    repo.StopRepo
	listings repo.ListingRepo
	messages repo.MessageRepo
	users    repo.UserRepo
}

func newTestRepos(t *testing.T) repos {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })

	return repos{
		tx:       tx,
		tours:    repo.NewTourRepo(tx),
		stops:    repo.NewStopRepo(tx),
		listings: repo.NewListingRepo(tx),
		messages: repo.NewMessageRepo(tx),
		users:    repo.NewUserRepo(tx),
	}
}

func mustUser(t *testing.T, r repos, name string) domain.Contact {
	t.Helper()
	c, err := r.users.Create(context.Background(), domain.Contact{
		Name:       name,
		Email:      name + "@example.com",
		PushTokens: []string{"tok-" + name},
	})
	require.NoError(t, err, "create user")
	return c
}

func mustTour(t *testing.T, r repos) domain.Tour {
	t.Helper()
	agent := mustUser(t, r, "agent")
	client := mustUser(t, r, "client")
	tour, err := r.tours.Create(context.Background(), domain.Tour{
		AgentID:  agent.UserID,
		ClientID: client.UserID,
		Name:     "Saturday tour",
	})
	require.NoError(t, err, "create tour")
	return tour
}

func mustListing(t *testing.T, r repos, address string) domain.Listing {
	t.Helper()
	la := mustUser(t, r, "listing")
	l, err := r.listings.Create(context.Background(), domain.Listing{
		ListingID:      "MLS-" + address,
		Address:        address,
		Location:       domain.Coordinate{Lat: 40.71, Lng: -74.0},
		ListingAgentID: &la.UserID,
	})
	require.NoError(t, err, "create listing")
	return l
}
