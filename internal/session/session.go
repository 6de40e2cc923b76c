// Package session restores and refreshes the backend session, and resolves
// which restaurant the signed-in user operates under (spec.md 4.2).
package session

import (
	"context"
	"errors"
	"sort"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/backend"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
)

// ErrSessionAbsent means there is no snapshot to restore from.
var ErrSessionAbsent = errors.New("SESSION_ABSENT")

// ErrSessionInvalid means the backend rejected a restore attempt.
var ErrSessionInvalid = errors.New("SESSION_INVALID")

// CurrentUserFunc reports the backend's view of the currently signed-in
// user, if any. RestoreFunc attempts to exchange a snapshot for a fresh one.
type CurrentUserFunc func(ctx context.Context) (*model.User, error)
type RestoreFunc func(ctx context.Context, snapshot model.SessionSnapshot) (model.SessionSnapshot, *model.User, error)

// PersistFunc is called with refreshed tokens that differ from what was
// loaded, so the caller can write them back to disk.
type PersistFunc func(model.SessionSnapshot) error

// Manager implements the session contract of spec.md 4.2.
type Manager struct {
	client       *backend.Client
	currentUser  CurrentUserFunc
	restore      RestoreFunc
	persist      PersistFunc
	loadSession  func() model.SessionSnapshot
}

// New returns a Manager. loadSession supplies the last-persisted snapshot.
func New(client *backend.Client, currentUser CurrentUserFunc, restore RestoreFunc, persist PersistFunc, loadSession func() model.SessionSnapshot) *Manager {
	return &Manager{
		client:      client,
		currentUser: currentUser,
		restore:     restore,
		persist:     persist,
		loadSession: loadSession,
	}
}

// EnsureSignedIn adopts the backend's current user if it reports one;
// otherwise it attempts to restore from the last persisted snapshot.
func (m *Manager) EnsureSignedIn(ctx context.Context) (*model.User, error) {
	if user, err := m.currentUser(ctx); err == nil && user != nil {
		return user, nil
	}

	snapshot := m.loadSession()
	if snapshot.Empty() {
		return nil, ErrSessionAbsent
	}

	refreshed, user, err := m.restore(ctx, snapshot)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	if !model.SameSession(snapshot, refreshed) {
		if m.persist != nil {
			if err := m.persist(refreshed); err != nil {
				return nil, err
			}
		}
	}
	return user, nil
}

// ResolveRestaurantForCurrentUser implements the ranking contract of
// spec.md 4.2: owned restaurants win (most recent first); otherwise the
// highest-privilege role membership wins, ties broken by earliest
// assignment. Returns nil, nil when no scope exists.
func (m *Manager) ResolveRestaurantForCurrentUser(ctx context.Context, userID string) (*model.RestaurantScope, error) {
	owned, err := m.client.FetchOwnedRestaurants(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(owned) > 0 {
		r := owned[0]
		return &model.RestaurantScope{ID: r.ID, Name: r.Name, City: r.City, Role: model.RoleOwner}, nil
	}

	roles, err := m.client.FetchUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, nil
	}

	sort.SliceStable(roles, func(i, j int) bool {
		ri, rj := model.RoleRank(model.Role(roles[i].Role)), model.RoleRank(model.Role(roles[j].Role))
		if ri != rj {
			return ri < rj
		}
		return roles[i].CreatedAt < roles[j].CreatedAt
	})

	chosen := roles[0]
	restaurant, err := m.client.FetchRestaurant(ctx, chosen.RestaurantID)
	if err != nil {
		return nil, err
	}
	if restaurant == nil {
		return nil, nil
	}
	return &model.RestaurantScope{
		ID:   restaurant.ID,
		Name: restaurant.Name,
		City: restaurant.City,
		Role: model.Role(chosen.Role),
	}, nil
}
