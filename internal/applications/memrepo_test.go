package applications

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// memRepo is an in-memory Repository for service tests.
type memRepo struct {
	mu     sync.Mutex
	apps   map[string]Application
	events []Event

	failEvents bool
}

func newMemRepo() *memRepo {
	return &memRepo{apps: make(map[string]Application)}
}

func (r *memRepo) InsertApplication(_ context.Context, app *Application) (*Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[app.ID] = *app
	cp := *app
	return &cp, nil
}

func (r *memRepo) GetApplication(_ context.Context, userID, id string) (*Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok || app.UserID != userID {
		return nil, ErrNotFound
	}
	return &app, nil
}

func (r *memRepo) ListApplications(_ context.Context, userID string, filter ListFilter) ([]Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Application
	for _, app := range r.apps {
		if app.UserID != userID {
			continue
		}
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memRepo) UpdateApplication(_ context.Context, app *Application) (*Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.apps[app.ID]; !ok {
		return nil, ErrNotFound
	}
	r.apps[app.ID] = *app
	cp := *app
	return &cp, nil
}

func (r *memRepo) DeleteApplication(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok || app.UserID != userID {
		return ErrNotFound
	}
	delete(r.apps, id)
	return nil
}

func (r *memRepo) FindByContentHash(_ context.Context, userID, hash string) (*Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, app := range r.apps {
		if app.UserID == userID && app.ContentHash == hash {
			return &app, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) InsertEvent(_ context.Context, ev *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failEvents {
		return errors.New("events table unavailable")
	}
	r.events = append(r.events, *ev)
	return nil
}

func (r *memRepo) ListEvents(_ context.Context, userID, applicationID string, limit int) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for i := len(r.events) - 1; i >= 0; i-- {
		ev := r.events[i]
		if ev.UserID == userID && ev.ApplicationID == applicationID {
			out = append(out, ev)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
