package services

import (
	"context"
	"fmt"

	"watchstore/internal/apiclient"
	"watchstore/internal/apperr"
	"watchstore/internal/config"
	"watchstore/internal/models"
)

// Identity is the logged-in user; the token store satisfies it.
type Identity interface {
	User(ctx context.Context) (*models.User, bool)
}

// Profile reads and edits the logged-in client's own record.
type Profile struct {
	api   *apiclient.Client
	ident Identity
}

func NewProfile(api *apiclient.Client, ident Identity) *Profile {
	return &Profile{api: api, ident: ident}
}

func (s *Profile) userID(ctx context.Context) (string, error) {
	u, ok := s.ident.User(ctx)
	if !ok || u.ID == "" {
		return "", fmt.Errorf("services: profile: %w", apperr.ErrSessionExpired)
	}
	return u.ID, nil
}

func (s *Profile) Current(ctx context.Context) (models.Client, error) {
	id, err := s.userID(ctx)
	if err != nil {
		return models.Client{}, err
	}
	var out models.Client
	if err := s.api.Call(ctx, config.RouteClientGet, byID(id), nil, &out); err != nil {
		return models.Client{}, fmt.Errorf("services: get profile: %w", err)
	}
	return out, nil
}

// ProfileUpdate holds the editable fields; nil means unchanged.
type ProfileUpdate struct {
	Name        *string         `json:"name,omitempty"`
	FirstName   *string         `json:"firstName,omitempty"`
	LastName    *string         `json:"lastName,omitempty"`
	PhoneNumber *string         `json:"phoneNumber,omitempty"`
	Address     *models.Address `json:"adress,omitempty"`
}

func (s *Profile) Update(ctx context.Context, upd ProfileUpdate) (models.Client, error) {
	id, err := s.userID(ctx)
	if err != nil {
		return models.Client{}, err
	}
	var out models.Client
	if err := s.api.Call(ctx, config.RouteClientUpdate, byID(id), upd, &out); err != nil {
		return models.Client{}, fmt.Errorf("services: update profile: %w", err)
	}
	return out, nil
}

// Clients is the admin view over every account.
type Clients struct {
	api *apiclient.Client
}

func NewClients(api *apiclient.Client) *Clients { return &Clients{api: api} }

func (s *Clients) List(ctx context.Context) ([]models.Client, error) {
	var out []models.Client
	if err := s.api.Call(ctx, config.RouteClientList, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("services: list clients: %w", err)
	}
	return out, nil
}

func (s *Clients) Get(ctx context.Context, id string) (models.Client, error) {
	var out models.Client
	if err := s.api.Call(ctx, config.RouteClientGet, byID(id), nil, &out); err != nil {
		return models.Client{}, fmt.Errorf("services: get client %s: %w", id, err)
	}
	return out, nil
}
