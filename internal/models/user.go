package models

import "golang.org/x/oauth2"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Session is the persisted login: both tokens plus the identity decoded at login.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Token exposes the session as an oauth2 bearer token.
func (s Session) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
	}
}

type Address struct {
	Street string `json:"street"`
	Number string `json:"number"`
	Block  string `json:"block"`
	City   string `json:"city"`
	State  string `json:"state"`
}

// Client is the customer record behind a storefront account.
type Client struct {
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	FirstName    string   `json:"firstName,omitempty"`
	LastName     string   `json:"lastName,omitempty"`
	Email        string   `json:"email"`
	Password     string   `json:"password,omitempty"`
	CPF          string   `json:"cpf,omitempty"`
	PhoneNumber  string   `json:"phoneNumber,omitempty"`
	ActiveStatus bool     `json:"activeStatus"`
	Address      *Address `json:"adress,omitempty"`
	CartID       string   `json:"cartId,omitempty"`
	CreatedAt    string   `json:"createdAt,omitempty"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
}

// DisplayName prefers Name, then "First Last".
func (c Client) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return c.LastName
	}
}
