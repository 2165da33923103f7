// Package placeholder is a typed client for a JSONPlaceholder-style users
// API, built as a thin instance of apiclient.Client.
package placeholder

import (
	"context"
	"net/http"
	"strconv"

	"github.com/samvad-hq/endpointkit/pkg/apiclient"
	"github.com/samvad-hq/endpointkit/pkg/endpoint"
)

// DefaultBaseURL is the public JSONPlaceholder service.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

// Target is the closed set of operations this service exposes.
type Target interface {
	endpoint.Target
	placeholderTarget()
}

// User is the users resource.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// ListUsers is GET /users.
type ListUsers struct {
	Page int
}

func (ListUsers) placeholderTarget() {}

// Descriptor implements endpoint.Target. A zero Page omits the _page query.
func (t ListUsers) Descriptor() endpoint.Descriptor {
	d := endpoint.Descriptor{Name: "list_users", Method: http.MethodGet, Path: "/users"}
	if t.Page > 0 {
		d = d.WithQuery("_page", strconv.Itoa(t.Page))
	}
	return d
}

// GetUser is GET /users/{id}.
type GetUser struct {
	ID int
}

func (GetUser) placeholderTarget() {}

// Descriptor implements endpoint.Target.
func (t GetUser) Descriptor() endpoint.Descriptor {
	return endpoint.Descriptor{
		Name:       "get_user",
		Method:     http.MethodGet,
		Path:       "/users/{id}",
		PathParams: map[string]string{"id": strconv.Itoa(t.ID)},
	}
}

// CreateUser is POST /users with a JSON body.
type CreateUser struct {
	User User
}

func (CreateUser) placeholderTarget() {}

// Descriptor implements endpoint.Target. The user is sent as JSON.
func (t CreateUser) Descriptor() endpoint.Descriptor {
	return endpoint.Descriptor{
		Name:     "create_user",
		Method:   http.MethodPost,
		Path:     "/users",
		Body:     t.User,
		Encoding: endpoint.EncodingJSON,
	}
}

// Client talks to one users service.
type Client struct {
	api *apiclient.Client[Target]
}

// New creates a client for baseURL; an empty baseURL uses DefaultBaseURL.
func New(baseURL string, opts ...apiclient.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	all := append([]apiclient.Option{apiclient.WithBaseURL(baseURL)}, opts...)
	return &Client{api: apiclient.New[Target](all...)}
}

// API exposes the underlying generic client for ad-hoc targets.
func (c *Client) API() *apiclient.Client[Target] { return c.api }

// ListUsers fetches one page of users; page 0 asks for the default listing.
func (c *Client) ListUsers(ctx context.Context, page int) ([]User, error) {
	return apiclient.FetchMany[User](ctx, c.api, Target(ListUsers{Page: page}), "")
}

// GetUser fetches a single user by id.
func (c *Client) GetUser(ctx context.Context, id int) (User, error) {
	return apiclient.FetchOne[User](ctx, c.api, Target(GetUser{ID: id}), "")
}

// CreateUser posts u and returns the stored user, including its assigned id.
func (c *Client) CreateUser(ctx context.Context, u User) (User, error) {
	return apiclient.FetchOne[User](ctx, c.api, Target(CreateUser{User: u}), "")
}

// ListUsersAsync is the non-blocking form of ListUsers.
func (c *Client) ListUsersAsync(ctx context.Context, page int) *apiclient.Future[[]User] {
	return apiclient.RequestMany[User](ctx, c.api, Target(ListUsers{Page: page}), "")
}
