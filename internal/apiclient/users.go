package apiclient

import (
	"context"
	"fmt"

	"github.com/yourorg/wealthtracker/internal/domain"
)

func (c *Client) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	if err := c.Get(ctx, fmt.Sprintf("/User/%d", id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser replaces the user record. The backend answers 204, so the
// submitted user is returned on success.
func (c *Client) UpdateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	if err := c.Put(ctx, fmt.Sprintf("/User/%d", u.ID), u, nil); err != nil {
		return nil, err
	}
	return &u, nil
}
