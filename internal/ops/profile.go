package ops

import (
	"context"
	"fmt"

	"github.com/jimmcbubbles/usertags/internal/errors"
	"github.com/jimmcbubbles/usertags/internal/identity"
)

// SetProfileInput contains parameters for the SetProfile operation.
type SetProfileInput struct {
	UserID      string   `json:"user_id" validate:"notblank,max=64"`
	Username    string   `json:"username,omitempty" validate:"max=100"`
	DisplayName string   `json:"display_name,omitempty" validate:"max=100"`
	Groups      []string `json:"groups,omitempty" validate:"max=200,dive,max=100"`
}

// SetProfileOutput contains the stored profile.
type SetProfileOutput struct {
	Profile identity.Profile `json:"profile"`
}

// SetProfile records what the host knows about a user: names used for
// display and name filters, and mutual groups used by group filters.
func SetProfile(ctx context.Context, dir *identity.Directory, input SetProfileInput) (*SetProfileOutput, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	userID, err := requireUserID(input.UserID)
	if err != nil {
		return nil, err
	}

	p := identity.Profile{
		UserID:      userID,
		Username:    input.Username,
		DisplayName: input.DisplayName,
		Groups:      input.Groups,
	}
	if err := dir.Put(ctx, p); err != nil {
		return nil, errors.NewSaveFailed(fmt.Errorf("profile: %w", err))
	}

	stored, _ := dir.GetUser(userID)
	return &SetProfileOutput{Profile: stored}, nil
}

// GetProfileInput contains parameters for the GetProfile operation.
type GetProfileInput struct {
	UserID string `json:"user_id" validate:"notblank,max=64"`
}

// GetProfile returns the stored profile for a user.
func GetProfile(dir *identity.Directory, input GetProfileInput) (*identity.Profile, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	userID, err := requireUserID(input.UserID)
	if err != nil {
		return nil, err
	}

	p, ok := dir.GetUser(userID)
	if !ok {
		return nil, errors.NewNotFound(userID)
	}
	return &p, nil
}
