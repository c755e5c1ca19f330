package ops

import (
	"github.com/jimmcbubbles/usertags/internal/identity"
	"github.com/jimmcbubbles/usertags/internal/tags"
)

// FetchUserInput contains parameters for the FetchUser operation.
type FetchUserInput struct {
	UserID string `json:"user_id" validate:"notblank,max=64"`
}

// UserOutput is everything usertags knows about one user.
type UserOutput struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username,omitempty"`
	DisplayName string   `json:"display_name"`
	Tags        []string `json:"tags"`
	Groups      []string `json:"groups"`
	Tagged      bool     `json:"tagged"`
	Known       bool     `json:"known"`
}

// FetchUser returns a user's tags and profile. Users with no tags and no
// profile are still returned, with Tagged and Known false.
func FetchUser(st *tags.Store, roster identity.Lookup, input FetchUserInput) (*UserOutput, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	userID, err := requireUserID(input.UserID)
	if err != nil {
		return nil, err
	}
	if roster == nil {
		roster = identity.None
	}

	rec, tagged := st.Record(userID)
	p, known := roster.GetUser(userID)
	return userOutput(userID, rec, tagged, p, known), nil
}

func userOutput(userID string, rec tags.Record, tagged bool, p identity.Profile, known bool) *UserOutput {
	cached := rec.UsernameOr("")
	username := cached
	if username == "" {
		username = p.Username
	}

	out := &UserOutput{
		UserID:      userID,
		Username:    username,
		DisplayName: identity.DisplayName(p, cached, userID),
		Tags:        rec.Tags,
		Groups:      p.Groups,
		Tagged:      tagged,
		Known:       known,
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if out.Groups == nil {
		out.Groups = []string{}
	}
	return out
}
