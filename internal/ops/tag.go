package ops

import (
	"context"

	"github.com/jimmcbubbles/usertags/internal/tags"
)

// AddTagInput contains parameters for the AddTag operation.
type AddTagInput struct {
	UserID string `json:"user_id" validate:"notblank,max=64"`
	Tag    string `json:"tag" validate:"notblank,max=100"`
}

// RemoveTagInput contains parameters for the RemoveTag operation.
type RemoveTagInput struct {
	UserID string `json:"user_id" validate:"notblank,max=64"`
	Tag    string `json:"tag" validate:"notblank,max=100"`
}

// MoveTagInput contains parameters for the MoveTag operation.
type MoveTagInput struct {
	UserID string `json:"user_id" validate:"notblank,max=64"`
	From   int    `json:"from" validate:"gte=0"`
	To     int    `json:"to" validate:"gte=0"`
}

// UserTagsOutput is the state of one user's tags after a mutation.
type UserTagsOutput struct {
	UserID   string   `json:"user_id"`
	Tags     []string `json:"tags"`
	Changed  bool     `json:"changed"`
	Deleted  bool     `json:"deleted"`
	Revision string   `json:"revision"`
}

// AddTag gives a user a tag. A tag that sanitizes to nothing, or that the
// user already holds, leaves the store unchanged.
func AddTag(ctx context.Context, st *tags.Store, input AddTagInput) (*UserTagsOutput, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	userID, err := requireUserID(input.UserID)
	if err != nil {
		return nil, err
	}

	res, err := st.AddTag(ctx, userID, input.Tag)
	if err != nil {
		return nil, err
	}
	return userTagsOutput(st, userID, res), nil
}

// RemoveTag takes a tag from a user. The user's record is deleted when its
// last tag goes.
func RemoveTag(ctx context.Context, st *tags.Store, input RemoveTagInput) (*UserTagsOutput, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	userID, err := requireUserID(input.UserID)
	if err != nil {
		return nil, err
	}

	res, err := st.RemoveTag(ctx, userID, input.Tag)
	if err != nil {
		return nil, err
	}
	return userTagsOutput(st, userID, res), nil
}

// MoveTag reorders a user's tags, moving the tag at From to position To.
func MoveTag(ctx context.Context, st *tags.Store, input MoveTagInput) (*UserTagsOutput, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	userID, err := requireUserID(input.UserID)
	if err != nil {
		return nil, err
	}

	res, err := st.MoveTag(ctx, userID, input.From, input.To)
	if err != nil {
		return nil, err
	}
	return userTagsOutput(st, userID, res), nil
}

func userTagsOutput(st *tags.Store, userID string, res *tags.Result) *UserTagsOutput {
	rec, _ := st.Record(userID)
	out := &UserTagsOutput{
		UserID:   userID,
		Tags:     rec.Tags,
		Changed:  res.Changed,
		Revision: res.Revision,
	}
	for _, id := range res.Pruned {
		if id == userID {
			out.Deleted = true
		}
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

// RenameTagInput contains parameters for the RenameTag operation.
type RenameTagInput struct {
	Tag    string `json:"tag" validate:"notblank,max=100"`
	NewTag string `json:"new_tag" validate:"notblank,max=100"`
}

// DeleteTagInput contains parameters for the DeleteTag operation.
type DeleteTagInput struct {
	Tag string `json:"tag" validate:"notblank,max=100"`
}

// DuplicateTagInput contains parameters for the DuplicateTag operation.
type DuplicateTagInput struct {
	Tag string `json:"tag" validate:"notblank,max=100"`
}

// CreateTagInput contains parameters for the CreateTag operation.
type CreateTagInput struct {
	Tag string `json:"tag" validate:"notblank,max=100"`
}

// TagChangeOutput reports a change applied to a tag across all users.
type TagChangeOutput struct {
	Tag      string   `json:"tag"`
	NewTag   string   `json:"new_tag,omitempty"`
	Changed  bool     `json:"changed"`
	Touched  int      `json:"touched"`
	Pruned   []string `json:"pruned"`
	Revision string   `json:"revision"`
}

func tagChangeOutput(tag, newTag string, res *tags.Result) *TagChangeOutput {
	out := &TagChangeOutput{
		Tag:      tag,
		NewTag:   newTag,
		Changed:  res.Changed,
		Touched:  res.Touched,
		Pruned:   res.Pruned,
		Revision: res.Revision,
	}
	if out.Pruned == nil {
		out.Pruned = []string{}
	}
	return out
}

// RenameTag relabels a tag on every user and in the registry. Users that
// already hold the new name just lose the old one.
func RenameTag(ctx context.Context, st *tags.Store, input RenameTagInput) (*TagChangeOutput, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	res, err := st.RenameTag(ctx, input.Tag, input.NewTag)
	if err != nil {
		return nil, err
	}
	return tagChangeOutput(tags.Sanitize(input.Tag), tags.Sanitize(input.NewTag), res), nil
}

// DeleteTag removes a tag from every user and the registry. Users left with
// no tags are deleted.
func DeleteTag(ctx context.Context, st *tags.Store, input DeleteTagInput) (*TagChangeOutput, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	res, err := st.DeleteTag(ctx, input.Tag)
	if err != nil {
		return nil, err
	}
	return tagChangeOutput(tags.Sanitize(input.Tag), "", res), nil
}

// DuplicateTag copies a tag to a fresh name (tag_copy, tag_copy_2, ...) on
// every user holding it.
func DuplicateTag(ctx context.Context, st *tags.Store, input DuplicateTagInput) (*TagChangeOutput, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	newTag, res, err := st.DuplicateTag(ctx, input.Tag)
	if err != nil {
		return nil, err
	}
	return tagChangeOutput(tags.Sanitize(input.Tag), newTag, res), nil
}

// CreateTag registers a tag so it is listed before anyone holds it.
func CreateTag(ctx context.Context, st *tags.Store, input CreateTagInput) (*TagChangeOutput, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	res, err := st.AddGlobalTag(ctx, input.Tag)
	if err != nil {
		return nil, err
	}
	return tagChangeOutput(tags.Sanitize(input.Tag), "", res), nil
}
