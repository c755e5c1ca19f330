package ops

import (
	"context"
	stderrors "errors"

	"github.com/jimmcbubbles/usertags/internal/errors"
	"github.com/jimmcbubbles/usertags/internal/filter"
	"github.com/jimmcbubbles/usertags/internal/identity"
	"github.com/jimmcbubbles/usertags/internal/tags"
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Filter string `json:"filter" validate:"max=512"`
	// Previous is the last filter that worked. It is applied instead when
	// Filter is not a valid tag expression.
	Previous string `json:"previous,omitempty" validate:"max=512"`
	Mode     string `json:"mode,omitempty" validate:"omitempty,oneof=auto none group name empty expression regex"`
	Limit    int    `json:"limit,omitempty" validate:"gte=0"`
	Offset   int    `json:"offset,omitempty" validate:"gte=0"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items []UserOutput `json:"items"`
	// Columns ranks every known tag by how many users on the returned page
	// hold it.
	Columns    []tags.TagCount `json:"columns"`
	Mode       filter.Mode     `json:"mode"`
	Applied    string          `json:"applied"`
	Error      string          `json:"error,omitempty"`
	Invalid    bool            `json:"invalid,omitempty"`
	Pagination Pagination      `json:"pagination"`
	Revision   string          `json:"revision"`
}

// Search filters every user usertags knows about, tagged users plus the
// roster's profiles, and returns the matching page in display order.
//
// A Filter that fails to parse falls back to Previous, with the parse error
// reported in Error. With no usable Previous it fails with INVALID_FILTER.
// An invalid regex sets Invalid and matches everyone.
func Search(ctx context.Context, st *tags.Store, roster identity.Roster, input SearchInput) (*SearchOutput, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	mode, forced, err := filter.ParseMode(input.Mode)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	compile := func(text string) (*filter.Filter, error) {
		if forced {
			return filter.CompileMode(text, mode)
		}
		return filter.Compile(text)
	}

	out := &SearchOutput{Applied: input.Filter}
	f, err := compile(input.Filter)
	var parseErr *filter.ParseError
	var regexErr *filter.RegexError
	switch {
	case stderrors.As(err, &parseErr):
		out.Error = parseErr.Msg
		if input.Previous == "" {
			return nil, errors.NewInvalidFilter(string(filter.ModeExpression), parseErr.Msg)
		}
		f, err = compile(input.Previous)
		if stderrors.As(err, &parseErr) {
			return nil, errors.NewInvalidFilter(string(filter.ModeExpression), parseErr.Msg)
		}
		out.Applied = input.Previous
		if stderrors.As(err, &regexErr) {
			out.Invalid = true
		} else if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
	case stderrors.As(err, &regexErr):
		out.Error = regexErr.Error()
		out.Invalid = true
	case err != nil:
		return nil, errors.NewInvalidRequest(err.Error())
	}
	out.Mode = f.Mode

	view := st.View()
	users := universe(view, roster)
	matched := make([]UserOutput, 0, len(users))
	for i, u := range users {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.NewCancelled("search")
			}
		}
		subject := filter.Subject{
			UserID:      u.out.UserID,
			Username:    u.out.Username,
			DisplayName: u.profile.DisplayName,
			Tags:        u.out.Tags,
			Groups:      u.out.Groups,
		}
		if f.Match(subject) {
			matched = append(matched, *u.out)
		}
	}

	tags.SortBy(st.Sorter(), matched, func(u UserOutput) string { return u.DisplayName })

	start, end, p := page(input.Limit, input.Offset, len(matched), DefaultSearchLimit, MaxSearchLimit)
	out.Items = matched[start:end]
	visible := make([][]string, 0, len(out.Items))
	for _, u := range out.Items {
		visible = append(visible, u.Tags)
	}
	out.Columns = st.Sorter().ColumnOrder(view.AllTags(), visible)
	out.Pagination = p
	out.Revision = view.Revision
	return out, nil
}

type searchUser struct {
	out     *UserOutput
	profile identity.Profile
}

// universe lists tagged users followed by untagged roster profiles.
func universe(view *tags.View, roster identity.Roster) []searchUser {
	var lookup identity.Lookup = identity.None
	var profiles []identity.Profile
	if roster != nil {
		lookup = identity.NewMemo(roster)
		profiles = roster.All()
	}

	seen := make(map[string]bool)
	var users []searchUser
	for _, rec := range view.Records() {
		p, known := lookup.GetUser(rec.UserID)
		users = append(users, searchUser{out: userOutput(rec.UserID, rec, true, p, known), profile: p})
		seen[rec.UserID] = true
	}
	for _, p := range profiles {
		if seen[p.UserID] {
			continue
		}
		rec := tags.Record{UserID: p.UserID}
		users = append(users, searchUser{out: userOutput(p.UserID, rec, false, p, true), profile: p})
	}
	return users
}
