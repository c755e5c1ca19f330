package ops

import (
	"github.com/jimmcbubbles/usertags/internal/tags"
)

// ListTagsInput contains parameters for the ListTags operation.
type ListTagsInput struct {
	Limit  int `json:"limit,omitempty" validate:"gte=0"`
	Offset int `json:"offset,omitempty" validate:"gte=0"`
}

// TagSummary is one known tag.
type TagSummary struct {
	Name       string `json:"name"`
	Count      int    `json:"count"`
	Registered bool   `json:"registered"`
}

// ListTagsOutput contains the result of the ListTags operation.
type ListTagsOutput struct {
	Items      []TagSummary `json:"items"`
	Pagination Pagination   `json:"pagination"`
	Sort       string       `json:"sort"`
	Revision   string       `json:"revision"`
}

// ListTags returns every known tag, held or registered, in collated order
// with the number of users holding each.
func ListTags(st *tags.Store, input ListTagsInput) (*ListTagsOutput, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	view := st.View()
	names := view.AllTags()
	counts := view.Counts()
	registry := view.Doc.Global

	start, end, p := page(input.Limit, input.Offset, len(names), DefaultListLimit, MaxListLimit)
	items := make([]TagSummary, 0, end-start)
	for _, n := range names[start:end] {
		items = append(items, TagSummary{
			Name:       n,
			Count:      counts[n],
			Registered: registry.Has(n),
		})
	}

	return &ListTagsOutput{
		Items:      items,
		Pagination: p,
		Sort:       "collated:" + st.Sorter().Locale(),
		Revision:   view.Revision,
	}, nil
}
