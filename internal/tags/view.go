package tags

// View is one consistent read of a Store: a document, the index derived
// from it and the revision they were saved under. It is a private copy and
// never changes after it is taken.
type View struct {
	Doc      *Document
	Index    Index
	Revision string

	sorter Sorter
}

// Records returns the view's records ordered by user id.
func (v *View) Records() []Record {
	out := make([]Record, 0, len(v.Doc.Records))
	for _, id := range v.Doc.UserIDs() {
		out = append(out, *v.Doc.Records[id].clone())
	}
	return out
}

// AllTags returns every held or registered tag, collated.
func (v *View) AllTags() []string {
	set := make(map[string]struct{}, len(v.Index)+v.Doc.Global.Len())
	for name := range v.Index {
		set[name] = struct{}{}
	}
	for _, n := range v.Doc.Global.Names() {
		set[n] = struct{}{}
	}

	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	v.sorter.Sort(names)
	return names
}

// Counts returns the number of holders of every known tag. Registered tags
// nobody holds count zero.
func (v *View) Counts() map[string]int {
	counts := make(map[string]int, len(v.Index))
	for name := range v.Index {
		counts[name] = v.Index.Count(name)
	}
	for _, n := range v.Doc.Global.Names() {
		if _, ok := counts[n]; !ok {
			counts[n] = 0
		}
	}
	return counts
}
