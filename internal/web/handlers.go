package web

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/jimmcbubbles/usertags/internal/errors"
	"github.com/jimmcbubbles/usertags/internal/filter"
	"github.com/jimmcbubbles/usertags/internal/identity"
	"github.com/jimmcbubbles/usertags/internal/ops"
	"github.com/jimmcbubbles/usertags/internal/tags"
)

// filterModes is the mode picker shown above the user grid.
var filterModes = []string{
	"auto",
	string(filter.ModeNone),
	string(filter.ModeGroup),
	string(filter.ModeName),
	string(filter.ModeEmpty),
	string(filter.ModeExpression),
	string(filter.ModeRegex),
}

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	store    *tags.Store
	dir      *identity.Directory
	log      *slog.Logger
	renderer *Renderer
}

func (h *Handlers) roster() identity.Roster {
	if h.dir == nil {
		return nil
	}
	return h.dir
}

// HandleUsers handles GET /users: the filtered user grid.
func (h *Handlers) HandleUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := UsersPageData{
		PageData: h.renderer.page("Users", "users"),
		Filter:   q.Get("filter"),
		Previous: q.Get("previous"),
		Mode:     q.Get("mode"),
		Modes:    filterModes,
		Return:   r.URL.RequestURI(),
	}

	out, err := ops.Search(r.Context(), h.store, h.roster(), ops.SearchInput{
		Filter:   data.Filter,
		Previous: data.Previous,
		Mode:     data.Mode,
		Limit:    parseIntParam(r, "limit", ops.DefaultSearchLimit),
		Offset:   parseIntParam(r, "offset", 0),
	})
	switch {
	case errors.Is(err, errors.ErrInvalidFilter) && !wantsJSON(r):
		var tagErr *errors.TagError
		errors.As(err, &tagErr)
		data.Error = tagErr.Message
		h.renderUsers(w, r, http.StatusUnprocessableEntity, data)
		return
	case err != nil:
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}

	data.Result = out
	data.Previous = out.Applied
	data.Error = out.Error
	h.renderUsers(w, r, http.StatusOK, data)
}

func (h *Handlers) renderUsers(w http.ResponseWriter, r *http.Request, status int, data UsersPageData) {
	// If htmx targets #results, render only the grid
	if r.Header.Get("HX-Target") == "results" {
		h.renderer.renderBlock(w, status, "users", "users-results", data)
		return
	}
	h.renderer.renderPageStatus(w, r, status, "users", data)
}

// HandleAddTag handles POST /users/{id}/tags: give a user a tag.
func (h *Handlers) HandleAddTag(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	out, err := ops.AddTag(r.Context(), h.store, ops.AddTagInput{
		UserID: r.PathValue("id"),
		Tag:    r.FormValue("tag"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.log.Info("tag added", "user_id", out.UserID, "tag", r.FormValue("tag"), "changed", out.Changed)
	h.done(w, r, "/users", out)
}

// HandleRemoveTag handles POST /users/{id}/tags/{tag}/delete: take a tag
// away from one user.
func (h *Handlers) HandleRemoveTag(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	out, err := ops.RemoveTag(r.Context(), h.store, ops.RemoveTagInput{
		UserID: r.PathValue("id"),
		Tag:    r.PathValue("tag"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.log.Info("tag removed", "user_id", out.UserID, "tag", r.PathValue("tag"), "deleted", out.Deleted)
	h.done(w, r, "/users", out)
}

// HandleMoveTag handles POST /users/{id}/tags/{tag}/move: move one of a
// user's tags to the position given by the "to" form field.
func (h *Handlers) HandleMoveTag(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	to, err := strconv.Atoi(r.FormValue("to"))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("to must be an integer"))
		return
	}

	userID := r.PathValue("id")
	rec, ok := h.store.Record(userID)
	if !ok {
		h.renderer.renderError(w, r, errors.NewNotFound(userID))
		return
	}
	from := slices.Index(rec.Tags, r.PathValue("tag"))
	if from < 0 {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("user does not have tag "+r.PathValue("tag")))
		return
	}

	out, err := ops.MoveTag(r.Context(), h.store, ops.MoveTagInput{UserID: userID, From: from, To: to})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.done(w, r, "/users", out)
}

// HandleTags handles GET /tags: every known tag with its user count.
func (h *Handlers) HandleTags(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ListTags(h.store, ops.ListTagsInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}

	h.renderer.renderPage(w, r, "tags", TagsPageData{
		PageData:   h.renderer.page("Tags", "tags"),
		Items:      out.Items,
		Pagination: out.Pagination,
		Sort:       out.Sort,
	})
}

// HandleCreateTag handles POST /tags: register a tag nobody holds yet.
func (h *Handlers) HandleCreateTag(w http.ResponseWriter, r *http.Request) {
	h.tagChange(w, r, "tag created", func() (*ops.TagChangeOutput, error) {
		return ops.CreateTag(r.Context(), h.store, ops.CreateTagInput{Tag: r.FormValue("tag")})
	})
}

// HandleRenameTag handles POST /tags/{tag}/rename.
func (h *Handlers) HandleRenameTag(w http.ResponseWriter, r *http.Request) {
	h.tagChange(w, r, "tag renamed", func() (*ops.TagChangeOutput, error) {
		return ops.RenameTag(r.Context(), h.store, ops.RenameTagInput{
			Tag:    r.PathValue("tag"),
			NewTag: r.FormValue("new_tag"),
		})
	})
}

// HandleDuplicateTag handles POST /tags/{tag}/duplicate.
func (h *Handlers) HandleDuplicateTag(w http.ResponseWriter, r *http.Request) {
	h.tagChange(w, r, "tag duplicated", func() (*ops.TagChangeOutput, error) {
		return ops.DuplicateTag(r.Context(), h.store, ops.DuplicateTagInput{Tag: r.PathValue("tag")})
	})
}

// HandleDeleteTag handles POST /tags/{tag}/delete: remove a tag from
// everyone.
func (h *Handlers) HandleDeleteTag(w http.ResponseWriter, r *http.Request) {
	h.tagChange(w, r, "tag deleted", func() (*ops.TagChangeOutput, error) {
		return ops.DeleteTag(r.Context(), h.store, ops.DeleteTagInput{Tag: r.PathValue("tag")})
	})
}

func (h *Handlers) tagChange(w http.ResponseWriter, r *http.Request, msg string, run func() (*ops.TagChangeOutput, error)) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	out, err := run()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.log.Info(msg, "tag", out.Tag, "new_tag", out.NewTag, "touched", out.Touched, "changed", out.Changed)
	h.done(w, r, "/tags", out)
}

// HandleHelp handles GET /help: filter syntax reference.
func (h *Handlers) HandleHelp(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "help", HelpPageData{
		PageData: h.renderer.page("Help", "help"),
		Body:     h.renderer.help,
	})
}

// done finishes a mutation: JSON clients get the result, htmx clients an
// HX-Redirect, browsers a redirect back to the page they came from.
func (h *Handlers) done(w http.ResponseWriter, r *http.Request, fallback string, result any) {
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	target := returnPath(r.FormValue("return"), fallback)
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// returnPath accepts only local UI paths as redirect targets.
func returnPath(raw, fallback string) string {
	if raw == "" || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	if u.Path != "/users" && u.Path != "/tags" {
		return fallback
	}
	return u.RequestURI()
}

// parseIntParam parses a non-negative integer query parameter with a
// default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
