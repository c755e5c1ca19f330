package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/jimmcbubbles/usertags/internal/errors"
	"github.com/jimmcbubbles/usertags/internal/ops"
	"github.com/jimmcbubbles/usertags/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "usertags",
		Usage:   "Tag users and filter them by tag expression",
		Version: Version,
		Commands: []*cli.Command{
			tagCmd(e),
			userCmd(e),
			searchCmd(e),
			exportCmd(e),
			importCmd(e),
			serveCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// tagCmd groups the tag subcommands.
func tagCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "tag",
		Usage: "Add, remove and manage tags",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Give a user one or more tags",
				ArgsUsage: "<user-id> <tag>...",
				Action: func(c *cli.Context) error {
					if c.NArg() < 2 {
						return outputError(errors.NewInvalidRequest("usage: tag add <user-id> <tag>..."))
					}
					userID := c.Args().First()
					var out *ops.UserTagsOutput
					for _, tag := range c.Args().Tail() {
						var err error
						out, err = ops.AddTag(c.Context, e.store, ops.AddTagInput{UserID: userID, Tag: tag})
						if err != nil {
							return outputError(err)
						}
					}
					return outputJSON(c.App.Writer, out)
				},
			},
			{
				Name:      "remove",
				Usage:     "Take a tag away from a user",
				ArgsUsage: "<user-id> <tag>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return outputError(errors.NewInvalidRequest("usage: tag remove <user-id> <tag>"))
					}
					out, err := ops.RemoveTag(c.Context, e.store, ops.RemoveTagInput{
						UserID: c.Args().Get(0),
						Tag:    c.Args().Get(1),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, out)
				},
			},
			{
				Name:      "move",
				Usage:     "Reorder one of a user's tags",
				ArgsUsage: "<user-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "from", Required: true, Usage: "Current position (0-based)"},
					&cli.IntFlag{Name: "to", Required: true, Usage: "New position (0-based)"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return outputError(errors.NewInvalidRequest("usage: tag move <user-id> --from N --to M"))
					}
					out, err := ops.MoveTag(c.Context, e.store, ops.MoveTagInput{
						UserID: c.Args().First(),
						From:   c.Int("from"),
						To:     c.Int("to"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, out)
				},
			},
			tagChangeCmd("rename", "Rename a tag for every user", "<tag> <new-tag>", 2,
				func(c *cli.Context) (*ops.TagChangeOutput, error) {
					return ops.RenameTag(c.Context, e.store, ops.RenameTagInput{
						Tag:    c.Args().Get(0),
						NewTag: c.Args().Get(1),
					})
				}),
			tagChangeCmd("delete", "Remove a tag from every user", "<tag>", 1,
				func(c *cli.Context) (*ops.TagChangeOutput, error) {
					return ops.DeleteTag(c.Context, e.store, ops.DeleteTagInput{Tag: c.Args().First()})
				}),
			tagChangeCmd("duplicate", "Give every holder of a tag a copy of it", "<tag>", 1,
				func(c *cli.Context) (*ops.TagChangeOutput, error) {
					return ops.DuplicateTag(c.Context, e.store, ops.DuplicateTagInput{Tag: c.Args().First()})
				}),
			tagChangeCmd("create", "Register a tag nobody holds yet", "<tag>", 1,
				func(c *cli.Context) (*ops.TagChangeOutput, error) {
					return ops.CreateTag(c.Context, e.store, ops.CreateTagInput{Tag: c.Args().First()})
				}),
			{
				Name:  "list",
				Usage: "List every known tag with its user count",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max results"},
					&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
				},
				Action: func(c *cli.Context) error {
					out, err := ops.ListTags(e.store, ops.ListTagsInput{
						Limit:  c.Int("limit"),
						Offset: c.Int("offset"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, out)
				},
			},
		},
	}
}

// tagChangeCmd builds a subcommand that applies one change to a tag across
// all users and expects exactly nargs positional arguments.
func tagChangeCmd(name, usage, argsUsage string, nargs int, run func(*cli.Context) (*ops.TagChangeOutput, error)) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: argsUsage,
		Action: func(c *cli.Context) error {
			if c.NArg() != nargs {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("usage: tag %s %s", name, argsUsage)))
			}
			out, err := run(c)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, out)
		},
	}
}

// userCmd groups the user subcommands.
func userCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Show and describe users",
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show a user's tags and profile",
				ArgsUsage: "<user-id>",
				Action: func(c *cli.Context) error {
					out, err := ops.FetchUser(e.store, e.dir, ops.FetchUserInput{UserID: c.Args().First()})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, out)
				},
			},
			{
				Name:      "profile",
				Usage:     "Show the stored profile for a user",
				ArgsUsage: "<user-id>",
				Action: func(c *cli.Context) error {
					out, err := ops.GetProfile(e.dir, ops.GetProfileInput{UserID: c.Args().First()})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, out)
				},
			},
			{
				Name:      "set",
				Usage:     "Record a user's names and groups",
				ArgsUsage: "<user-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Login name"},
					&cli.StringFlag{Name: "display-name", Aliases: []string{"d"}, Usage: "Display name"},
					&cli.StringFlag{Name: "groups", Aliases: []string{"g"}, Usage: "Comma-separated groups"},
				},
				Action: func(c *cli.Context) error {
					out, err := ops.SetProfile(c.Context, e.dir, ops.SetProfileInput{
						UserID:      c.Args().First(),
						Username:    c.String("username"),
						DisplayName: c.String("display-name"),
						Groups:      parseTags(c.String("groups")),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, out)
				},
			},
		},
	}
}

// searchCmd creates the search command.
func searchCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Filter users by tag expression, group, name or pattern",
		ArgsUsage: "[filter]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "previous", Aliases: []string{"p"}, Usage: "Last working filter, used when [filter] does not parse"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "Force a filter mode: none|group|name|empty|expression|regex"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultSearchLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Search(c.Context, e.store, e.dir, ops.SearchInput{
				Filter:   strings.Join(c.Args().Slice(), " "),
				Previous: c.String("previous"),
				Mode:     c.String("mode"),
				Limit:    c.Int("limit"),
				Offset:   c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, out)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export all tags to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "Output file path"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Export(c.Context, e.store, e.cfg, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, out)
		},
	}
}

// importCmd creates the import command.
func importCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import tags from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Required: true, Usage: "Input file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "merge", Usage: "Import mode: merge|replace"},
			&cli.BoolFlag{Name: "strict", Usage: "Abort on the first malformed line"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Import(c.Context, e.store, e.cfg, ops.ImportInput{
				Path:   c.String("path"),
				Mode:   ops.ImportMode(c.String("mode")),
				Strict: c.Bool("strict"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, out)
		},
	}
}

// serveCmd starts the web UI.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8484, Usage: "Port"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(web.Deps{
				Store:     e.store,
				Directory: e.dir,
				Logger:    e.log,
			}, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv, e.log)
		},
	}
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var tagErr *errors.TagError
	if errors.As(err, &tagErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", tagErr.Code, tagErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseTags splits a comma-separated string into a slice of names.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
