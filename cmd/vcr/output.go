package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JossMR/VersionsControlRepository/internal/errors"
	"github.com/JossMR/VersionsControlRepository/internal/repo"
)

// Exit codes by error kind.
const (
	exitGeneric          = 1
	exitInvalidArgument  = 2
	exitUnauthenticated  = 3
	exitPermissionDenied = 4
	exitNotFound         = 5
)

func exitCode(err error) int {
	switch errors.KindOf(err) {
	case errors.InvalidArgument:
		return exitInvalidArgument
	case errors.Unauthenticated:
		return exitUnauthenticated
	case errors.PermissionDenied:
		return exitPermissionDenied
	case errors.NotFound:
		return exitNotFound
	}
	return exitGeneric
}

// areaFor maps the area flags of ls and cat to an area and owner.
// At most one of published, mirror and remote may be set.
func areaFor(published bool, mirror, remote string) (repo.AreaKind, string, error) {
	set := 0
	if published {
		set++
	}
	if mirror != "" {
		set++
	}
	if remote != "" {
		set++
	}
	if set > 1 {
		return 0, "", errors.E(errors.InvalidArgument, errors.Str("use only one of --published, --mirror and --remote"))
	}

	switch {
	case published:
		return repo.AreaPublished, "", nil
	case mirror != "":
		return repo.AreaMirror, mirror, nil
	case remote != "":
		return repo.AreaPublished, remote, nil
	}
	return repo.AreaStaging, "", nil
}

// wantJSON reports whether --json was given.
func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printFiles(w io.Writer, entries []repo.FileEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No files.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, humanize.Bytes(uint64(e.Size)), humanize.Time(e.ModTime))
	}
	return tw.Flush()
}

func printPermissions(w io.Writer, perms []*repo.Permission, byOwner bool) error {
	if len(perms) == 0 {
		fmt.Fprintln(w, "No permissions.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range perms {
		who := p.Grantee
		if byOwner {
			who = p.Owner
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", who, p.Kind, humanize.Time(p.GrantedAt))
	}
	return tw.Flush()
}

func printSnapshots(w io.Writer, snaps []*repo.Snapshot) error {
	if len(snaps) == 0 {
		fmt.Fprintln(w, "No versions.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, s := range snaps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d file(s)\n",
			i+1,
			s.VersionID,
			s.Timestamp.Local().Format("2006-01-02 15:04:05"),
			s.User,
			s.SourceTag,
			s.FileCount,
		)
	}
	return tw.Flush()
}

func printSyncResult(w io.Writer, verb string, res *repo.SyncResult) {
	fmt.Fprintf(w, "%s: %d copied, %d deleted\n", verb, res.Copied, res.Deleted)
	if res.Snapshot != nil {
		fmt.Fprintf(w, "Previous contents saved as version %s\n", res.Snapshot.VersionID)
	}
}

// readPassword prompts on the terminal without echo. When stdin is not a
// terminal the password is read from its first line.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readContent returns file content from --content, --from or stdin ("--from -").
// ok is false when neither flag was given.
func readContent(cmd *cobra.Command) (data []byte, ok bool, err error) {
	content, _ := cmd.Flags().GetString("content")
	from, _ := cmd.Flags().GetString("from")

	switch {
	case cmd.Flags().Changed("content") && from != "":
		return nil, false, errors.E(errors.InvalidArgument, errors.Str("use only one of --content and --from"))
	case cmd.Flags().Changed("content"):
		return []byte(content), true, nil
	case from == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, false, fmt.Errorf("reading stdin: %w", err)
		}
		return data, true, nil
	case from != "":
		data, err := os.ReadFile(from)
		if err != nil {
			return nil, false, fmt.Errorf("reading %s: %w", from, err)
		}
		return data, true, nil
	}
	return nil, false, nil
}
