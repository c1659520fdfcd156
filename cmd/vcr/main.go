package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JossMR/VersionsControlRepository/internal/app"
	"github.com/JossMR/VersionsControlRepository/internal/config"
	"github.com/JossMR/VersionsControlRepository/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vcr: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// newApp reads the config and creates a VCRApp. The caller must defer app.Close().
// operation names the CLI command in the history; params are recorded with it.
func newApp(operation string, params ...string) (*app.VCRApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if root := os.Getenv(app.EnvRoot); root != "" {
		cfg.RootDir = root
	}

	a, err := app.NewVCRApp(cfg, app.NewOperation(operation, params...))
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:           "vcr",
	Short:         "Multi-user staged file repository",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		cfg.RootDir = defaults["root_dir"]
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Repository: %s\n", cfg.RootDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		if wantJSON(cmd) {
			return printJSON(os.Stdout, cfg)
		}
		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Repository:  %s\n", cfg.RootDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Log Level:   %s\n", cfg.LogLevel)
		fmt.Printf("Database:    %s %s\n", cfg.Database.Type, cfg.DatabasePath())
		fmt.Printf("Filesystem:  %s\n", cfg.Filesystem.Type)
		fmt.Printf("Ignore:      %s\n", strings.Join(cfg.Filesystem.Ignore, " "))
		fmt.Printf("Session TTL: %s\n", cfg.SessionTTL())
		return nil
	},
}

// account commands
var registerCmd = &cobra.Command{
	Use:   "register USER",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}

		a, err := newApp("register", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Register(args[0], password); err != nil {
			return err
		}
		fmt.Printf("Registered %s\n", args[0])
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login USER",
	Short: "Log in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}

		a, err := newApp("login", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Login(args[0], password); err != nil {
			return err
		}
		fmt.Printf("Logged in as %s\n", args[0])
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("logout")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("whoami")
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.WhoAmI()
		if err != nil {
			return err
		}
		fmt.Println(user)
		return nil
	},
}

// permission commands
var grantCmd = &cobra.Command{
	Use:   "grant USER read|write",
	Short: "Give a user access to your published files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("grant", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Grant(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Granted %s access to %s\n", p.Kind, p.Grantee)
		return nil
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke USER",
	Short: "Remove a user's access to your published files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("revoke", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Revoke(args[0]); err != nil {
			return err
		}
		fmt.Printf("Revoked access of %s\n", args[0])
		return nil
	},
}

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "List users whose files you can access",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		grantees, _ := cmd.Flags().GetBool("grantees")

		a, err := newApp("access")
		if err != nil {
			return err
		}
		defer a.Close()

		if grantees {
			perms, err := a.Grantees()
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(os.Stdout, perms)
			}
			return printPermissions(os.Stdout, perms, false)
		}

		perms, err := a.Accessible()
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(os.Stdout, perms)
		}
		return printPermissions(os.Stdout, perms, true)
	},
}

// file commands
var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List files of your staging area or another area",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		published, _ := cmd.Flags().GetBool("published")
		mirror, _ := cmd.Flags().GetString("mirror")
		remote, _ := cmd.Flags().GetString("remote")
		kind, owner, err := areaFor(published, mirror, remote)
		if err != nil {
			return err
		}

		a, err := newApp("ls")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.ListFiles(kind, owner)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(os.Stdout, entries)
		}
		return printFiles(os.Stdout, entries)
	},
}

var catCmd = &cobra.Command{
	Use:   "cat FILE",
	Short: "Print a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		published, _ := cmd.Flags().GetBool("published")
		mirror, _ := cmd.Flags().GetString("mirror")
		remote, _ := cmd.Flags().GetString("remote")
		kind, owner, err := areaFor(published, mirror, remote)
		if err != nil {
			return err
		}

		a, err := newApp("cat")
		if err != nil {
			return err
		}
		defer a.Close()

		data, err := a.ReadFile(kind, owner, args[0])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var createCmd = &cobra.Command{
	Use:   "create FILE",
	Short: "Create a file in your staging area, or in a mirror with --owner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		data, _, err := readContent(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("create", args[0], owner)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CreateFile(owner, args[0], data); err != nil {
			return err
		}
		fmt.Printf("Created %s\n", args[0])
		return nil
	},
}

var writeCmd = &cobra.Command{
	Use:   "write FILE",
	Short: "Replace the content of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		data, ok, err := readContent(cmd)
		if err != nil {
			return err
		}
		if !ok {
			return errors.E(errors.InvalidArgument, errors.Str("write needs --content or --from"))
		}

		a, err := newApp("write", args[0], owner)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.WriteFile(owner, args[0], data); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", args[0])
		return nil
	},
}

var touchCmd = &cobra.Command{
	Use:   "touch FILE",
	Short: "Update the modification time of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")

		a, err := newApp("touch", args[0], owner)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.TouchFile(owner, args[0])
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm FILE",
	Short: "Delete a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")

		a, err := newApp("rm", args[0], owner)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteFile(owner, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

// sync commands
var commitCmd = &cobra.Command{
	Use:   "commit [OWNER]",
	Short: "Publish your staging area, or your mirror of OWNER",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := ""
		if len(args) > 0 {
			owner = args[0]
		}

		a, err := newApp("commit", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Commit(owner)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(os.Stdout, res)
		}
		printSyncResult(os.Stdout, "Committed", res)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [OWNER]",
	Short: "Refresh your staging area, or your mirror of OWNER",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) > 0 {
			target = args[0]
		}

		a, err := newApp("update", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Update(target)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(os.Stdout, res)
		}
		printSyncResult(os.Stdout, "Updated", res)
		return nil
	},
}

// versions commands
var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Manage versions of your published files",
}

var versionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List versions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("versions list")
		if err != nil {
			return err
		}
		defer a.Close()

		snaps, err := a.ListVersions()
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(os.Stdout, snaps)
		}
		return printSnapshots(os.Stdout, snaps)
	},
}

var versionsFilesCmd = &cobra.Command{
	Use:   "files VERSION",
	Short: "List the files of a version (number from list, or id)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("versions files")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.VersionFiles(args[0])
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(os.Stdout, entries)
		}
		return printFiles(os.Stdout, entries)
	},
}

var versionsRestoreCmd = &cobra.Command{
	Use:   "restore VERSION [FILE]",
	Short: "Restore a version, or one file of it, into your published area",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("versions restore", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 2 {
			if err := a.RestoreFile(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Restored %s\n", args[1])
			return nil
		}

		plan, err := a.RestoreFolder(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Restored: %d copied, %d deleted\n", len(plan.Copy), len(plan.Delete))
		return nil
	},
}

var versionsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Snapshot your published area now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("versions create")
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.CreateVersion()
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(os.Stdout, snap)
		}
		fmt.Printf("Created version %s (%d file(s))\n", snap.VersionID, snap.FileCount)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		all, _ := cmd.Flags().GetBool("all")

		a, err := newApp("history")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit, all)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(os.Stdout, ops)
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-17s  %-12s  %s  %-8s  %-8s  %s\n",
				op.ID,
				op.Operation,
				op.Username,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Copy the account database to DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("backup", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupDatabase(args[0]); err != nil {
			return err
		}
		fmt.Printf("Account database copied to %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Print listings as JSON")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// versions subcommands
	versionsCmd.AddCommand(versionsListCmd)
	versionsCmd.AddCommand(versionsFilesCmd)
	versionsCmd.AddCommand(versionsRestoreCmd)
	versionsCmd.AddCommand(versionsCreateCmd)

	for _, c := range []*cobra.Command{lsCmd, catCmd} {
		c.Flags().Bool("published", false, "Use your published area")
		c.Flags().String("mirror", "", "Use your mirror of OWNER")
		c.Flags().String("remote", "", "Use the published area of OWNER (read-only)")
	}
	for _, c := range []*cobra.Command{createCmd, writeCmd, touchCmd, rmCmd} {
		c.Flags().String("owner", "", "Edit your mirror of OWNER instead of your staging area")
	}
	for _, c := range []*cobra.Command{createCmd, writeCmd} {
		c.Flags().String("content", "", "File content")
		c.Flags().String("from", "", "Read content from a local file, or - for stdin")
	}
	accessCmd.Flags().Bool("grantees", false, "List the users you granted access instead")
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	historyCmd.Flags().Bool("all", false, "Show operations of every user")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(revokeCmd)
	rootCmd.AddCommand(accessCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(touchCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(backupCmd)
}
