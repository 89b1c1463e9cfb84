// Command nyxd is the daemon bootstrap surface: enough CLI to create or
// open a container, launch the background RPC daemon, and host the
// launcher's own hidden re-exec, grounded on
// sdn-server/cmd/spacedatanetwork/main.go's cobra root-command shape. The
// full interactive front-end (per-entity subcommands, editor invocation,
// clipboard wiring) is out of scope per spec.md 1; this binary only
// covers the daemon bootstrap.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cicero-ai/nyx/internal/clipboard"
	"github.com/cicero-ai/nyx/internal/config"
	"github.com/cicero-ai/nyx/internal/crypto"
	"github.com/cicero-ai/nyx/internal/launcher"
	"github.com/cicero-ai/nyx/internal/rpc"
	"github.com/cicero-ai/nyx/internal/store"
	"github.com/cicero-ai/nyx/internal/vfs"
)

var log = logging.Logger("nyxd")

var (
	dbfileFlag    string
	hostFlag      string
	portFlag      uint16
	timeoutFlag   string
	cbTimeoutFlag uint64
	mountDirFlag  string
	daemonFlag    bool
)

func main() {
	logging.SetAllLoggers(logging.LevelInfo)

	root := &cobra.Command{
		Use:   "nyxd",
		Short: "Nyx secrets daemon",
		// With no subcommand, nyxd either re-execs as the launcher's hidden
		// daemon child (-d) or falls through to cobra's own usage output,
		// since the interactive front-end is out of scope per spec.md 1.
		RunE: func(cmd *cobra.Command, args []string) error {
			if daemonFlag {
				return runDaemon()
			}
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&dbfileFlag, "dbfile", "f", "", "path to the container file")
	root.PersistentFlags().StringVarP(&hostFlag, "host", "h", "", "RPC listen host")
	root.PersistentFlags().Uint16VarP(&portFlag, "port", "p", 0, "RPC listen port")
	root.PersistentFlags().StringVarP(&timeoutFlag, "timeout", "t", "", "inactivity timeout (n or <N>{s|m|h})")
	root.PersistentFlags().Uint64VarP(&cbTimeoutFlag, "cb-timeout", "c", 0, "clipboard auto-clear timeout in seconds")
	root.PersistentFlags().StringVarP(&mountDirFlag, "mount-dir", "m", "", "ssh_keys FUSE mount directory")
	root.Flags().BoolVarP(&daemonFlag, "daemon", "d", false, "internal: marks the launcher's spawned child")
	_ = root.Flags().MarkHidden("daemon")

	root.AddCommand(createCmd(), openCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadEffectiveConfig reads config.yaml (conventionally ~/.nyx/config.yaml,
// per SPEC_FULL.md's ambient stack section) and layers the global flags
// on top, flags taking precedence over file values.
func loadEffectiveConfig() (*config.Config, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	if dbfileFlag != "" {
		cfg.Dbfile = dbfileFlag
	}
	if hostFlag != "" {
		cfg.Host = hostFlag
	}
	if portFlag != 0 {
		cfg.Port = portFlag
	}
	if timeoutFlag != "" {
		cfg.Timeout = timeoutFlag
	}
	if cbTimeoutFlag != 0 {
		cfg.ClipboardTimeout = cbTimeoutFlag
	}
	if mountDirFlag != "" {
		cfg.MountDir = mountDirFlag
	}
	return cfg, nil
}

// createCmd creates a fresh container, prints its BIP-39 recovery phrase,
// and launches the daemon against it.
func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "create a new container and start the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadEffectiveConfig()
			if err != nil {
				return err
			}

			password, err := promptPassword("Set a password for the new container: ")
			if err != nil {
				return err
			}

			timeout, err := store.ParseDatabaseTimeout(cfg.Timeout)
			if err != nil {
				return err
			}
			if _, err := store.Create(cfg.Dbfile, password, timeout); err != nil {
				return err
			}

			if payload, err := os.ReadFile(cfg.Dbfile); err == nil {
				if words, err := crypto.GetBip39Words(payload, password); err == nil {
					fmt.Println("Recovery phrase (write this down, it will not be shown again):")
					fmt.Println(strings.Join(words, " "))
				}
			}

			return launch(cfg, password)
		},
	}
}

// openCmd launches the daemon against an existing container.
func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "unlock an existing container and start the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadEffectiveConfig()
			if err != nil {
				return err
			}
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			return launch(cfg, password)
		},
	}
}

func launch(cfg *config.Config, password string) error {
	nPassword := crypto.NormalizePassword(password)
	logPath := cfg.Dbfile + ".log"
	return launcher.Launch(cfg.Host, cfg.Port, cfg.Dbfile, nPassword, cfg.MountDir, logPath)
}

// runDaemon is the launcher's spawned-child entry point: it reads the
// handoff environment variables, unlocks the database, mounts the
// ssh_keys filesystem, and blocks serving RPC requests, the analogue of
// launcher.rs's start_daemon.
func runDaemon() error {
	dbfile, nPassword, err := launcher.ReadHandoff()
	if err != nil {
		return err
	}
	launcher.ClearHandoff()

	cfg, err := loadEffectiveConfig()
	if err != nil {
		return err
	}
	if dbfile != "" {
		cfg.Dbfile = dbfile
	}

	db, err := store.Load(cfg.Dbfile, nPassword)
	if err != nil {
		return err
	}

	timeoutOverride, err := store.ParseDatabaseTimeout(cfg.Timeout)
	if err != nil {
		return err
	}
	clipboardTimeout := time.Duration(cfg.ClipboardTimeout) * time.Second

	daemon := rpc.NewDaemon(db, cfg.Dbfile, nPassword, &timeoutOverride, clipboardTimeout, clipboard.Discard{})

	if cfg.MountDir != "" {
		mount, err := vfs.MountSshKeys(cfg.MountDir, daemon.DB(), daemon.Locker())
		if err != nil {
			log.Errorf("unable to mount ssh_keys filesystem: %v", err)
		} else {
			daemon.SetFuse(mount)
		}
	}

	return daemon.Start(cfg.Host, cfg.Port)
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
