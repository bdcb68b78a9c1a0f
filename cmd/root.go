package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/jamesbehr/rip/config"
	"github.com/jamesbehr/rip/filesystem"
	"github.com/jamesbehr/rip/graveyard"
	"github.com/jamesbehr/rip/prompt"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type ripOptions struct {
	Graveyard string
	Config    string
	Decompose bool
	Seance    bool
	Unbury    bool
	Inspect   bool
	Force     bool
	Verbose   bool
}

var options ripOptions

var (
	errDecomposeExclusive = errors.New("--decompose cannot be combined with --seance, --unbury, --inspect or targets")
	errInspectBuryOnly    = errors.New("--inspect can only be used when burying")
)

func (o ripOptions) validate(targets []string) error {
	if o.Decompose && (o.Seance || o.Unbury || o.Inspect || len(targets) > 0) {
		return errDecomposeExclusive
	}

	if o.Inspect && (o.Seance || o.Unbury) {
		return errInspectBuryOnly
	}

	return nil
}

func (o ripOptions) mode() bool {
	return o.Decompose || o.Seance || o.Unbury
}

var rootCmd = &cobra.Command{
	Use:   "rip [flags] [TARGET...]",
	Short: "Remove files by sending them to a graveyard",
	Long: `rip moves files and directories into a graveyard instead of deleting them,
remembering where each one came from so it can be put back later.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := options.validate(args); err != nil {
			return err
		}

		if len(args) == 0 && !options.mode() {
			return cmd.Help()
		}

		g, err := openGraveyard(os.Stdout, prompt.Terminal(os.Stdin, os.Stdout))
		if err != nil {
			return err
		}

		cwd, err := workingDirectory()
		if err != nil {
			return err
		}

		switch {
		case options.Decompose:
			_, err = g.Decompose(options.Force)
			return err
		case options.Unbury:
			return unbury(g, cwd, args)
		case options.Seance:
			return seance(g, cwd, os.Stdout)
		default:
			return bury(g, cwd, args)
		}
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&options.Graveyard, "graveyard", "", "directory where deleted files go (default is $RIP_GRAVEYARD, then $XDG_DATA_HOME/graveyard, then /tmp/graveyard-$USER)")
	flags.StringVar(&options.Config, "config", "", "config file (default is $RIP_CONFIG, then $XDG_CONFIG_HOME/rip/config.toml)")
	flags.BoolVarP(&options.Decompose, "decompose", "d", false, "permanently delete the graveyard")
	flags.BoolVarP(&options.Seance, "seance", "s", false, "list files buried from the current directory")
	flags.BoolVarP(&options.Unbury, "unbury", "u", false, "restore the given files, or the last buried file if none are given")
	flags.BoolVarP(&options.Inspect, "inspect", "i", false, "print some info about each target before burying it")
	flags.BoolVarP(&options.Force, "force", "f", false, "do not ask before decomposing the graveyard")
	flags.BoolVarP(&options.Verbose, "verbose", "v", false, "print debug logs")
}

// openGraveyard loads the config, sets up logging and prepares the graveyard
// directory.
func openGraveyard(out io.Writer, confirm prompt.Func) (*graveyard.Graveyard, error) {
	path := options.Config
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}

	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if options.Verbose {
		c.Log.Level = "debug"
	}

	if err := config.InitLog(c.Log); err != nil {
		return nil, err
	}

	root, err := config.Prepare(c.ResolveGraveyard(options.Graveyard))
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"root": root, "config": path}).Debug("opened graveyard")

	g := graveyard.New(root, confirm, out)
	g.Mover.BigFileThreshold = c.BigFileThreshold
	g.Mover.Verify = !c.SkipVerify

	return g, nil
}

func workingDirectory() (filesystem.Path, error) {
	pwd, err := os.Getwd()
	if err != nil {
		return filesystem.Path(""), err
	}

	// Graves mirror canonical paths, so seance needs the real cwd.
	return filesystem.MakePath(pwd).Canonical()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
