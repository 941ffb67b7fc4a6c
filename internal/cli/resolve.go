package cli

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/peergraph/pkg/errors"
	peerio "github.com/matzehuels/peergraph/pkg/io"
	"github.com/matzehuels/peergraph/pkg/manifest"
	"github.com/matzehuels/peergraph/pkg/pipeline"
	"github.com/matzehuels/peergraph/pkg/pkgid"
	"github.com/matzehuels/peergraph/pkg/resolution"
)

// resolveOpts holds the flags of the resolve command.
type resolveOpts struct {
	registry string
	lockfile string
	format   string
	add      []string
	noCache  bool
	refresh  bool
	fresh    bool
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var opts resolveOpts

	cmd := &cobra.Command{
		Use:   "resolve [dir]",
		Short: "Resolve package.json dependencies into a lockfile",
		Long: `Resolve the dependencies of dir/package.json (default: the current
directory) and write the result to the lockfile.

An existing lockfile is extended rather than recomputed: requirements it
already resolves keep their packages and copy indexes. Use --fresh to
resolve from scratch.`,
		Example: `  peergraph resolve
  peergraph resolve ./web --format yaml
  peergraph resolve --add react@^18 --add react-dom@^18`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return c.runResolve(cmd, dir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.registry, "registry", "", "registry URL (default from config)")
	cmd.Flags().StringVar(&opts.lockfile, "lockfile", "", "lockfile path, relative to dir (default from config)")
	cmd.Flags().StringVar(&opts.format, "format", "", "lockfile format: json or yaml (default from extension)")
	cmd.Flags().StringSliceVar(&opts.add, "add", nil, "extra requirement, repeatable (e.g. react@^18)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the registry response cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached registry responses")
	cmd.Flags().BoolVar(&opts.fresh, "fresh", false, "ignore the existing lockfile")

	return cmd
}

func (c *CLI) runResolve(cmd *cobra.Command, dir string, opts resolveOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx).With("run", uuid.NewString()[:8])
	cfg := *c.settings()
	if opts.registry != "" {
		cfg.RegistryURL = strings.TrimRight(opts.registry, "/")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	reqs, err := readRequirements(dir, opts.add)
	if err != nil {
		return err
	}
	logger.Info("read requirements", "count", len(reqs), "dir", dir)

	lockfile, err := lockfilePath(dir, opts.lockfile, opts.format, cfg.Resolve.Lockfile)
	if err != nil {
		return err
	}

	var base *resolution.Snapshot
	if !opts.fresh {
		if base, err = loadLockfile(lockfile, reqs); err != nil {
			return err
		}
		if base != nil {
			logger.Info("loaded lockfile", "path", lockfile, "packages", base.Len())
		}
	}

	runner, err := c.newRunner(ctx, &cfg, opts.noCache, opts.refresh)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	spinner := newSpinner(ctx, cmd.ErrOrStderr(), "Resolving dependencies...")
	spinner.Start()
	result, err := runner.Resolve(ctx, pipeline.Options{
		Requirements: reqs,
		Base:         base,
		MaxNodes:     cfg.Resolve.MaxNodes,
		Refresh:      opts.refresh,
		Logger:       logger,
	})
	if err != nil {
		spinner.StopWithError("Resolution failed")
		return err
	}
	spinner.Stop()
	prog.done("resolved", "packages", result.Stats.Packages, "cached", result.CacheInfo.ResolveHit)

	if err := peerio.ExportFile(result.Snapshot, lockfile); err != nil {
		return err
	}
	logger.Info("wrote lockfile", "path", lockfile)

	printSuccess("Resolved %s", StyleHighlight.Render(filepath.Join(dir, manifest.FileName)))
	printStats(result.Stats.Packages, len(result.Snapshot.Roots), result.CacheInfo.ResolveHit)
	printFile(lockfile)
	printNewline()
	printNextStep("Draw it", "peergraph graph "+lockfile+" --svg -o graph.svg")
	return nil
}

// readRequirements reads dir/package.json and appends extra requirements.
// The manifest may be absent when extra requirements are given.
func readRequirements(dir string, extra []string) ([]string, error) {
	var reqs []string
	parsed, err := manifest.ReadPackageJSON(filepath.Join(dir, manifest.FileName))
	switch {
	case err == nil:
		for _, r := range parsed {
			reqs = append(reqs, r.String())
		}
	case errors.Is(err, errors.ErrCodeFileNotFound) && len(extra) > 0:
	default:
		return nil, err
	}

	reqs = append(reqs, extra...)
	if len(reqs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s declares no dependencies", filepath.Join(dir, manifest.FileName))
	}
	return reqs, nil
}

// lockfilePath resolves the lockfile location. A --format without an
// explicit --lockfile switches the default file's extension.
func lockfilePath(dir, flag, format, fallback string) (string, error) {
	switch format {
	case "", peerio.FormatJSON, peerio.FormatYAML:
	default:
		return "", errors.New(errors.ErrCodeInvalidInput, "invalid format %q (must be json or yaml)", format)
	}

	path := flag
	if path == "" {
		path = fallback
		if format != "" && peerio.FormatForPath(path) != format {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + "." + format
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	if format != "" && peerio.FormatForPath(path) != format {
		return "", errors.New(errors.ErrCodeInvalidInput, "lockfile %s is not %s", path, format)
	}
	return path, nil
}

// loadLockfile reads an existing lockfile, dropping roots that are no
// longer required so their packages fall out of the next snapshot.
// A missing lockfile yields nil.
func loadLockfile(path string, reqs []string) (*resolution.Snapshot, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	snap, err := peerio.ImportFile(path)
	if err != nil {
		return nil, err
	}

	wanted := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if req, err := pkgid.ParseReq(r); err == nil {
			wanted = append(wanted, req.String())
		}
	}
	for req := range snap.Roots {
		if !slices.Contains(wanted, req) {
			delete(snap.Roots, req)
		}
	}
	return snap, nil
}
