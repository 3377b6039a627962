package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/A-N-O-D-E-R/B2Wagon/pkg/logger"
)

// runDeploy uploads a single file, or every file under a staged repository
// directory (as produced by `mvn deploy -DaltDeploymentRepository=file:...`),
// keeping the relative layout as resource names.
func runDeploy(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: deploy <source> [resource-name]")
	}
	source := c.Args().Get(0)

	stat, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("cannot read deploy source: %w", err)
	}

	w, err := connectWagon(c)
	if err != nil {
		return err
	}
	defer w.Disconnect()

	if !stat.IsDir() {
		resource := c.Args().Get(1)
		if resource == "" {
			resource = filepath.Base(source)
		}
		return w.Put(c.Context, source, resource)
	}

	concurrency := c.Int("concurrency")
	if concurrency < 1 {
		concurrency = 1
	}

	group, ctx := errgroup.WithContext(c.Context)
	group.SetLimit(concurrency)

	var count int
	err = filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		resource := filepath.ToSlash(rel)

		count++
		group.Go(func() error {
			return w.Put(ctx, path, resource)
		})
		return nil
	})
	if err != nil {
		// Let in-flight uploads drain before reporting the walk failure.
		_ = group.Wait()
		return fmt.Errorf("walking deploy source: %w", err)
	}

	if err := group.Wait(); err != nil {
		return err
	}

	logger.Log.Info().Int("files", count).Str("source", source).Msg("deploy finished")
	return nil
}
