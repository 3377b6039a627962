package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/A-N-O-D-E-R/B2Wagon/internal/config"
	"github.com/A-N-O-D-E-R/B2Wagon/internal/wagon"
	"github.com/A-N-O-D-E-R/B2Wagon/pkg/logger"
)

func newRepoFlags() []cli.Flag {
	cfg := config.Load()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "repo-url",
			Usage:   "Repository URL, e.g. b2://bucket-name/releases",
			Value:   cfg.Wagon.RepoURL,
			EnvVars: []string{"WAGON_REPO_URL"},
		},
		&cli.StringFlag{
			Name:    "key-id",
			Usage:   "B2 application key ID",
			Value:   cfg.B2.KeyID,
			EnvVars: []string{"B2_KEY_ID"},
		},
		&cli.StringFlag{
			Name:    "application-key",
			Usage:   "B2 application key",
			Value:   cfg.B2.ApplicationKey,
			EnvVars: []string{"B2_APPLICATION_KEY"},
		},
		&cli.StringFlag{
			Name:    "endpoint",
			Usage:   "S3-compatible endpoint of the B2 region",
			Value:   cfg.B2.Endpoint,
			EnvVars: []string{"B2_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "Signing region matching the endpoint",
			Value:   cfg.B2.Region,
			EnvVars: []string{"B2_REGION"},
		},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}
	logger.SetLevel(config.Load().Log.Level)

	app := &cli.App{
		Name:  "b2wagon",
		Usage: "Publish and resolve Maven artifacts against a Backblaze B2 bucket",
		Commands: []*cli.Command{
			{
				Name:      "deploy",
				Usage:     "Upload a file or a staged repository directory",
				ArgsUsage: "<source> [resource-name]",
				Flags: append(newRepoFlags(),
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Parallel uploads when deploying a directory",
						Value: 4,
					},
				),
				Action: runDeploy,
			},
			{
				Name:      "fetch",
				Usage:     "Download a resource to a local file",
				ArgsUsage: "<resource-name> <destination>",
				Flags: append(newRepoFlags(),
					&cli.TimestampFlag{
						Name:   "if-newer-than",
						Usage:  "Only transfer when the remote copy is newer than this RFC3339 time",
						Layout: time.RFC3339,
					},
				),
				Action: runFetch,
			},
			{
				Name:      "exists",
				Usage:     "Check whether a resource is present remotely",
				ArgsUsage: "<resource-name>",
				Flags:     newRepoFlags(),
				Action:    runExists,
			},
			{
				Name:  "serve",
				Usage: "Serve the repository bucket read-only over HTTP",
				Flags: append(newRepoFlags(),
					&cli.StringFlag{
						Name:    "port",
						Usage:   "HTTP listen port",
						Value:   config.Load().Server.Port,
						EnvVars: []string{"SERVER_PORT"},
					},
				),
				Action: runServe,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// connectWagon builds a Wagon from the command flags and connects it.
func connectWagon(c *cli.Context) (*wagon.Wagon, error) {
	repoURL := c.String("repo-url")
	if repoURL == "" {
		return nil, fmt.Errorf("no repository URL; pass --repo-url or set WAGON_REPO_URL")
	}

	w := wagon.New(
		wagon.WithEndpoint(c.String("endpoint")),
		wagon.WithRegion(c.String("region")),
		wagon.WithListener(logListener{}),
	)
	creds := wagon.Credentials{
		KeyID:          c.String("key-id"),
		ApplicationKey: c.String("application-key"),
	}
	if err := w.Connect(c.Context, repoURL, creds); err != nil {
		return nil, err
	}
	return w, nil
}

func runFetch(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: fetch <resource-name> <destination>")
	}
	resource, destination := c.Args().Get(0), c.Args().Get(1)

	w, err := connectWagon(c)
	if err != nil {
		return err
	}
	defer w.Disconnect()

	if since := c.Timestamp("if-newer-than"); since != nil {
		fetched, err := w.GetIfNewer(c.Context, resource, destination, *since)
		if err != nil {
			return err
		}
		if !fetched {
			logger.Log.Info().Str("resource", resource).Msg("remote copy is not newer, skipping")
		}
		return nil
	}

	return w.Get(c.Context, resource, destination)
}

func runExists(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: exists <resource-name>")
	}
	resource := c.Args().Get(0)

	w, err := connectWagon(c)
	if err != nil {
		return err
	}
	defer w.Disconnect()

	found, err := w.ResourceExists(c.Context, resource)
	if err != nil {
		return err
	}
	fmt.Println(found)
	if !found {
		return cli.Exit("", 1)
	}
	return nil
}

// logListener reports transfer lifecycle events through the global logger.
type logListener struct{}

func (logListener) TransferInitiated(e wagon.TransferEvent) {
	logger.Log.Debug().Str("resource", e.Resource).Str("kind", e.Kind.String()).Msg("transfer initiated")
}

func (logListener) TransferStarted(e wagon.TransferEvent) {
	logger.Log.Info().Str("resource", e.Resource).Str("kind", e.Kind.String()).Msg("transfer started")
}

func (logListener) TransferCompleted(e wagon.TransferEvent) {
	logger.Log.Info().
		Str("resource", e.Resource).
		Str("kind", e.Kind.String()).
		Str("file", filepath.Base(e.LocalFile)).
		Int64("bytes", e.Size).
		Msg("transfer completed")
}
