package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"extci/internal/env"

	"github.com/urfave/cli/v3"
)

func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "print the client version and, with --host, the server's",
		Action: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "extci server host:port to query"},
		},
	}
}

func Version(ctx context.Context, cmd *cli.Command) error {
	out := cmd.Root().Writer
	fmt.Fprintf(out, "client v%s\n", env.VERSION)

	host := strings.TrimSpace(cmd.String("host"))
	if host == "" {
		return nil
	}

	fmt.Fprintf(out, "server %s\n", serverVersion(ctx, host))
	return nil
}

func serverVersion(ctx context.Context, host string) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/ci/version", host), nil)
	if err != nil {
		return "no version detected"
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "no version detected"
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "no version detected"
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil || strings.TrimSpace(string(body)) == "" {
		return "no version detected"
	}
	return strings.TrimSpace(string(body))
}
