// Command wsprobe connects to a live voting group, optionally sends one event,
// and prints every frame it receives. It is handy for watching a session from
// a terminal while driving it through the REST API or another client.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "wsprobe",
		Usage:     "Watch a live voting session",
		ArgsUsage: "<access_code>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:8080", Usage: "Server base URL", Sources: cli.EnvVars("WSPROBE_URL")},
			&cli.StringFlag{Name: "send", Usage: "Raw JSON event to send after connecting"},
			&cli.IntFlag{Name: "count", Usage: "Exit after this many frames (0 reads until interrupted)"},
			&cli.DurationFlag{Name: "timeout", Usage: "Exit when no frame arrives for this long (0 waits forever)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("expected exactly one access code argument")
			}
			target, err := probeURL(cmd.String("url"), cmd.Args().First())
			if err != nil {
				return err
			}
			return probe(ctx, target, cmd.String("send"), int(cmd.Int("count")), cmd.Duration("timeout"), out)
		},
	}
}

// probeURL builds the live route for sessionID. http(s) base URLs are mapped to ws(s).
func probeURL(base, sessionID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if sessionID == "" {
		return "", fmt.Errorf("access code is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/voting/" + url.PathEscape(sessionID) + "/"
	return u.String(), nil
}

// probe dials target, sends send when non-empty, and writes each received frame
// to out on its own line.
func probe(ctx context.Context, target, send string, count int, timeout time.Duration, out io.Writer) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", target, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", target, err)
	}
	defer conn.Close()
	log.Printf("connected to %s", target)

	// Unblock the read loop on interrupt
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if send != "" {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(send)); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}

	for received := 0; count == 0 || received < count; received++ {
		if timeout > 0 {
			conn.SetReadDeadline(time.Now().Add(timeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				log.Printf("no frame for %s, exiting", timeout)
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		fmt.Fprintln(out, string(data))
	}
	return nil
}
