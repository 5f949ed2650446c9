// Command client is a manual test client for the referee.
//
// It connects, sends any frames requested on the command line in a fixed
// order (register, move, start, raw text, file contents) and then prints
// every frame it receives until the connection closes or it is interrupted.
//
//	client -n alice
//	client -n viewer -w alice -b bob -s 3
//	client -T '{"from":"E2","to":"E4"}'
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cmd := &cli.Command{
		Name:  "client",
		Usage: "send frames to a chess referee and print what comes back",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Value: "localhost", Usage: "server host", Sources: cli.EnvVars("REFEREE_ADDRESS")},
			&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Value: "8080", Usage: "server port", Sources: cli.EnvVars("REFEREE_PORT")},
			&cli.StringFlag{Name: "path", Value: "/ws", Usage: "websocket path"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "register under this name"},
			&cli.StringFlag{Name: "move_from", Aliases: []string{"f"}, Usage: "move from cell"},
			&cli.StringFlag{Name: "move_to", Aliases: []string{"t"}, Usage: "move to cell"},
			&cli.StringFlag{Name: "transform", Aliases: []string{"r"}, Usage: "promotion piece"},
			&cli.StringFlag{Name: "white", Aliases: []string{"w"}, Usage: "start: white player"},
			&cli.StringFlag{Name: "black", Aliases: []string{"b"}, Usage: "start: black player"},
			&cli.StringFlag{Name: "seconds_per_turn", Aliases: []string{"s"}, Usage: "start: seconds per turn"},
			&cli.StringFlag{Name: "text", Aliases: []string{"T"}, Usage: "raw frame to send"},
			&cli.StringFlag{Name: "file", Aliases: []string{"F"}, Usage: "send the contents of this file as a frame"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := Options{
				Name:           cmd.String("name"),
				From:           cmd.String("move_from"),
				To:             cmd.String("move_to"),
				Transform:      cmd.String("transform"),
				White:          cmd.String("white"),
				Black:          cmd.String("black"),
				SecondsPerTurn: cmd.String("seconds_per_turn"),
				Text:           cmd.String("text"),
				File:           cmd.String("file"),
			}
			frames, err := Frames(opts)
			if err != nil {
				return err
			}

			u := url.URL{
				Scheme: "ws",
				Host:   net.JoinHostPort(cmd.String("address"), cmd.String("port")),
				Path:   cmd.String("path"),
			}
			return run(ctx, u.String(), frames, logger)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Error("client failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string, frames [][]byte, logger *slog.Logger) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	logger.Info("connected", "url", addr)

	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for _, frame := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		fmt.Println(string(data))
	}
}
