// Command randombot registers with the referee and plays random legal moves
// in every game it is paired into.
//
//	randombot -a localhost -p 8080 -n "random moves"
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

	"github.com/wricardo/chess-referee/protocol"
)

func main() {
	cmd := &cli.Command{
		Name:  "randombot",
		Usage: "play random legal chess moves against the referee",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Value: "localhost", Usage: "server host", Sources: cli.EnvVars("REFEREE_ADDRESS")},
			&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Value: "8080", Usage: "server port", Sources: cli.EnvVars("REFEREE_PORT")},
			&cli.StringFlag{Name: "path", Value: "/ws", Usage: "websocket path"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Value: "random moves", Usage: "name to register"},
			&cli.BoolFlag{Name: "debug", Usage: "log every frame"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level := slog.LevelInfo
			if cmd.Bool("debug") {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			u := url.URL{
				Scheme: "ws",
				Host:   net.JoinHostPort(cmd.String("address"), cmd.String("port")),
				Path:   cmd.String("path"),
			}
			return play(ctx, u.String(), cmd.String("name"), logger)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("randombot failed", "error", err)
		os.Exit(1)
	}
}

func play(ctx context.Context, addr, name string, logger *slog.Logger) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	register, err := protocol.Encode(protocol.Register{Name: name})
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, register); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	logger.Info("registered", "client", name, "url", addr)

	bot := NewBot(nil)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		logger.Debug("received", "frame", string(data))

		reply, outcome, err := bot.Handle(data)
		if err != nil {
			logger.Warn("lost track of the game", "error", err)
			continue
		}
		if outcome != nil {
			logger.Info("game over", "winner", outcome.Winner, "reason", outcome.Reason)
			continue
		}
		if reply != nil {
			logger.Debug("sending", "frame", string(reply))
			if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}
