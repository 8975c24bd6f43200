package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	goSession "github.com/zyraxfit/goSession"
	"github.com/zyraxfit/goSession/internal/config"
	"github.com/zyraxfit/goSession/jwt"
)

type cli struct {
	cfg     *config.Config
	builder *goSession.Builder
	logger  *zap.Logger

	stdin  io.Reader
	stdout io.Writer
}

type command func(ctx context.Context, c *cli, args []string) int

var commands = map[string]command{
	"login":       loginCommand(false),
	"force-login": loginCommand(true),
	"status":      statusCommand,
	"logout":      logoutCommand,
	"get":         getCommand,
	"console":     consoleCommand,
}

func (c *cli) in() io.Reader {
	if c.stdin == nil {
		return os.Stdin
	}
	return c.stdin
}

func (c *cli) out() io.Writer {
	if c.stdout == nil {
		return os.Stdout
	}
	return c.stdout
}

// engine builds the engine and restores the stored session.
func (c *cli) engine(ctx context.Context) (*goSession.Engine, error) {
	engine, err := c.builder.Build()
	if err != nil {
		return nil, err
	}
	if _, err := engine.Restore(ctx); err != nil {
		engine.Close()
		return nil, err
	}
	return engine, nil
}

func (c *cli) password() (string, error) {
	if pw := os.Getenv("ZYRAX_PASSWORD"); pw != "" {
		return pw, nil
	}
	line, err := bufio.NewReader(c.in()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password required on stdin or in ZYRAX_PASSWORD")
	}
	return line, nil
}

func loginCommand(force bool) command {
	return func(ctx context.Context, c *cli, args []string) int {
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "usage: zyraxctl login <username>")
			return 2
		}
		password, err := c.password()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}

		engine, err := c.engine(ctx)
		if err != nil {
			c.logger.Error("start engine", zap.Error(err))
			return 1
		}
		defer engine.Close()

		login := engine.Login
		if force {
			login = engine.ForceLogin
		}
		user, err := login(ctx, args[0], password)
		if err != nil {
			var loginErr *goSession.LoginError
			switch {
			case errors.As(err, &loginErr) && loginErr.DeviceLimit:
				fmt.Fprintf(os.Stderr, "%s\nRun zyraxctl force-login to sign out another device.\n", loginErr.Message)
			case errors.As(err, &loginErr):
				fmt.Fprintln(os.Stderr, loginErr.Message)
			default:
				fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			}
			return 1
		}

		fmt.Fprintf(c.out(), "signed in as %s (%s)\n", user.Username, engine.Actor())
		return 0
	}
}

type statusView struct {
	Actor           string          `json:"actor"`
	IsAuthenticated bool            `json:"is_authenticated"`
	User            *goSession.User `json:"user,omitempty"`
	AccessExpiresAt *time.Time      `json:"access_expires_at,omitempty"`
}

func statusCommand(ctx context.Context, c *cli, _ []string) int {
	engine, err := c.engine(ctx)
	if err != nil {
		c.logger.Error("start engine", zap.Error(err))
		return 1
	}
	defer engine.Close()

	state := engine.State()
	view := statusView{
		Actor:           string(engine.Actor()),
		IsAuthenticated: state.IsAuthenticated,
		User:            state.User,
	}
	if pair, err := engine.Store().Get(ctx); err == nil && state.IsAuthenticated {
		if exp, ok := jwt.ExpiresAt(pair.Access); ok {
			view.AccessExpiresAt = &exp
		}
	}

	enc := json.NewEncoder(c.out())
	enc.SetIndent("", "  ")
	if err := enc.Encode(view); err != nil {
		return 1
	}
	if !state.IsAuthenticated {
		return 3
	}
	return 0
}

func logoutCommand(ctx context.Context, c *cli, _ []string) int {
	engine, err := c.engine(ctx)
	if err != nil {
		c.logger.Error("start engine", zap.Error(err))
		return 1
	}
	defer engine.Close()

	if err := engine.Logout(ctx); err != nil {
		c.logger.Error("logout", zap.Error(err))
		return 1
	}
	fmt.Fprintln(c.out(), "signed out")
	return 0
}

func getCommand(ctx context.Context, c *cli, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: zyraxctl get <path>")
		return 2
	}

	engine, err := c.engine(ctx)
	if err != nil {
		c.logger.Error("start engine", zap.Error(err))
		return 1
	}
	defer engine.Close()

	resp, err := engine.API().NewRequest(ctx).Get(args[0])
	if err != nil {
		if errors.Is(err, goSession.ErrSessionExpired) {
			fmt.Fprintln(os.Stderr, "session expired, run zyraxctl login")
			return 3
		}
		c.logger.Error("request failed", zap.String("path", args[0]), zap.Error(err))
		return 1
	}

	_, _ = c.out().Write(resp.Body())
	if !resp.IsSuccess() {
		fmt.Fprintf(os.Stderr, "\n%s\n", resp.Status())
		return 1
	}
	return 0
}
