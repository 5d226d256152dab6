package rcon

import (
	"context"
	"fmt"
	"sync"
	"time"

	gorcon "github.com/gorcon/rcon"

	"github.com/forgecraft/craftvault-backend/pkg/config"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
)

// Result is the raw response from one executed server command.
type Result struct {
	ServerID string `json:"server_id"`
	Command  string `json:"command"`
	Output   string `json:"output"`
}

// OnlinePlayer is one entry of the parsed online list.
type OnlinePlayer struct {
	Role string `json:"role"`
	Nick string `json:"nick"`
}

// Executor sends commands to registered game servers.
type Executor interface {
	Execute(ctx context.Context, serverID, command string) (Result, error)
	ListOnlinePlayers(ctx context.Context, serverID string) ([]OnlinePlayer, error)
	Status() map[string]bool
	Close() error
}

// connection is the minimal transport surface, satisfied by *gorcon.Conn.
type connection interface {
	Execute(command string) (string, error)
	Close() error
}

// dialFunc opens a transport connection to one server.
type dialFunc func(address, password string, dialTimeout, execTimeout time.Duration) (connection, error)

func gorconDial(address, password string, dialTimeout, execTimeout time.Duration) (connection, error) {
	return gorcon.Dial(
		address,
		password,
		gorcon.SetDialTimeout(dialTimeout),
		gorcon.SetDeadline(execTimeout),
	)
}

// serverConn serializes command traffic to a single server. The RCON
// protocol carries no request ids, so concurrent writes on one socket would
// interleave responses.
type serverConn struct {
	cfg  config.RconServer
	mu   sync.Mutex
	conn connection
}

type executor struct {
	servers map[string]*serverConn
	cfg     config.RconConfig
	dial    dialFunc
	logg    *logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// Params wires the executor dependencies.
type Params struct {
	Config config.RconConfig
	Logger *logger.Logger
}

// NewExecutor builds the connection registry from configuration. Connections
// are opened lazily on first use.
func NewExecutor(p Params) (Executor, error) {
	if p.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "rcon logger required")
	}
	servers, err := p.Config.Servers()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rcon server list")
	}
	if len(servers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one rcon server is required")
	}

	registry := make(map[string]*serverConn, len(servers))
	for _, srv := range servers {
		registry[srv.ID] = &serverConn{cfg: srv}
	}

	return &executor{
		servers: registry,
		cfg:     p.Config,
		dial:    gorconDial,
		logg:    p.Logger,
		sleep:   sleepCtx,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *executor) Execute(ctx context.Context, serverID, command string) (Result, error) {
	if command == "" {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "command is required")
	}
	srv, ok := e.servers[serverID]
	if !ok {
		return Result{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unknown rcon server %q", serverID))
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()

	attempts := e.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rcon execute canceled")
		}

		output, err := e.executeOnce(srv, command)
		if err == nil {
			return Result{ServerID: serverID, Command: command, Output: output}, nil
		}
		lastErr = err

		fields := map[string]any{"attempt": attempt, "command": command}
		e.logg.Warn(e.logg.WithFields(e.logg.WithServerID(ctx, serverID), fields), "rcon command failed")

		if attempt < attempts {
			if err := e.sleep(ctx, e.cfg.RetryBackoff); err != nil {
				return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rcon retry canceled")
			}
		}
	}

	return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, fmt.Sprintf("rcon execute on %s", serverID))
}

// executeOnce sends one command, dialing when no live connection exists.
// Any transport error drops the connection so the next attempt redials.
func (e *executor) executeOnce(srv *serverConn, command string) (string, error) {
	if srv.conn == nil {
		conn, err := e.dial(srv.cfg.Address, srv.cfg.Password, e.cfg.DialTimeout, e.cfg.ExecTimeout)
		if err != nil {
			return "", fmt.Errorf("dial %s: %w", srv.cfg.Address, err)
		}
		srv.conn = conn
	}

	output, err := srv.conn.Execute(command)
	if err != nil {
		_ = srv.conn.Close()
		srv.conn = nil
		return "", fmt.Errorf("execute: %w", err)
	}
	return output, nil
}

func (e *executor) ListOnlinePlayers(ctx context.Context, serverID string) ([]OnlinePlayer, error) {
	result, err := e.Execute(ctx, serverID, "list")
	if err != nil {
		return nil, err
	}
	return ParseOnlineList(result.Output), nil
}

// Status reports which servers currently hold a live connection.
func (e *executor) Status() map[string]bool {
	status := make(map[string]bool, len(e.servers))
	for id, srv := range e.servers {
		srv.mu.Lock()
		status[id] = srv.conn != nil
		srv.mu.Unlock()
	}
	return status
}

func (e *executor) Close() error {
	var firstErr error
	for _, srv := range e.servers {
		srv.mu.Lock()
		if srv.conn != nil {
			if err := srv.conn.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			srv.conn = nil
		}
		srv.mu.Unlock()
	}
	return firstErr
}
