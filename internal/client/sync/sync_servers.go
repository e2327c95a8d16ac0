package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hm-skb/skb/internal/skbsdk"
)

// ServerAPI manages the servers this client replicates to.
type ServerAPI interface {
	Discover(ctx context.Context, depth uint) (*skbsdk.DiscoverResponse, error)
	Add(ctx context.Context, hostname string) (string, error)
	Accept(ctx context.Context, hostname string) (string, error)
	Delete(ctx context.Context, hostname string) error
}

// ServerListing is a paired server with its handshake state.
type ServerListing struct {
	skbsdk.InfoServer
	State skbsdk.ServerState
}

// PairResult carries the backup code of a new pairing. Existing is set when
// nothing had to be done.
type PairResult struct {
	Hostname   string
	BackupCode string
	Existing   bool
}

// ServerManager looks servers up in a fresh snapshot before changing them.
type ServerManager struct {
	info    Snapshotter
	servers ServerAPI
}

func NewServerManager(info Snapshotter, servers ServerAPI) *ServerManager {
	return &ServerManager{
		info:    info,
		servers: servers,
	}
}

// List skips servers in an illegal state after logging them.
func (m *ServerManager) List(ctx context.Context) ([]ServerListing, error) {
	info, err := m.info.GetInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: fetch snapshot: %w", err)
	}
	return ServerListings(info), nil
}

// ServerListings classifies the servers of a snapshot.
func ServerListings(info *skbsdk.InfoResponse) []ServerListing {
	listings := make([]ServerListing, 0, len(info.Servers))
	for _, srv := range info.Servers {
		state, err := srv.State()
		if errors.Is(err, skbsdk.ErrIllegalServerState) {
			slog.Warn("server skipped", "hostname", srv.Hostname, "error", err)
			continue
		}
		listings = append(listings, ServerListing{InfoServer: srv, State: state})
	}
	return listings
}

func (m *ServerManager) Discover(ctx context.Context, depth uint) ([]skbsdk.ServerItem, error) {
	resp, err := m.servers.Discover(ctx, depth)
	if err != nil {
		return nil, err
	}
	return resp.Servers, nil
}

// Verify confirms a pairing that the remote server started.
func (m *ServerManager) Verify(ctx context.Context, hostname string) (*PairResult, error) {
	srv, err := m.find(ctx, hostname)
	if err != nil {
		return nil, err
	}
	if srv == nil {
		return nil, fmt.Errorf("verify %s: %w", hostname, ErrServerNotFound)
	}
	if srv.IsVerified {
		return &PairResult{Hostname: hostname, Existing: true}, nil
	}

	code, err := m.servers.Accept(ctx, hostname)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", hostname, err)
	}

	slog.Info("server verified", "hostname", hostname)
	return &PairResult{Hostname: hostname, BackupCode: code}, nil
}

// New starts pairing with a discovered server.
func (m *ServerManager) New(ctx context.Context, hostname string) (*PairResult, error) {
	srv, err := m.find(ctx, hostname)
	if err != nil {
		return nil, err
	}
	if srv != nil {
		return &PairResult{Hostname: hostname, Existing: true}, nil
	}

	code, err := m.servers.Add(ctx, hostname)
	if err != nil {
		return nil, fmt.Errorf("new %s: %w", hostname, err)
	}

	slog.Info("server added", "hostname", hostname)
	return &PairResult{Hostname: hostname, BackupCode: code}, nil
}

func (m *ServerManager) Delete(ctx context.Context, hostname string) error {
	srv, err := m.find(ctx, hostname)
	if err != nil {
		return err
	}
	if srv == nil {
		return fmt.Errorf("delete %s: %w", hostname, ErrServerNotFound)
	}

	if err := m.servers.Delete(ctx, hostname); err != nil {
		return fmt.Errorf("delete %s: %w", hostname, err)
	}

	slog.Info("server deleted", "hostname", hostname)
	return nil
}

func (m *ServerManager) find(ctx context.Context, hostname string) (*skbsdk.InfoServer, error) {
	info, err := m.info.GetInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: fetch snapshot: %w", err)
	}

	srv, ok := info.FindServer(hostname)
	if !ok {
		return nil, nil
	}
	return srv, nil
}
