package skbsdk

import (
	"fmt"
	"time"
)

// InfoResponse is the snapshot of everything the server knows about this client.
type InfoResponse struct {
	TotalUsageSize    uint64       `json:"total_usage_size"`    // backup space available, bytes
	UsedData          uint64       `json:"used_data"`           // backup space used, bytes
	DataUnsecured     uint64       `json:"data_unsecured"`      // bytes on no remote server
	DataSecured       uint64       `json:"data_secured"`        // bytes on exactly one remote server
	DataSafelySecured uint64       `json:"data_safely_secured"` // bytes on two remote servers
	Servers           []InfoServer `json:"servers"`
	Files             []InfoFile   `json:"files"`
}

// FindFile returns the record tracked under exactly path.
func (r *InfoResponse) FindFile(path string) (*InfoFile, bool) {
	for i := range r.Files {
		if r.Files[i].Path == path {
			return &r.Files[i], true
		}
	}
	return nil, false
}

// FindServer matches the current hostname only.
func (r *InfoResponse) FindServer(hostname string) (*InfoServer, bool) {
	for i := range r.Servers {
		if r.Servers[i].Hostname == hostname {
			return &r.Servers[i], true
		}
	}
	return nil, false
}

type InfoServer struct {
	Hostname            string   `json:"hostname"`
	OldHostnames        []string `json:"old_hostnames"`
	Owner               string   `json:"owner"`
	BlockSize           uint64   `json:"block_size"`
	FreeBlocks          uint64   `json:"free_blocks"`
	UsedBlocks          uint64   `json:"used_blocks"`
	HealthcheckPercent  uint8    `json:"healthcheck_percent"`
	HealthcheckInterval uint64   `json:"healthcheck_interval"` // minutes
	IsVerified          bool     `json:"is_verified"`          // we accepted the remote
	IsConfirmed         bool     `json:"is_confirmed"`         // the remote accepted us
	Healthy             bool     `json:"healthy"`
}

type ServerState int

const (
	ServerConnected ServerState = iota
	ServerAwaitingRemoteConfirmation
	ServerAwaitingLocalConfirmation
)

func (s ServerState) String() string {
	switch s {
	case ServerConnected:
		return "connected"
	case ServerAwaitingRemoteConfirmation:
		return "awaiting remote confirmation"
	case ServerAwaitingLocalConfirmation:
		return "awaiting local confirmation"
	default:
		return fmt.Sprintf("ServerState(%d)", int(s))
	}
}

// State classifies the pairing handshake. A server that is neither verified
// nor confirmed should not be listed at all, so it is reported as an error.
func (s *InfoServer) State() (ServerState, error) {
	switch {
	case s.IsVerified && s.IsConfirmed:
		return ServerConnected, nil
	case s.IsVerified:
		return ServerAwaitingRemoteConfirmation, nil
	case s.IsConfirmed:
		return ServerAwaitingLocalConfirmation, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrIllegalServerState, s.Hostname)
	}
}

// InfoFile is one tracked file. Path is the absolute local path recorded at add time.
type InfoFile struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	LastModified int64  `json:"last_modified"` // unix seconds
}

func (f *InfoFile) ModifiedAt() time.Time {
	return time.Unix(f.LastModified, 0)
}
