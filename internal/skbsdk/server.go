package skbsdk

import (
	"context"
	"strconv"

	"github.com/imroc/req/v3"
)

const (
	v1Server = "/server/"
)

type ServerAPI struct {
	client *signedClient
}

func newServerAPI(client *signedClient) *ServerAPI {
	return &ServerAPI{
		client: client,
	}
}

// Discover lists servers reachable within depth hops that are not added yet.
func (s *ServerAPI) Discover(ctx context.Context, depth uint) (resp *DiscoverResponse, err error) {
	r, err := s.client.jsonRequest(ctx, &EmptyBody{})
	if err != nil {
		return nil, err
	}

	res, err := r.
		SetQueryParam("depth", strconv.FormatUint(uint64(depth), 10)).
		SetSuccessResult(&resp).
		Get(v1Server)
	if err := handleAPIError(res, err, "server discover"); err != nil {
		return nil, err
	}

	return resp, nil
}

// Add starts pairing with a discovered server.
func (s *ServerAPI) Add(ctx context.Context, hostname string) (string, error) {
	return s.backupCodeCall(ctx, hostname, "server add", false)
}

// Accept confirms a pairing the remote server started.
func (s *ServerAPI) Accept(ctx context.Context, hostname string) (string, error) {
	return s.backupCodeCall(ctx, hostname, "server accept", true)
}

func (s *ServerAPI) Delete(ctx context.Context, hostname string) error {
	r, err := s.client.jsonRequest(ctx, &EmptyBody{})
	if err != nil {
		return err
	}

	res, err := r.SetQueryParam("hostname", hostname).Delete(v1Server)
	return handleAPIError(res, err, "server delete")
}

func (s *ServerAPI) backupCodeCall(ctx context.Context, hostname, op string, put bool) (string, error) {
	r, err := s.client.jsonRequest(ctx, &EmptyBody{})
	if err != nil {
		return "", err
	}

	var resp BackupCodeResponse
	r.SetQueryParam("hostname", hostname).SetSuccessResult(&resp)

	var res *req.Response
	if put {
		res, err = r.Put(v1Server)
	} else {
		res, err = r.Post(v1Server)
	}
	if err := handleAPIError(res, err, op); err != nil {
		return "", err
	}

	return resp.BackupCode, nil
}
