package skbsdk

import (
	"context"
)

const (
	v1Info = "/info/"
)

type InfoAPI struct {
	client *signedClient
}

func newInfoAPI(client *signedClient) *InfoAPI {
	return &InfoAPI{
		client: client,
	}
}

// GetInfo fetches the remote state snapshot.
func (i *InfoAPI) GetInfo(ctx context.Context) (resp *InfoResponse, err error) {
	r, err := i.client.jsonRequest(ctx, &EmptyBody{})
	if err != nil {
		return nil, err
	}

	res, err := r.SetSuccessResult(&resp).Get(v1Info)
	if err := handleAPIError(res, err, "info"); err != nil {
		return nil, err
	}

	return resp, nil
}
