package skbsdk

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/imroc/req/v3"

	"github.com/hm-skb/skb/internal/utils"
	"github.com/hm-skb/skb/internal/version"
)

// SDK is the main client for the SKB client api
type SDK struct {
	client  *req.Client
	config  *SDKConfig
	Info    *InfoAPI
	Files   *FileAPI
	Servers *ServerAPI
}

// New creates a new SDK client. Every call it makes is signed by signer.
func New(config *SDKConfig, signer *Signer) (*SDK, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if signer == nil {
		return nil, ErrNoSigner
	}

	client := req.C().
		SetBaseURL(config.BaseURL+APIPrefix).
		SetCommonRetryCount(0).
		SetUserAgent(version.UserAgent()).
		SetCommonHeader(HeaderSKBVersion, version.Version).
		SetCommonHeader(HeaderSKBDeviceID, utils.HWID).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal).
		// the server expects signed nonce bodies on GET
		EnableAllowGetMethodPayload()

	if config.AllowInsecure {
		slog.Warn("sdk tls certificate verification disabled", "server", config.BaseURL)
		client.EnableInsecureSkipVerify()
	}

	s := &signedClient{client: client, signer: signer}

	return &SDK{
		client:  client,
		config:  config,
		Info:    newInfoAPI(s),
		Files:   newFileAPI(s),
		Servers: newServerAPI(s),
	}, nil
}

// BaseURL is the server root this SDK talks to.
func (s *SDK) BaseURL() string {
	return s.config.BaseURL
}

// signedClient hands out requests that already carry a signed body.
type signedClient struct {
	client *req.Client
	signer *Signer
}

// jsonRequest signs body after stamping a fresh nonce on it.
func (c *signedClient) jsonRequest(ctx context.Context, body Nonced) (*req.Request, error) {
	env, err := c.signer.BuildEnvelope(body)
	if err != nil {
		return nil, err
	}
	return c.request(ctx, env, ContentTypeJSON), nil
}

// rawRequest signs data without a nonce.
func (c *signedClient) rawRequest(ctx context.Context, data []byte) (*req.Request, error) {
	env, err := c.signer.SignRaw(data)
	if err != nil {
		return nil, err
	}
	return c.request(ctx, env, ContentTypeOctetStream), nil
}

func (c *signedClient) request(ctx context.Context, env *Envelope, contentType string) *req.Request {
	requestID := uuid.NewString()
	slog.Debug("sdk signed request", "id", requestID, "size", len(env.Body), "sig", utils.MaskSecret(env.Signature))

	return c.client.R().
		SetContext(ctx).
		SetHeader(HeaderRequestID, requestID).
		SetHeader(HeaderSignature, env.Signature).
		SetHeader(HeaderContentType, contentType).
		SetBodyBytes(env.Body)
}
