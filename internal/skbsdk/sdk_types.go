package skbsdk

const (
	HeaderUserAgent    = "User-Agent"
	HeaderContentType  = "Content-Type"
	HeaderLastModified = "Last-Modified"
	HeaderSignature    = "SIGNATURE"
	HeaderRequestID    = "X-Request-Id"
	HeaderSKBVersion   = "X-SKB-Version"
	HeaderSKBDeviceID  = "X-SKB-Device-Id"

	ContentTypeJSON        = "application/json"
	ContentTypeOctetStream = "application/octet-stream"

	// APIPrefix is the mount point of the client api below the server url.
	APIPrefix = "/api/client/v1"
)

// Nonced is a JSON request body that carries the per-request nonce.
type Nonced interface {
	SetNonce(nonce string)
}

// EmptyBody is sent on requests that have nothing to say besides the nonce.
type EmptyBody struct {
	Nonce string `json:"nonce"`
}

func (b *EmptyBody) SetNonce(nonce string) { b.Nonce = nonce }

var _ Nonced = (*EmptyBody)(nil)
