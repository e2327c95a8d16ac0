//go:build !sonic

package skbsdk

import (
	"github.com/goccy/go-json"
)

// for imroc/req and the signer
var jsonMarshal = json.Marshal
var jsonUnmarshal = json.Unmarshal
