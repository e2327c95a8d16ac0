//go:build sonic

package skbsdk

import (
	"github.com/bytedance/sonic"
)

// for imroc/req and the signer
var jsonMarshal = sonic.Marshal
var jsonUnmarshal = sonic.Unmarshal
