package skbsdk

import (
	"strings"

	"github.com/hm-skb/skb/internal/utils"
)

// SDKConfig is the configuration for the SDK
type SDKConfig struct {
	BaseURL       string // BaseURL is the server root, without the api prefix
	AllowInsecure bool   // AllowInsecure skips TLS certificate verification
}

func (c *SDKConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrNoServerURL
	}

	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return utils.ValidateURL(c.BaseURL)
}
