package utils

import (
	"github.com/denisbrodbeck/machineid"
)

// HWID identifies this machine to the server without exposing the raw machine id.
var HWID = deviceID()

func deviceID() string {
	id, err := machineid.ProtectedID("skb")
	if err != nil || id == "" {
		return "unknown"
	}
	return id
}
