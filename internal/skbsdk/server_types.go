package skbsdk

// ServerItem is a server that can be paired with but is not yet added.
type ServerItem struct {
	Hostname            string   `json:"hostname"`
	Owner               string   `json:"owner"`
	BlockSize           uint64   `json:"block_size"`
	FreeBlocks          uint64   `json:"free_blocks"`
	HealthcheckPercent  uint8    `json:"healthcheck_percent"`
	HealthcheckInterval uint64   `json:"healthcheck_interval"` // minutes
	HashMethods         []string `json:"hash_methods"`
}

type DiscoverResponse struct {
	Servers []ServerItem `json:"servers"`
}

// BackupCodeResponse carries the code that restores the pairing after data loss.
type BackupCodeResponse struct {
	BackupCode string `json:"backup_code"`
}
