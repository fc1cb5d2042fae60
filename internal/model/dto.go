package model

// AddressCount is a grouped aggregate over request logs.
type AddressCount struct {
	IPAddress string `json:"ip_address"`
	Hits      int64  `json:"hits"`
}
