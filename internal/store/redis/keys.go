package redis

const (
	// KeyPrefixAcquisition is the prefix for acquisition hashes
	KeyPrefixAcquisition = "curator:acquisition:"
	// KeyAllAcquisitions is the key for the set of all acquisition IDs
	KeyAllAcquisitions = "curator:acquisitions:all"
)

// AcquisitionKey returns the Redis key for an acquisition by ID
func AcquisitionKey(id string) string {
	return KeyPrefixAcquisition + id
}

// AllAcquisitionsKey returns the key for the set of all acquisition IDs
func AllAcquisitionsKey() string {
	return KeyAllAcquisitions
}
