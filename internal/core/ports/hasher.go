package ports

// Hasher fingerprints build output.
//
//go:generate mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// Fingerprint returns a hash of the relative paths and contents of every file below root.
	Fingerprint(root string) (string, error)
}
