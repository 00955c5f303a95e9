package badger

// NewMemoryLedger returns a ledger backed by an in-memory BadgerDB instance.
func NewMemoryLedger() (*Ledger, error) {
	backend, err := OpenBackend("", true, nil)
	if err != nil {
		return nil, err
	}
	return newLedger(backend)
}
