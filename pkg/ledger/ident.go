package ledger

// DefaultIDOffset is added to an account's catalog position to form its
// ledger identifier. The low id range stays reserved for system records
// such as the connectivity probe.
const DefaultIDOffset uint64 = 100

// ProbeID is the well-known identifier of the connectivity-probe record,
// deliberately outside the range any realistic catalog maps onto.
const ProbeID uint64 = 999999

// RecordID maps a catalog position to a ledger identifier. The mapping is
// pure and injective over the catalog index range, so re-running a sync
// against a previously populated ledger addresses the same records.
func RecordID(catalogIndex int, offset uint64) uint64 {
	return uint64(catalogIndex) + offset
}
