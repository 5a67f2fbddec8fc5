package domain

// DeleteOutcome classifies a best-effort image deletion.
type DeleteOutcome string

const (
	DeleteDeleted        DeleteOutcome = "deleted"
	DeleteNotFound       DeleteOutcome = "not_found"       // blob already absent
	DeleteInvalidAddress DeleteOutcome = "invalid_address" // not an address of this store
	DeleteUnavailable    DeleteOutcome = "unavailable"     // no bucket configured
	DeleteFailed         DeleteOutcome = "failed"          // transport or other store error
)

// DeleteResult is what an image deletion reports instead of an error.
type DeleteResult struct {
	Address string
	Outcome DeleteOutcome
	Err     error
}

// Deleted is true only on confirmed deletion.
func (r DeleteResult) Deleted() bool {
	return r.Outcome == DeleteDeleted
}

// CompensationAction names why a cleanup was attempted.
type CompensationAction string

const (
	// CompensateOrphanedImage removes an image uploaded for a record write that then failed.
	CompensateOrphanedImage CompensationAction = "orphaned_image"
	// CompensateSupersededImage removes the previous image after a successful image replacement.
	CompensateSupersededImage CompensationAction = "superseded_image"
	// CompensateRecordImage removes the image of a deleted record.
	CompensateRecordImage CompensationAction = "record_image"
)

// CompensationResult records one best-effort cleanup. It never affects the
// outcome of the operation that triggered it.
type CompensationResult struct {
	Action CompensationAction
	DeleteResult
}
