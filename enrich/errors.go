package enrich

import "errors"

var (
	// ErrCaptionersRequired is returned when no caption provider pool is given.
	ErrCaptionersRequired = errors.New("caption provider pool required")

	// ErrAnalyzersRequired is returned when no document analyzer pool is given.
	ErrAnalyzersRequired = errors.New("document analyzer pool required")

	errEmptyVector = errors.New("provider returned an empty vector")
)

// Enrichment steps named in record errors and metrics.
const (
	StepDecode   = "decode"
	StepValidate = "validate"
	StepCaption  = "caption"
	StepOCR      = "ocr"
	StepCanceled = "canceled"
	StepDedupe   = "dedupe"
)
