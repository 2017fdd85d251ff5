package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeInvalidType          ErrorCode = 107
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidVersion       ErrorCode = 110
	ErrCodeInvalidBar           ErrorCode = 120
	ErrCodeInvalidPivotType     ErrorCode = 121

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeNoDataFound           ErrorCode = 204

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound          ErrorCode = 300
	ErrCodeIndicatorAlreadyRegistered ErrorCode = 301
	ErrCodeIndicatorCalculation       ErrorCode = 302

	// Structure errors (400-499)
	ErrCodeHistoryUnavailable ErrorCode = 400
	ErrCodeSnapshotInvalid    ErrorCode = 401
	ErrCodeVersionMismatch    ErrorCode = 404
	ErrCodeCallbackFailed     ErrorCode = 410

	// IO errors (700-799)
	ErrCodeReadFailed   ErrorCode = 700
	ErrCodeWriteFailed  ErrorCode = 701
	ErrCodeParseFailed  ErrorCode = 702
	ErrCodeExportFailed ErrorCode = 703
)
