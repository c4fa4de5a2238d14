package recorder

import "github.com/harubonchi/heat-cycle-demo/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("recorder_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("recorder_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("recorder_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("recorder_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("recorder_transaction_failed")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitFailed
	ErrStorageClose = errors.ErrShutdownFailed

	// Recording Errors
	ErrInvalidSnapshot = errors.ErrorCode("recorder_invalid_snapshot")
	ErrRecordFailed    = errors.ErrorCode("recorder_record_failed")

	// Service Errors
	ErrServiceShutdown = errors.ErrShutdownFailed

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
