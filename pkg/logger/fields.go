package logger

// Standard field names for consistent logging.
const (
	FieldService   = "service"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldRUT       = "rut"
	FieldRole      = "role"
	FieldDeviceID  = "device_id"
	FieldRecordID  = "record_id"
	FieldPlate     = "plate"
)
