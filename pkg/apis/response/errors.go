package response

var errors = map[ErrCode]string{
	ErrCodeMalformedJSON:              "The JSON you provided was not well-formed or did not validate against our published format.",
	ErrCodeRequestBody:                "Request body error",
	ErrCodeResourceExists:             "Resource %s already exists.",
	ErrCodeResourceNotFound:           "Resource %s not found.",
	ErrCodeLegalActionNotFound:        "Legal action not found.",
	ErrCodeDeviceNotFound:             "Device %s not found.",
	ErrCodeDeviceNotConnect:           "Device %s not connected.",
	ErrCodeDeviceOperatorUnSupported:  "Device operator %s not supported.",
	ErrCodeTooManyJsonPatchOperations: "The number of json patch operations exceeds %d.",
	ErrCodeResourceNotWritable:        "Resource %s is read only.",
	ErrCodeBooleanInvalid:             "The value of %s must be boolean.",
	ErrCodeNumberInvalid:              "The value of %s must be a number.",
	ErrCodeNumberOutOfRange:           "The value of %s must be between %v and %v.",
	ErrCodeOptionInvalid:              "The value of %s must be one of %v.",
	ErrCodeTimeInvalid:                "The value of %s must be in HH:MM form.",
	ErrCodeScheduleInvalid:            "The value of %s must be in HH:MM-HH:MM form.",
}

// !!! IMPORTANT PLEASE READ FIRST !!!
// You SHOULD add new code at the end of enum firstly.

var ErrMalformedJSON = &responseError{
	Code:    ErrCodeMalformedJSON,
	Message: errors[ErrCodeMalformedJSON],
}

var ErrRequestBody = &responseError{
	Code:    ErrCodeRequestBody,
	Message: errors[ErrCodeRequestBody],
}

var ErrLegalActionNotFound = &responseError{
	Code:    ErrCodeLegalActionNotFound,
	Message: errors[ErrCodeLegalActionNotFound],
}
