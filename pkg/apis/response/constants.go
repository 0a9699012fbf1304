package response

type ErrCode int

const (
	_                                 ErrCode = 10000 + iota
	ErrCodeMalformedJSON                      // 10001
	ErrCodeRequestBody                        // 10002
	ErrCodeResourceExists                     // 10003
	ErrCodeResourceNotFound                   // 10004
	ErrCodeLegalActionNotFound                // 10005
	ErrCodeDeviceNotFound                     // 10006
	ErrCodeDeviceNotConnect                   // 10007
	ErrCodeDeviceOperatorUnSupported          // 10008
	ErrCodeTooManyJsonPatchOperations         // 10009
	ErrCodeResourceNotWritable                // 10010
	ErrCodeBooleanInvalid                     // 10011
	ErrCodeNumberInvalid                      // 10012
	ErrCodeNumberOutOfRange                   // 10013
	ErrCodeOptionInvalid                      // 10014
	ErrCodeTimeInvalid                        // 10015
	ErrCodeScheduleInvalid                    // 10016
)

// !!! IMPORTANT PLEASE READ FIRST !!!
// You SHOULD add new code at the end, and append comment of number
// Meanwhile, the corresponding error message SHOULD be appended in response.errors
// The order MUST be consistent between them
