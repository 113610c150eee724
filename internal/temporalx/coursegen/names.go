package coursegen

const (
	WorkflowName = "course_generation"

	ActivityGenerateOutline = "generate_outline"
	ActivityGenerateCourse  = "generate_course"
	ActivityRecordRunEvent  = "record_run_event"

	QueryStatus          = "get_status"
	UpdateApproveOutline = "approve_outline"
)

// Application error types raised by the approval validator.
const (
	TypeApprovalAlreadyRecorded = "ApprovalAlreadyRecorded"
	TypeApprovalNotAwaiting     = "ApprovalNotAwaiting"
)

// CancelledMessage is returned for a rejected outline.
const CancelledMessage = "Course generation cancelled by user"
