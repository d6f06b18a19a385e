package rbac

const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
	RoleAssistant  = "assistant"
)

const (
	PermWorkbookCreate = "workbook:create"
	PermWorkbookUpdate = "workbook:update"
	PermHistoryView    = "history:view"
)

// Simple default policy. Assistants can fill in students but not start new exams.
var RolePermissions = map[string][]string{
	RoleInstructor: {
		PermWorkbookCreate,
		PermWorkbookUpdate,
		PermHistoryView,
	},
	RoleAssistant: {
		PermWorkbookUpdate,
		PermHistoryView,
	},
	RoleAdmin: {
		"*", // everything
	},
}
