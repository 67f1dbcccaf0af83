package db

import "github.com/tgienger/worksphere/internal/models"

// Task field names accepted by UpdateTask
const (
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldStatusCode   = "status_code"
	FieldPriorityCode = "priority_code"
	FieldTypeCode     = "type_code"
	FieldStartDate    = "start_date"
	FieldDueDate      = "due_date"
	FieldAssigneeIDs  = "assignee_ids"
	FieldTagIDs       = "tag_ids"
)

// taskColumns maps scalar task fields to their column
var taskColumns = map[string]string{
	FieldTitle:        "title",
	FieldDescription:  "description",
	FieldStatusCode:   "status_code",
	FieldPriorityCode: "priority_code",
	FieldTypeCode:     "type_code",
	FieldStartDate:    "start_date",
	FieldDueDate:      "due_date",
}

var (
	managerFields = []string{
		FieldTitle, FieldDescription, FieldStatusCode, FieldPriorityCode,
		FieldTypeCode, FieldStartDate, FieldDueDate, FieldAssigneeIDs, FieldTagIDs,
	}
	creatorFields  = []string{FieldTitle, FieldDescription, FieldStatusCode, FieldDueDate, FieldTagIDs}
	assigneeFields = []string{FieldDescription, FieldStatusCode}
)

// Capabilities computes what actor may do with a task.
// Managers can do everything; employees are limited to tasks they created
// or are assigned to. A locked task refuses every edit.
func Capabilities(actor models.User, createdBy string, assigned, locked bool) models.Capabilities {
	caps := models.Capabilities{AllowedFields: []string{}}

	creator := actor.ID != "" && actor.ID == createdBy
	switch {
	case actor.Role == models.RoleAdmin || actor.Role == models.RolePM:
		caps.CanUpdate = true
		caps.CanDelete = true
		caps.CanLogTime = true
		caps.AllowedFields = append(caps.AllowedFields, managerFields...)
	case creator:
		caps.CanUpdate = true
		caps.CanDelete = true
		caps.CanLogTime = true
		caps.AllowedFields = append(caps.AllowedFields, creatorFields...)
	case assigned:
		caps.CanUpdate = true
		caps.CanLogTime = true
		caps.AllowedFields = append(caps.AllowedFields, assigneeFields...)
	}

	if locked {
		caps.CanUpdate = false
		caps.CanLogTime = false
		caps.AllowedFields = []string{}
	}
	return caps
}
