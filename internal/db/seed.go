package db

import (
	"github.com/tgienger/worksphere/internal/models"
)

// Demo identities created by Seed
const (
	SeedAdminID    = "admin"
	SeedPMID       = "u2"
	SeedEmployeeID = "u1"
	SeedProjectID  = "prj-1"
)

// Seed fills an empty database with a demo workspace. It is a no-op when any
// user already exists.
func (db *DB) Seed() error {
	var users int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&users); err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	admin, err := db.CreateUser(models.User{ID: SeedAdminID, FullName: "Quản trị viên", Role: models.RoleAdmin})
	if err != nil {
		return err
	}
	pm, err := db.CreateUser(models.User{ID: SeedPMID, FullName: "Hoàng Ngọc Sơn", Role: models.RolePM})
	if err != nil {
		return err
	}
	employee, err := db.CreateUser(models.User{ID: SeedEmployeeID, FullName: "Nguyễn Thị Lan Anh", Role: models.RoleEmployee})
	if err != nil {
		return err
	}

	if _, err := db.Exec(`INSERT INTO projects (id, name, code) VALUES (?, ?, ?)`,
		SeedProjectID, "Worksphere Platform", "WSP"); err != nil {
		return err
	}
	urgent, err := db.CreateTag("urgent", "#e5484d")
	if err != nil {
		return err
	}
	if _, err := db.CreateTag("backend", "#3e63dd"); err != nil {
		return err
	}

	seeds := []struct {
		task     models.NewTask
		subtasks []string
	}{
		{
			task: models.NewTask{
				ProjectID: SeedProjectID, Title: "Thiết kế màn hình đăng nhập",
				Description: "Mockup và luồng xác thực", PriorityCode: "HIGH",
				StartDate: "2026-01-05", DueDate: "2026-01-20",
				AssigneeIDs: []string{employee.ID},
			},
			subtasks: []string{"Wireframe", "Bản thiết kế chi tiết"},
		},
		{
			task: models.NewTask{
				ProjectID: SeedProjectID, Title: "API quản lý công việc",
				PriorityCode: "URGENT", TypeCode: "FEATURE", DueDate: "2026-02-01",
				AssigneeIDs: []string{employee.ID, pm.ID},
			},
			subtasks: []string{"Thiết kế schema", "Viết handler", "Viết test"},
		},
		{
			task: models.NewTask{
				ProjectID: SeedProjectID, Title: "Viết tài liệu triển khai",
				PriorityCode: "LOW", TypeCode: "DOC",
			},
		},
	}

	for i, s := range seeds {
		task, err := db.CreateTask(s.task, *pm)
		if err != nil {
			return err
		}
		for _, title := range s.subtasks {
			if _, err := db.CreateSubtask(task.ID, *pm, models.NewSubtask{Title: title}); err != nil {
				return err
			}
		}
		if i == 1 {
			if _, err := db.UpdateTask(task.ID, *admin, map[string]any{FieldTagIDs: []string{urgent.ID}}, nil); err != nil {
				return err
			}
			if _, err := db.CreateComment(task.ID, *employee, "Em đã bắt đầu phần schema."); err != nil {
				return err
			}
		}
	}
	return nil
}
