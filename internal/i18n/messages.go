// Package i18n holds the user-facing messages shown by the store, the
// terminal UI and the reference API, in English and Vietnamese.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The English text doubles as the key.
const (
	MsgLoadTasksFailed    = "Could not load the task list"
	MsgLoadTaskFailed     = "Could not load task details"
	MsgUpdateTaskFailed   = "Could not update the task"
	MsgConflict           = "Data conflict. Please reload the page."
	MsgDeleteTaskFailed   = "Could not delete the task"
	MsgReorderFailed      = "Could not reorder the task"
	MsgSubtaskFailed      = "Could not update the subtask"
	MsgCommentFailed      = "Could not add the comment"
	MsgTimeLogFailed      = "Could not log time"
	MsgLoadHistoryFailed  = "Could not load the task history"
	MsgProjectNotFound    = "Project not found"
	MsgTaskNotFound       = "Task not found"
	MsgSubtaskNotFound    = "Subtask not found"
	MsgTaskLocked         = "The task is locked"
	MsgForbiddenField     = "You may not edit field %s"
	MsgForbidden          = "You do not have permission to perform this action"
	MsgInvalidRequest     = "Invalid request"
	MsgMissingIdentity    = "Missing caller identity"
	MsgUnknownCaller      = "Unknown user"
	MsgInternalError      = "Internal server error"
	MsgConflictReloadHint = "Press r to reload before editing again"
)

var vietnamese = map[string]string{
	MsgLoadTasksFailed:    "Không thể tải danh sách công việc",
	MsgLoadTaskFailed:     "Không thể tải chi tiết công việc",
	MsgUpdateTaskFailed:   "Không thể cập nhật công việc",
	MsgConflict:           "Xung đột dữ liệu. Vui lòng tải lại trang.",
	MsgDeleteTaskFailed:   "Không thể xóa công việc",
	MsgReorderFailed:      "Không thể sắp xếp lại công việc",
	MsgSubtaskFailed:      "Không thể cập nhật công việc con",
	MsgCommentFailed:      "Không thể thêm bình luận",
	MsgTimeLogFailed:      "Không thể ghi nhận thời gian",
	MsgLoadHistoryFailed:  "Không thể tải lịch sử công việc",
	MsgProjectNotFound:    "Không tìm thấy dự án",
	MsgTaskNotFound:       "Không tìm thấy công việc",
	MsgSubtaskNotFound:    "Không tìm thấy công việc con",
	MsgTaskLocked:         "Công việc đã bị khóa",
	MsgForbiddenField:     "Bạn không được phép sửa trường %s",
	MsgForbidden:          "Bạn không có quyền thực hiện thao tác này",
	MsgInvalidRequest:     "Yêu cầu không hợp lệ",
	MsgMissingIdentity:    "Thiếu thông tin người dùng",
	MsgUnknownCaller:      "Người dùng không tồn tại",
	MsgInternalError:      "Lỗi máy chủ",
	MsgConflictReloadHint: "Nhấn r để tải lại trước khi sửa tiếp",
}

var supported = []language.Tag{language.English, language.Vietnamese}

var (
	matcher = language.NewMatcher(supported)
	cat     = buildCatalog()
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, text := range vietnamese {
		if err := b.SetString(language.Vietnamese, key, text); err != nil {
			panic(err)
		}
		if err := b.SetString(language.English, key, key); err != nil {
			panic(err)
		}
	}
	return b
}

// Match maps a language name ("vi", "en-US", ...) to a supported tag.
// Unknown or empty names fall back to English.
func Match(lang string) language.Tag {
	tag, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	_, idx, _ := matcher.Match(tag)
	return supported[idx]
}

// MatchAcceptLanguage picks a supported tag from an Accept-Language header.
func MatchAcceptLanguage(header string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := matcher.Match(tags...)
	return supported[idx]
}

// NewPrinter returns a printer for lang backed by the message catalog.
func NewPrinter(lang string) *message.Printer {
	return PrinterFor(Match(lang))
}

// PrinterFor returns a printer for an already matched tag.
func PrinterFor(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(cat))
}
