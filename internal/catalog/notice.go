package catalog

import (
	"errors"

	"catalog-admin/internal/apperror"
	"catalog-admin/internal/domain"
)

// NoticeKind is the severity of a user notification
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notice is a transient user notification
type Notice struct {
	Kind  NoticeKind `json:"kind"`
	Title string     `json:"title"`
	Text  string     `json:"text"`
}

func AddedNotice(p *domain.Product) Notice {
	return Notice{Kind: NoticeSuccess, Title: "Product Added", Text: p.Name + " has been successfully added."}
}

func UpdatedNotice(p *domain.Product) Notice {
	return Notice{Kind: NoticeSuccess, Title: "Product Updated", Text: p.Name + " has been successfully updated."}
}

func DeletedNotice() Notice {
	return Notice{Kind: NoticeSuccess, Title: "Product Deleted", Text: "The product has been successfully deleted."}
}

func LoginNotice() Notice {
	return Notice{Kind: NoticeSuccess, Title: "Login Successful", Text: "Welcome back!"}
}

func LogoutNotice() Notice {
	return Notice{Kind: NoticeSuccess, Title: "Logged Out", Text: "You have been successfully logged out."}
}

// Action names the operation a failure notice is about
type Action string

const (
	ActionAdd    Action = "Add"
	ActionUpdate Action = "Update"
	ActionDelete Action = "Delete"
	ActionLogin  Action = "Login"
	ActionLoad   Action = "Load"
)

var failureFallback = map[Action]string{
	ActionAdd:    "Could not add the product.",
	ActionUpdate: "Could not update the product.",
	ActionDelete: "Could not delete the product.",
	ActionLogin:  "An unexpected error occurred.",
	ActionLoad:   "Something went wrong.",
}

// FailureNotice builds the notification for a failed action
func FailureNotice(action Action, err error) Notice {
	text := apperror.Message(err)
	if text == "" {
		text = failureFallback[action]
	}

	var formErr *apperror.FormValidationError
	if errors.As(err, &formErr) {
		return Notice{Kind: NoticeError, Title: "Validation Failed", Text: text}
	}
	return Notice{Kind: NoticeError, Title: string(action) + " Failed", Text: text}
}
