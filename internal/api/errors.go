package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingToken means login succeeded but no usable credential came back.
var ErrMissingToken = errors.New("login response missing token field")

// OperationError reports a remote call the service rejected.
type OperationError struct {
	Op     string
	Status int
	Detail string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.Status, e.Detail)
}

// RemoteErrorClass is the pipeline-relevant classification of a rejected
// call.
type RemoteErrorClass int

const (
	ClassUnknown RemoteErrorClass = iota
	ClassDuplicateEmail
	ClassBadCredentials
	ClassUnverifiedEmail
)

// Signals the backend emits for each class. The service only returns
// free-text errors, so this is a compatibility shim pinned to the known
// strings; it drifts if the backend rewords them. Keep the literals in
// sync with errors_test.go.
var (
	duplicateEmailSignals  = []string{"邮箱已经注册", "已注册", "EMAIL_ALREADY_EXISTS"}
	badCredentialsSignals  = []string{"账号或密码错误"}
	unverifiedEmailSignals = []string{"EMAIL_NOT_VERIFIED"}
)

// ClassifyRemoteError maps a rejected call onto the classes the import
// stages branch on. Non-OperationError values are ClassUnknown.
func ClassifyRemoteError(err error) RemoteErrorClass {
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		return ClassUnknown
	}
	for _, signal := range duplicateEmailSignals {
		if strings.Contains(opErr.Detail, signal) {
			return ClassDuplicateEmail
		}
	}
	for _, signal := range unverifiedEmailSignals {
		if strings.Contains(opErr.Detail, signal) {
			return ClassUnverifiedEmail
		}
	}
	for _, signal := range badCredentialsSignals {
		if strings.Contains(opErr.Detail, signal) {
			return ClassBadCredentials
		}
	}
	return ClassUnknown
}
