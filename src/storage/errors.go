package storage

import "fmt"

type (
	// AuthError means the account or upload-URL exchange failed, or the
	// provider rejected a cached token.
	AuthError struct {
		Step    string
		Status  int
		Message string
		Err     error
	}

	// UploadError means the object store refused the file or could not be reached.
	UploadError struct {
		Filename string
		Status   int
		Payload  string
		Err      error
	}
)

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("b2 %s failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("b2 %s failed (%d): %s", e.Step, e.Status, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload of %s failed: %v", e.Filename, e.Err)
	}
	return fmt.Sprintf("upload of %s failed (%d): %s", e.Filename, e.Status, e.Payload)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
